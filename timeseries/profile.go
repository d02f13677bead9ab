package timeseries

import (
	"math"
	"math/rand"

	"github.com/grailbio/streamstats/stats"
	"github.com/pkg/errors"
)

// MatrixProfile computes the SCRIMP-style matrix profile over the n samples
// starting at the row for ns, using subsequences of length m.  mp[i] is the
// z-normalized Euclidean distance from subsequence i to its nearest
// non-trivial match and mpi[i] is that match's index.  percent below 100
// processes only that share of the distance-matrix diagonals, chosen
// uniformly at random, trading accuracy for speed; entries never touched
// remain +Inf.
//
// Requirements: m >= 4, n >= 4m, n a multiple of m, n at most the buffer
// length, 0 < percent <= 100, and the n samples entirely within the
// buffer's span.
func (ts *Int) MatrixProfile(ns uint64, n, m int, percent float64) (mp []float64, mpi []int32, err error) {
	if m < 4 {
		return nil, nil, errors.Errorf("timeseries: subsequence length %d must be >= 4", m)
	}
	if n < 4*m || n%m != 0 {
		return nil, nil, errors.Errorf("timeseries: sequence length %d must be a multiple of %d and >= %d", n, m, 4*m)
	}
	if n > int(ts.rows) {
		return nil, nil, errors.Errorf("timeseries: sequence length %d exceeds %d rows", n, ts.rows)
	}
	if percent <= 0 || percent > 100 {
		return nil, nil, errors.Errorf("timeseries: percent %g out of range", percent)
	}
	base, ok := ts.resolveRange(ns, n)
	if !ok {
		return nil, nil, errors.Errorf("timeseries: range out of bounds")
	}

	val := func(j int) float64 {
		return float64(ts.v[ts.tsidx(j, base)])
	}

	// Rolling mean and uncorrected deviation of every length-m window,
	// computed with one Welford pass and O(1) slides.
	mpLen := n - m + 1
	means := make([]float64, mpLen)
	usds := make([]float64, mpLen)
	var w stats.Running
	for j := 0; j < m; j++ {
		w.Add(val(j))
	}
	means[0], usds[0] = w.Mean(), w.USD()
	for j := 1; j < mpLen; j++ {
		w.Swap(val(j+m-1), val(j-1))
		means[j], usds[j] = w.Mean(), w.USD()
	}

	mp = make([]float64, mpLen)
	mpi = make([]int32, mpLen)
	for i := range mp {
		mp[i] = math.Inf(1)
	}

	// Diagonals below m/4+1 pair a subsequence with its own trivial
	// neighbors, so they are excluded.  The rest are walked in random order
	// until the requested share has been processed.
	diags := make([]int, 0, mpLen)
	for d := m/4 + 1; d < mpLen; d++ {
		diags = append(diags, d)
	}
	rand.Shuffle(len(diags), func(i, j int) {
		diags[i], diags[j] = diags[j], diags[i]
	})
	limit := int(percent*float64(mpLen)/100) + 1
	if limit > len(diags) {
		limit = len(diags)
	}

	fm := float64(m)
	for _, d := range diags[:limit] {
		var lastz float64
		for j := 0; j < m; j++ {
			lastz += val(d+j) * val(j)
		}
		for j := d; j < mpLen; j++ {
			i := j - d
			if j > d {
				lastz += val(j+m-1)*val(i+m-1) - val(j-1)*val(i-1)
			}
			dist := math.Inf(1)
			if denom := usds[j] * usds[i]; denom != 0 {
				dist = 2 * (fm - (lastz-fm*means[j]*means[i])/denom)
			}
			if dist < mp[j] {
				mp[j] = dist
				mpi[j] = int32(i)
			}
			if dist < mp[i] {
				mp[i] = dist
				mpi[i] = int32(j)
			}
		}
	}

	for i := range mp {
		mp[i] = math.Sqrt(math.Abs(mp[i]))
	}
	return mp, mpi, nil
}

// Discord reduces the matrix profile to its most anomalous point: the index
// with the largest profile distance, together with the mean and corrected
// standard deviation of the finite profile entries.
func (ts *Int) Discord(ns uint64, n, m int, percent float64) (idx int, mean, sd float64, err error) {
	mp, _, err := ts.MatrixProfile(ns, n, m, percent)
	if err != nil {
		return 0, 0, 0, err
	}
	var rs stats.Running
	best := math.Inf(-1)
	for i, v := range mp {
		if math.IsInf(v, 1) {
			// Never compared (percent < 100) or zero-deviation window.
			continue
		}
		rs.Add(v)
		if v > best {
			best = v
			idx = i
		}
	}
	return idx, rs.Mean(), rs.SD(), nil
}
