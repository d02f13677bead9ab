package timeseries

import (
	"github.com/grailbio/streamstats/stats"
)

// StatKind selects the aggregate computed by Stats.
type StatKind int

const (
	// StatSum is the sum of the slot values.
	StatSum StatKind = iota
	// StatMin is the smallest slot value.
	StatMin
	// StatMax is the largest slot value.
	StatMax
	// StatAvg is the mean of the slot values.
	StatAvg
	// StatSD is the corrected standard deviation of the slot values.
	StatSD
	// StatUSD is the uncorrected standard deviation of the slot values.
	StatUSD
)

// resolveRange validates a walk of n consecutive slots starting at ns and
// returns the base slot index.  The whole range, not just its start, must
// lie within the buffer's span.
func (ts *Int) resolveRange(ns uint64, n int) (int, bool) {
	if n < 1 || n > int(ts.rows) {
		return 0, false
	}
	base := ts.findIndex(ns, false)
	if base == -1 {
		return 0, false
	}
	if ts.findIndex(ns+uint64(n-1)*ts.nsPerRow, false) == -1 {
		return 0, false
	}
	return base, true
}

// Range returns the values of n consecutive slots starting at the row for
// ns.  ok is false when any part of the range lies outside the buffer's
// span.
func (ts *Int) Range(ns uint64, n int) ([]int32, bool) {
	base, ok := ts.resolveRange(ns, n)
	if !ok {
		return nil, false
	}
	out := make([]int32, n)
	for j := 0; j < n; j++ {
		out[j] = ts.v[ts.tsidx(j, base)]
	}
	return out, true
}

// Stats aggregates n consecutive slots starting at the row for ns.  With
// includeZero false, zero-valued slots contribute neither to the aggregate
// nor to the returned sample count.  ok is false when any part of the range
// lies outside the buffer's span; a range whose every slot was excluded
// returns value 0 with samples 0.
func (ts *Int) Stats(ns uint64, n int, kind StatKind, includeZero bool) (value float64, samples int, ok bool) {
	base, ok := ts.resolveRange(ns, n)
	if !ok {
		return 0, 0, false
	}

	var rs stats.Running
	var sum int64
	var min, max int32
	for j := 0; j < n; j++ {
		v := ts.v[ts.tsidx(j, base)]
		if v == 0 && !includeZero {
			continue
		}
		if samples == 0 {
			min, max = v, v
		} else {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		samples++
		sum += int64(v)
		rs.Add(float64(v))
	}
	if samples == 0 {
		return 0, 0, true
	}

	switch kind {
	case StatSum:
		value = float64(sum)
	case StatMin:
		value = float64(min)
	case StatMax:
		value = float64(max)
	case StatAvg:
		value = rs.Mean()
	case StatSD:
		value = rs.SD()
	case StatUSD:
		value = rs.USD()
	}
	return value, samples, true
}
