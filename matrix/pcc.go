package matrix

import (
	"math"

	"github.com/grailbio/streamstats/stats"
)

// PccMode selects whether Pcc looks for the best or the worst correlated
// row.
type PccMode int

const (
	// PccMax selects the most positively correlated row.
	PccMax PccMode = iota
	// PccMin selects the most negatively correlated row.
	PccMin
)

// rowMoments returns the mean and uncorrected standard deviation of one
// row.
func rowMoments(row []float64) (mu, sigma float64) {
	var rs stats.Running
	for _, v := range row {
		rs.Add(v)
	}
	return rs.Mean(), rs.USD()
}

// pcc runs the Pearson-correlation row search over any row-major matrix
// presented as a float64 getter.  Rows with zero standard deviation carry
// no signal and are skipped; among equally correlated rows the earliest
// index wins.
func pcc(rows, cols int, at func(row, col int) float64, row int, mode PccMode) (int, float64, bool) {
	if row < 0 || row >= rows {
		return 0, 0, false
	}
	target := make([]float64, cols)
	for k := 0; k < cols; k++ {
		target[k] = at(row, k)
	}
	muT, sigmaT := rowMoments(target)
	if sigmaT == 0 {
		return 0, 0, false
	}

	other := make([]float64, cols)
	best, bestCorr, found := 0, 0.0, false
	for r := 0; r < rows; r++ {
		if r == row {
			continue
		}
		for k := 0; k < cols; k++ {
			other[k] = at(r, k)
		}
		muO, sigmaO := rowMoments(other)
		if sigmaO == 0 {
			continue
		}
		dot := 0.0
		for k := 0; k < cols; k++ {
			dot += target[k] * other[k]
		}
		fc := float64(cols)
		corr := (dot - fc*muT*muO) / (fc * sigmaT * sigmaO)
		if math.IsNaN(corr) {
			continue
		}
		better := corr > bestCorr
		if mode == PccMin {
			better = corr < bestCorr
		}
		if !found || better {
			best, bestCorr, found = r, corr, true
		}
	}
	return best, bestCorr, found
}

// Pcc returns the index of the row best (PccMax) or worst (PccMin)
// correlated with the given row, together with the correlation.  ok is
// false when the target row is out of bounds, has zero standard deviation,
// or no other row carries signal.
func (m *Int) Pcc(row int, mode PccMode) (int, float64, bool) {
	return pcc(int(m.rows), int(m.cols), func(r, c int) float64 {
		return float64(m.v[r*int(m.cols)+c])
	}, row, mode)
}

// Pcc is the Pearson-correlation row search over a float matrix.  Rows
// containing unset cells propagate NaN through the correlation and are
// skipped.
func (m *Float) Pcc(row int, mode PccMode) (int, float64, bool) {
	return pcc(int(m.rows), int(m.cols), func(r, c int) float64 {
		return float64(m.v[r*int(m.cols)+c])
	}, row, mode)
}
