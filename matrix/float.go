package matrix

import (
	"math"

	"github.com/grailbio/streamstats/wire"
	"github.com/pkg/errors"
)

// Float is a dense row-major float32 matrix.  Cells start out as NaN,
// meaning "unset": the first Add to a cell replaces the NaN, subsequent
// Adds accumulate.
type Float struct {
	rows, cols int32
	v          []float32
}

// NewFloat returns a rows×cols matrix with every cell unset.  Either
// dimension below 1 is rejected.
func NewFloat(rows, cols int) (*Float, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.Errorf("matrix: invalid dimensions %dx%d", rows, cols)
	}
	m := &Float{rows: int32(rows), cols: int32(cols), v: make([]float32, rows*cols)}
	m.Clear()
	return m, nil
}

// Rows returns the row count.
func (m *Float) Rows() int { return int(m.rows) }

// Cols returns the column count.
func (m *Float) Cols() int { return int(m.cols) }

// Clear marks every cell unset.
func (m *Float) Clear() {
	nan := float32(math.NaN())
	for i := range m.v {
		m.v[i] = nan
	}
}

// ClearRow marks a single row unset.  Out-of-bounds rows are ignored.
func (m *Float) ClearRow(row int) {
	if row < 0 || row >= int(m.rows) {
		return
	}
	nan := float32(math.NaN())
	base := row * int(m.cols)
	for i := base; i < base+int(m.cols); i++ {
		m.v[i] = nan
	}
}

func (m *Float) inBounds(row, col int) bool {
	return row >= 0 && row < int(m.rows) && col >= 0 && col < int(m.cols)
}

// Add adds v to the cell and returns the new value; an unset cell takes v
// directly.  ok is false when the cell is out of bounds, in which case
// nothing is mutated.
func (m *Float) Add(row, col int, v float32) (float32, bool) {
	if !m.inBounds(row, col) {
		return 0, false
	}
	idx := row*int(m.cols) + col
	if cur := m.v[idx]; !math.IsNaN(float64(cur)) {
		v += cur
	}
	m.v[idx] = v
	return v, true
}

// Set stores v into the cell and returns it.  ok is false when the cell is
// out of bounds.
func (m *Float) Set(row, col int, v float32) (float32, bool) {
	if !m.inBounds(row, col) {
		return 0, false
	}
	m.v[row*int(m.cols)+col] = v
	return v, true
}

// Get returns the cell value (NaN for an unset cell).  ok is false when the
// cell is out of bounds.
func (m *Float) Get(row, col int) (float32, bool) {
	if !m.inBounds(row, col) {
		return 0, false
	}
	return m.v[row*int(m.cols)+col], true
}

// MarshalBinary serializes the matrix: rows, cols, then every cell
// row-major, all little-endian.  Unset cells serialize as NaN.
func (m *Float) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerLen+len(m.v)*wire.SizeF32)
	off := 0
	wire.PutI32(wire.Cut(&off, buf, wire.SizeI32), m.rows)
	wire.PutI32(wire.Cut(&off, buf, wire.SizeI32), m.cols)
	for _, v := range m.v {
		wire.PutF32(wire.Cut(&off, buf, wire.SizeF32), v)
	}
	return buf, nil
}

// UnmarshalBinary restores the matrix from MarshalBinary output.  The
// receiver's dimensions must match the buffer's.  On any failure the
// receiver is cleared before the error is returned.
func (m *Float) UnmarshalBinary(data []byte) error {
	if len(data) != headerLen+len(m.v)*wire.SizeF32 {
		m.Clear()
		return ErrBadLength
	}
	off := 0
	if wire.I32(wire.Cut(&off, data, wire.SizeI32)) != m.rows {
		m.Clear()
		return ErrMismatchedRows
	}
	if wire.I32(wire.Cut(&off, data, wire.SizeI32)) != m.cols {
		m.Clear()
		return ErrMismatchedCols
	}
	for i := range m.v {
		m.v[i] = wire.F32(wire.Cut(&off, data, wire.SizeF32))
	}
	return nil
}
