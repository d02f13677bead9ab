// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package matrix provides dense row-major int32 and float32 matrices with
// saturating accumulation and a Pearson-correlation row search.
package matrix

import (
	"math"

	"github.com/grailbio/streamstats/wire"
	"github.com/pkg/errors"
)

var (
	// ErrBadLength is returned by UnmarshalBinary when the buffer size does
	// not match the receiver's dimensions.
	ErrBadLength = errors.New("matrix: invalid serialization length")
	// ErrMismatchedRows is returned by UnmarshalBinary when the buffer was
	// produced with a different row count than the receiver's.
	ErrMismatchedRows = errors.New("matrix: mismatched rows")
	// ErrMismatchedCols is returned by UnmarshalBinary when the buffer was
	// produced with a different column count than the receiver's.
	ErrMismatchedCols = errors.New("matrix: mismatched cols")
)

// headerLen is the serialized size of the rows and cols fields.
const headerLen = 2 * wire.SizeI32

// Int is a dense row-major int32 matrix.  Accumulation saturates to
// [MinInt32+1, MaxInt32]; MinInt32 itself is reserved so that legacy
// callers can keep using it as an absent-value sentinel.
type Int struct {
	rows, cols int32
	v          []int32
}

// NewInt returns a zeroed rows×cols matrix.  Either dimension below 1 is
// rejected.
func NewInt(rows, cols int) (*Int, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.Errorf("matrix: invalid dimensions %dx%d", rows, cols)
	}
	return &Int{rows: int32(rows), cols: int32(cols), v: make([]int32, rows*cols)}, nil
}

// Rows returns the row count.
func (m *Int) Rows() int { return int(m.rows) }

// Cols returns the column count.
func (m *Int) Cols() int { return int(m.cols) }

// Clear zeroes every cell.
func (m *Int) Clear() {
	for i := range m.v {
		m.v[i] = 0
	}
}

// ClearRow zeroes a single row.  Out-of-bounds rows are ignored.
func (m *Int) ClearRow(row int) {
	if row < 0 || row >= int(m.rows) {
		return
	}
	base := row * int(m.cols)
	for i := base; i < base+int(m.cols); i++ {
		m.v[i] = 0
	}
}

func (m *Int) inBounds(row, col int) bool {
	return row >= 0 && row < int(m.rows) && col >= 0 && col < int(m.cols)
}

// saturate clamps a 64-bit sum to the int32 accumulation range.
func saturate(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32+1 {
		return math.MinInt32 + 1
	}
	return int32(v)
}

// Add adds v to the cell, saturating, and returns the new value.  ok is
// false when the cell is out of bounds, in which case nothing is mutated.
func (m *Int) Add(row, col int, v int32) (int32, bool) {
	if !m.inBounds(row, col) {
		return 0, false
	}
	idx := row*int(m.cols) + col
	nv := saturate(int64(m.v[idx]) + int64(v))
	m.v[idx] = nv
	return nv, true
}

// Set stores v into the cell and returns it.  ok is false when the cell is
// out of bounds.
func (m *Int) Set(row, col int, v int32) (int32, bool) {
	if !m.inBounds(row, col) {
		return 0, false
	}
	m.v[row*int(m.cols)+col] = v
	return v, true
}

// Get returns the cell value.  ok is false when the cell is out of bounds.
func (m *Int) Get(row, col int) (int32, bool) {
	if !m.inBounds(row, col) {
		return 0, false
	}
	return m.v[row*int(m.cols)+col], true
}

// MarshalBinary serializes the matrix: rows, cols, then every cell
// row-major, all little-endian.
func (m *Int) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerLen+len(m.v)*wire.SizeI32)
	off := 0
	wire.PutI32(wire.Cut(&off, buf, wire.SizeI32), m.rows)
	wire.PutI32(wire.Cut(&off, buf, wire.SizeI32), m.cols)
	for _, v := range m.v {
		wire.PutI32(wire.Cut(&off, buf, wire.SizeI32), v)
	}
	return buf, nil
}

// UnmarshalBinary restores the matrix from MarshalBinary output.  The
// receiver's dimensions must match the buffer's.  On any failure the
// receiver is cleared before the error is returned.
func (m *Int) UnmarshalBinary(data []byte) error {
	if len(data) != headerLen+len(m.v)*wire.SizeI32 {
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
		m.v[i] = wire.I32(wire.Cut(&off, data, wire.SizeI32))
	}
	return nil
}
