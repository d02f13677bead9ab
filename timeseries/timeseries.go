// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package timeseries implements a fixed-span circular buffer of int32
// observations keyed by nanosecond wall-clock timestamp, with chronological
// merging, windowed aggregation, and a SCRIMP-style matrix-profile anomaly
// analysis over a contiguous window of the buffer.
package timeseries

import (
	"math"

	"github.com/grailbio/streamstats/wire"
	"github.com/pkg/errors"
)

var (
	// ErrBadLength is returned by UnmarshalBinary when the buffer size does
	// not match the receiver's row count.
	ErrBadLength = errors.New("timeseries: invalid serialization length")
	// ErrMismatchedResolution is returned by UnmarshalBinary when the buffer
	// was produced with a different ns-per-row than the receiver's.
	ErrMismatchedResolution = errors.New("timeseries: mismatched ns per row")
	// ErrMismatchedRows is returned by UnmarshalBinary when the buffer was
	// produced with a different row count than the receiver's.
	ErrMismatchedRows = errors.New("timeseries: mismatched rows")
)

// headerLen is the serialized size of current_time, ns_per_row, and rows.
const headerLen = 2*wire.SizeU64 + wire.SizeI32

// Int is a circular buffer of rows int32 slots, each spanning nsPerRow
// nanoseconds.  The slot for timestamp t is (t/nsPerRow) mod rows whenever t
// lies within the buffer's span.  At birth the buffer covers
// [0, nsPerRow*(rows-1)] inclusive, all zeros.
type Int struct {
	currentTime uint64 // timestamp of the most recent row, aligned to nsPerRow
	nsPerRow    uint64
	rows        int32
	v           []int32
}

// NewInt returns a series of rows slots at nsPerRow resolution.  Fewer than
// two rows or a zero resolution is rejected.
func NewInt(rows int, nsPerRow uint64) (*Int, error) {
	if rows < 2 {
		return nil, errors.Errorf("timeseries: rows %d must be > 1", rows)
	}
	if nsPerRow < 1 {
		return nil, errors.Errorf("timeseries: ns per row must be > 0")
	}
	ts := &Int{nsPerRow: nsPerRow, rows: int32(rows), v: make([]int32, rows)}
	ts.Clear()
	return ts, nil
}

// Rows returns the buffer length in rows.
func (ts *Int) Rows() int { return int(ts.rows) }

// NsPerRow returns the row resolution in nanoseconds.
func (ts *Int) NsPerRow() uint64 { return ts.nsPerRow }

// Timestamp returns the timestamp of the most recent row.
func (ts *Int) Timestamp() uint64 { return ts.currentTime }

// Clear resets the series to its creation state.
func (ts *Int) Clear() {
	ts.currentTime = ts.nsPerRow * uint64(ts.rows-1)
	for i := range ts.v {
		ts.v[i] = 0
	}
}

// findIndex resolves a timestamp to a slot index, or -1 when the timestamp
// is out of range.  With advance set, a future timestamp rotates the buffer
// forward: every slot between the old and the new current position is
// zeroed (all of them when the jump spans the whole buffer) and currentTime
// moves to ns rounded down to the row boundary.
func (ts *Int) findIndex(ns uint64, advance bool) int {
	currentRow := int64(ts.currentTime / ts.nsPerRow)
	requestedRow := int64(ns / ts.nsPerRow)
	rowDelta := requestedRow - currentRow
	rows := int64(ts.rows)

	if rowDelta > 0 && advance {
		if rowDelta >= rows {
			for i := range ts.v {
				ts.v[i] = 0
			}
		} else {
			oidx := currentRow%rows + 1
			if oidx == rows {
				oidx = 0
			}
			end := oidx + rowDelta
			if end > rows {
				end = rows
			}
			for i := oidx; i < end; i++ {
				ts.v[i] = 0
			}
			for i := int64(0); i < oidx+rowDelta-rows; i++ {
				ts.v[i] = 0
			}
		}
		ts.currentTime = ns - ns%ts.nsPerRow
	} else if rowDelta > 0 || -rowDelta >= rows {
		return -1
	}
	return int(requestedRow % rows)
}

// tsidx maps a zero-based offset from a resolved base slot back into the
// circular buffer.
func (ts *Int) tsidx(j, base int) int {
	return (j + base) % int(ts.rows)
}

// saturate clamps a 64-bit sum to the int32 accumulation range.  MinInt32
// is reserved for legacy absent-value sentinels.
func saturate(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32+1 {
		return math.MinInt32 + 1
	}
	return int32(v)
}

// Add adds v to the row for ns, advancing the buffer when ns is beyond the
// current position, and returns the new row value.  ok is false when ns
// lies before the buffer's span, in which case nothing is mutated.
func (ts *Int) Add(ns uint64, v int32) (int32, bool) {
	idx := ts.findIndex(ns, true)
	if idx == -1 {
		return 0, false
	}
	nv := saturate(int64(ts.v[idx]) + int64(v))
	ts.v[idx] = nv
	return nv, true
}

// Set stores v into the row for ns, advancing the buffer when ns is beyond
// the current position.  ok is false when ns lies before the buffer's span.
func (ts *Int) Set(ns uint64, v int32) (int32, bool) {
	idx := ts.findIndex(ns, true)
	if idx == -1 {
		return 0, false
	}
	ts.v[idx] = v
	return v, true
}

// Get returns the row value for ns without advancing the buffer.  ok is
// false for any future timestamp or one before the buffer's span.
func (ts *Int) Get(ns uint64) (int32, bool) {
	idx := ts.findIndex(ns, false)
	if idx == -1 {
		return 0, false
	}
	return ts.v[idx], true
}

// MergeOp selects how Merge replays source rows into the destination.
type MergeOp int

const (
	// MergeAdd accumulates each source row into the destination.
	MergeAdd MergeOp = iota
	// MergeSet overwrites each destination row with the source row.
	MergeSet
)

// Merge replays every row of src into ts in chronological order, oldest
// first, using the chosen operation.  The destination resolution must not
// be coarser than the source's.
func (ts *Int) Merge(src *Int, op MergeOp) error {
	if ts.nsPerRow > src.nsPerRow {
		return errors.Errorf("timeseries: destination resolution %d coarser than source %d",
			ts.nsPerRow, src.nsPerRow)
	}
	rows := int64(src.rows)
	srcRow := int64(src.currentTime / src.nsPerRow)
	for i := int64(1); i <= rows; i++ {
		idx := (srcRow + i) % rows
		ns := src.currentTime - uint64(rows-i)*src.nsPerRow
		switch op {
		case MergeAdd:
			ts.Add(ns, src.v[idx])
		case MergeSet:
			ts.Set(ns, src.v[idx])
		}
	}
	return nil
}

// MarshalBinary serializes the series: current_time, ns_per_row, rows, then
// every slot in index order, all little-endian.
func (ts *Int) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerLen+len(ts.v)*wire.SizeI32)
	off := 0
	wire.PutU64(wire.Cut(&off, buf, wire.SizeU64), ts.currentTime)
	wire.PutU64(wire.Cut(&off, buf, wire.SizeU64), ts.nsPerRow)
	wire.PutI32(wire.Cut(&off, buf, wire.SizeI32), ts.rows)
	for _, v := range ts.v {
		wire.PutI32(wire.Cut(&off, buf, wire.SizeI32), v)
	}
	return buf, nil
}

// UnmarshalBinary restores the series from MarshalBinary output.  The
// receiver's resolution and row count must match the buffer's.  On any
// failure the receiver is reset to its creation state before the error is
// returned.
func (ts *Int) UnmarshalBinary(data []byte) error {
	if len(data) != headerLen+len(ts.v)*wire.SizeI32 {
		ts.Clear()
		return ErrBadLength
	}
	off := 0
	currentTime := wire.U64(wire.Cut(&off, data, wire.SizeU64))
	if wire.U64(wire.Cut(&off, data, wire.SizeU64)) != ts.nsPerRow {
		ts.Clear()
		return ErrMismatchedResolution
	}
	if wire.I32(wire.Cut(&off, data, wire.SizeI32)) != ts.rows {
		ts.Clear()
		return ErrMismatchedRows
	}
	ts.currentTime = currentTime
	for i := range ts.v {
		ts.v[i] = wire.I32(wire.Cut(&off, data, wire.SizeI32))
	}
	return nil
}
