// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package sketch implements a count-min sketch over byte-string items with
// conservative update, removal support, and unique-item tracking.
package sketch

import (
	"math"

	farm "github.com/dgryski/go-farm"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/streamstats/wire"
	"github.com/pkg/errors"
)

// ErrBadLength is returned by UnmarshalBinary when the buffer size does not
// match the receiver's width×depth geometry.
var ErrBadLength = errors.New("sketch: invalid serialization length")

// headerLen is the serialized size of item_count and unique_count.
const headerLen = 2 * wire.SizeU64

// CountMin is a count-min sketch: a depth×width grid of saturating uint32
// counters.  Point queries never under-count an item, and with probability
// 1-delta over-count by at most epsilon times the total mass.
type CountMin struct {
	width       uint32
	depth       uint32
	itemCount   uint64
	uniqueCount uint64
	counts      []uint32 // row-major, depth rows of width counters
}

// New returns a sketch sized for the given error bound epsilon and failure
// probability delta, both of which must lie in (0, 1): width = ceil(e/eps),
// depth = ceil(ln(1/delta)).
func New(epsilon, delta float64) (*CountMin, error) {
	if epsilon <= 0 || epsilon >= 1 {
		return nil, errors.Errorf("sketch: epsilon %g out of range", epsilon)
	}
	if delta <= 0 || delta >= 1 {
		return nil, errors.Errorf("sketch: delta %g out of range", delta)
	}
	w := math.Ceil(math.E / epsilon)
	d := math.Ceil(math.Log(1 / delta))
	if w*d > math.MaxInt32 {
		return nil, errors.Errorf("sketch: %g counters exceed addressable size", w*d)
	}
	return &CountMin{
		width:  uint32(w),
		depth:  uint32(d),
		counts: make([]uint32, int(w)*int(d)),
	}, nil
}

// Width returns the number of counters per row.
func (c *CountMin) Width() int { return int(c.width) }

// Depth returns the number of rows.
func (c *CountMin) Depth() int { return int(c.depth) }

// ItemCount returns the total net mass added to the sketch.
func (c *CountMin) ItemCount() uint64 { return c.itemCount }

// UniqueCount returns the number of items whose estimate is above zero.
func (c *CountMin) UniqueCount() uint64 { return c.uniqueCount }

// Clear resets the sketch to its creation state.
func (c *CountMin) Clear() {
	c.itemCount = 0
	c.uniqueCount = 0
	for i := range c.counts {
		c.counts[i] = 0
	}
}

// col returns the row-i column using enhanced double hashing.  The
// i² term is deliberate: it must be preserved for compatibility with
// serialized sketches.
func (c *CountMin) col(h1, h2, i uint32) uint32 {
	return (h1 + i*h2 + i*i) % c.width
}

// Update adjusts the mass of key by n and returns the resulting estimate.
// Positive n applies a conservative update (each counter rises only as far
// as estimate+n, saturating at MaxUint32); negative n removes up to the
// current estimate from every row.  n == 0 is a pure query.
func (c *CountMin) Update(key []byte, n int32) uint32 {
	h1 := farm.Hash32WithSeed(key, 1)
	h2 := farm.Hash32WithSeed(key, 2)

	est := uint32(math.MaxUint32)
	for i := uint32(0); i < c.depth; i++ {
		if cnt := c.counts[i*c.width+c.col(h1, h2, i)]; cnt < est {
			est = cnt
		}
	}

	switch {
	case n > 0:
		if est == 0 {
			c.uniqueCount++
		}
		var added uint32
		for i := uint32(0); i < c.depth; i++ {
			idx := i*c.width + c.col(h1, h2, i)
			cnt := c.counts[idx]
			inc := uint32(n)
			if math.MaxUint32-cnt < inc {
				inc = math.MaxUint32 - cnt
			}
			if v := est + inc; v > cnt {
				c.counts[idx] = v
			}
			if inc > added {
				added = inc
			}
		}
		c.itemCount += uint64(added)
		return est + added
	case n < 0 && est != 0:
		r := uint32(-int64(n))
		if r >= est {
			r = est
			c.uniqueCount--
		}
		for i := uint32(0); i < c.depth; i++ {
			c.counts[i*c.width+c.col(h1, h2, i)] -= r
		}
		c.itemCount -= uint64(r)
		return est - r
	}
	return est
}

// PointQuery returns the estimated mass of key.
func (c *CountMin) PointQuery(key []byte) uint32 { return c.Update(key, 0) }

// UpdateString is Update for a string key, without copying the key bytes.
func (c *CountMin) UpdateString(key string, n int32) uint32 {
	return c.Update(gunsafe.StringToBytes(key), n)
}

// PointQueryString is PointQuery for a string key.
func (c *CountMin) PointQueryString(key string) uint32 {
	return c.UpdateString(key, 0)
}

// MarshalBinary serializes the sketch: item_count, unique_count, then every
// counter row-major, all little-endian.
func (c *CountMin) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerLen+len(c.counts)*wire.SizeU32)
	off := 0
	wire.PutU64(wire.Cut(&off, buf, wire.SizeU64), c.itemCount)
	wire.PutU64(wire.Cut(&off, buf, wire.SizeU64), c.uniqueCount)
	for _, cnt := range c.counts {
		wire.PutU32(wire.Cut(&off, buf, wire.SizeU32), cnt)
	}
	return buf, nil
}

// UnmarshalBinary restores the sketch from MarshalBinary output.  The
// receiver must have been created with the same epsilon/delta geometry the
// buffer was produced with.  On failure the receiver is reset to its
// creation state before the error is returned.
func (c *CountMin) UnmarshalBinary(data []byte) error {
	if len(data) != headerLen+len(c.counts)*wire.SizeU32 {
		c.Clear()
		return ErrBadLength
	}
	off := 0
	c.itemCount = wire.U64(wire.Cut(&off, data, wire.SizeU64))
	c.uniqueCount = wire.U64(wire.Cut(&off, data, wire.SizeU64))
	for i := range c.counts {
		c.counts[i] = wire.U32(wire.Cut(&off, data, wire.SizeU32))
	}
	return nil
}
