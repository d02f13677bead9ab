// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package stats implements Welford's online computation of the moments of an
// unbounded observation stream in constant space.
package stats

import (
	"math"

	"github.com/grailbio/streamstats/wire"
	"github.com/pkg/errors"
)

// marshaledLen is the serialized size: [count, mean, sum], all float64.
const marshaledLen = 3 * wire.SizeF64

var (
	// ErrBadLength is returned by UnmarshalBinary when the buffer is not
	// exactly marshaledLen bytes.
	ErrBadLength = errors.New("stats: invalid serialization length")
	// ErrBadCount is returned by UnmarshalBinary when the count slot does not
	// hold a non-negative integral value.
	ErrBadCount = errors.New("stats: invalid count")
)

// Running accumulates the count, mean, and sum of squared deviations of the
// values it has seen.  The zero value is ready to use.  count is kept as a
// float64 because the serialized format fixes a double slot for it.
type Running struct {
	count float64
	mean  float64
	sum   float64 // sum of squared deviations from the mean
}

// Add folds x into the accumulator.  NaN and ±Inf are ignored.
func (s *Running) Add(x float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return
	}
	s.count++
	if s.count == 1 {
		s.mean = x
		return
	}
	m := s.mean + (x-s.mean)/s.count
	s.sum += (x - s.mean) * (x - m)
	s.mean = m
}

// Swap replaces one previously-added observation with another, leaving the
// count unchanged.  This is the O(1) sliding-window moment update used when
// walking fixed-length subsequences of a series.  Swap on an empty
// accumulator is a no-op.
func (s *Running) Swap(add, drop float64) {
	if s.count == 0 {
		return
	}
	m := s.mean + (add-drop)/s.count
	s.sum += (add - drop) * (add - m + drop - s.mean)
	s.mean = m
}

// Count returns the number of observations folded in so far.
func (s *Running) Count() int64 { return int64(s.count) }

// Mean returns the running mean, or 0 before the first observation.
func (s *Running) Mean() float64 { return s.mean }

// Variance returns the sample (Bessel-corrected) variance, or 0 when fewer
// than two observations have been added.
func (s *Running) Variance() float64 {
	if s.count < 2 {
		return 0
	}
	return s.sum / (s.count - 1)
}

// SD returns the corrected sample standard deviation.
func (s *Running) SD() float64 { return math.Sqrt(s.Variance()) }

// USD returns the uncorrected (population) standard deviation, or 0 when
// fewer than two observations have been added.
func (s *Running) USD() float64 {
	if s.count < 2 {
		return 0
	}
	return math.Sqrt(s.sum / s.count)
}

// Clear resets the accumulator to its creation state.
func (s *Running) Clear() { *s = Running{} }

// MarshalBinary serializes the accumulator as three little-endian float64s.
func (s *Running) MarshalBinary() ([]byte, error) {
	buf := make([]byte, marshaledLen)
	wire.PutF64(buf, s.count)
	wire.PutF64(buf[wire.SizeF64:], s.mean)
	wire.PutF64(buf[2*wire.SizeF64:], s.sum)
	return buf, nil
}

// UnmarshalBinary restores the accumulator from MarshalBinary output.  On
// any failure the accumulator is reset to its creation state before the
// error is returned.
func (s *Running) UnmarshalBinary(data []byte) error {
	if len(data) != marshaledLen {
		s.Clear()
		return ErrBadLength
	}
	count := wire.F64(data)
	if count < 0 || math.IsInf(count, 0) || count != math.Trunc(count) {
		s.Clear()
		return ErrBadCount
	}
	s.count = count
	s.mean = wire.F64(data[wire.SizeF64:])
	s.sum = wire.F64(data[2*wire.SizeF64:])
	return nil
}
