// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package wire provides the little-endian fixed-width primitives shared by
// every serializable structure in this repository.  The on-wire formats are
// frameless concatenations of these primitives: no magic, no length prefix,
// no version byte.  Structural parameters live in the receiving object, not
// in the buffer.
package wire

import (
	"encoding/binary"
	"math"
)

// Fixed widths, in bytes.
const (
	SizeU16 = 2
	SizeU32 = 4
	SizeU64 = 8
	SizeI32 = 4
	SizeF32 = 4
	SizeF64 = 8
)

// PutU16 encodes v into the first two bytes of b.
func PutU16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }

// U16 decodes the first two bytes of b.
func U16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// PutU32 encodes v into the first four bytes of b.
func PutU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// U32 decodes the first four bytes of b.
func U32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// PutU64 encodes v into the first eight bytes of b.
func PutU64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }

// U64 decodes the first eight bytes of b.
func U64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// PutI32 encodes v two's-complement into the first four bytes of b.
func PutI32(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) }

// I32 decodes the first four bytes of b.
func I32(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }

// PutF32 encodes v IEEE-754 into the first four bytes of b.
func PutF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// F32 decodes the first four bytes of b.
func F32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// PutF64 encodes v IEEE-754 into the first eight bytes of b.
func PutF64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

// F64 decodes the first eight bytes of b.
func F64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// Cut returns s[*offset:*offset+pieceLen], and increments *offset by
// pieceLen.  Writing x := s[*offset:] followed by x = x[:pieceLen] lets the
// compiler drop the spurious bounds-checks a direct two-index slice
// expression would incur when filling a preallocated []byte.
func Cut(offset *int, s []byte, pieceLen int) []byte {
	tmpSlice := s[(*offset):]
	*offset += pieceLen
	return tmpSlice[:pieceLen]
}
