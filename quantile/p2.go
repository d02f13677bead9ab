package quantile

import (
	"math"
	"sort"

	"github.com/grailbio/streamstats/wire"
	"github.com/pkg/errors"
)

// p2Markers is the fixed marker count of the single-quantile tracker.
const p2Markers = 5

// p2MarshaledLen is the serialized size: cnt:u16, p:f32, then q, n, and the
// desired positions, each p2Markers float64s.
const p2MarshaledLen = wire.SizeU16 + wire.SizeF32 + 3*p2Markers*wire.SizeF64

var (
	// ErrBadLength is returned by UnmarshalBinary when the buffer size does
	// not match the receiver's serialized size.
	ErrBadLength = errors.New("quantile: invalid serialization length")
	// ErrBadCount is returned by UnmarshalBinary when the warm-up countdown
	// in the buffer exceeds the marker count.
	ErrBadCount = errors.New("quantile: invalid fill count")
	// ErrMismatchedP is returned by P2.UnmarshalBinary when the buffer was
	// produced for a different target quantile than the receiver's.
	ErrMismatchedP = errors.New("quantile: mismatched target quantile")
)

// P2 tracks a single quantile p of an unbounded stream using five markers.
// The target quantile is fixed at creation.
//
// p is kept as a float32 because the serialized format fixes a 4-byte slot
// for it; widening it would change the equality check on load.
type P2 struct {
	p   float32
	cnt uint16 // initial observations still required before estimates exist
	q   [p2Markers]float64
	n   [p2Markers]float64
	n1  [p2Markers]float64 // desired marker positions
}

// NewP2 returns a tracker for quantile p.  p outside [0, 1] is rejected.
func NewP2(p float64) (*P2, error) {
	if p < 0 || p > 1 {
		return nil, errors.Errorf("quantile: p %g out of range", p)
	}
	p2 := &P2{p: float32(p)}
	p2.Clear()
	return p2, nil
}

// P returns the target quantile.
func (p2 *P2) P() float64 { return float64(p2.p) }

// Clear resets the tracker to its creation state.
func (p2 *P2) Clear() {
	p := float64(p2.p)
	p2.cnt = p2Markers
	p2.q = [p2Markers]float64{}
	p2.n = [p2Markers]float64{1, 2, 3, 4, 5}
	p2.n1 = [p2Markers]float64{1, 1 + 2*p, 1 + 4*p, 3 + 2*p, 5}
}

// Add folds x into the tracker and returns the current estimate of the
// target quantile (the middle marker height).  While the first five
// observations are being collected the estimate does not exist yet and NaN
// is returned; the fifth Add sorts the markers and returns the first real
// estimate.
func (p2 *P2) Add(x float64) float64 {
	if p2.cnt > 0 {
		p2.cnt--
		p2.q[p2.cnt] = x
		if p2.cnt == 0 {
			sort.Float64s(p2.q[:])
			return p2.q[2]
		}
		return math.NaN()
	}

	q, n := p2.q[:], p2.n[:]
	var k int
	switch {
	case x < q[0]:
		q[0] = x
		k = 1
	case x < q[1]:
		k = 1
	case x < q[2]:
		k = 2
	case x < q[3]:
		k = 3
	case x <= q[4]:
		k = 4
	case q[4] < x:
		q[4] = x
		k = 4
	}
	for i := k; i < p2Markers; i++ {
		n[i]++
	}

	p := float64(p2.p)
	p2.n1[1] += p / 2
	p2.n1[2] += p
	p2.n1[3] += (1 + p) / 2
	p2.n1[4]++

	for i := 1; i < p2Markers-1; i++ {
		adjust(i, p2.n1[i], q, n)
	}
	return q[2]
}

// Estimate returns the height of the given marker.  Marker 0 is the running
// minimum, marker 4 the running maximum, marker 2 the target quantile.  ok
// is false for an out-of-range marker or before warm-up completes.
func (p2 *P2) Estimate(marker int) (v float64, ok bool) {
	if marker < 0 || marker >= p2Markers || p2.cnt != 0 {
		return 0, false
	}
	return p2.q[marker], true
}

// Count returns the number of observations at or below the given marker, or
// 0 for an out-of-range marker or before warm-up completes.  Count(4) is the
// total number of observations.
func (p2 *P2) Count(marker int) uint64 {
	if marker < 0 || marker >= p2Markers || p2.cnt != 0 {
		return 0
	}
	return uint64(p2.n[marker])
}

// MarshalBinary serializes the tracker.
func (p2 *P2) MarshalBinary() ([]byte, error) {
	buf := make([]byte, p2MarshaledLen)
	off := 0
	wire.PutU16(wire.Cut(&off, buf, wire.SizeU16), p2.cnt)
	wire.PutF32(wire.Cut(&off, buf, wire.SizeF32), p2.p)
	for i := 0; i < p2Markers; i++ {
		wire.PutF64(wire.Cut(&off, buf, wire.SizeF64), p2.q[i])
	}
	for i := 0; i < p2Markers; i++ {
		wire.PutF64(wire.Cut(&off, buf, wire.SizeF64), p2.n[i])
	}
	for i := 0; i < p2Markers; i++ {
		wire.PutF64(wire.Cut(&off, buf, wire.SizeF64), p2.n1[i])
	}
	return buf, nil
}

// UnmarshalBinary restores the tracker from MarshalBinary output.  The
// receiver's target quantile must match the one the buffer was produced
// with.  On any failure the receiver is reset to its creation state before
// the error is returned.
func (p2 *P2) UnmarshalBinary(data []byte) error {
	if len(data) != p2MarshaledLen {
		p2.Clear()
		return ErrBadLength
	}
	off := 0
	cnt := wire.U16(wire.Cut(&off, data, wire.SizeU16))
	if cnt > p2Markers {
		p2.Clear()
		return ErrBadCount
	}
	if wire.F32(wire.Cut(&off, data, wire.SizeF32)) != p2.p {
		p2.Clear()
		return ErrMismatchedP
	}
	p2.cnt = cnt
	for i := 0; i < p2Markers; i++ {
		p2.q[i] = wire.F64(wire.Cut(&off, data, wire.SizeF64))
	}
	for i := 0; i < p2Markers; i++ {
		p2.n[i] = wire.F64(wire.Cut(&off, data, wire.SizeF64))
	}
	for i := 0; i < p2Markers; i++ {
		p2.n1[i] = wire.F64(wire.Cut(&off, data, wire.SizeF64))
	}
	return nil
}
