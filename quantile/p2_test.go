package quantile

import (
	"math"
	"testing"

	"github.com/grailbio/testutil/expect"
)

// The worked example from Jain & Chlamtac's paper.
var obs = []float64{
	0.02, 0.15, 0.74, 3.39, 0.83, 22.37, 10.15, 15.43, 38.62, 15.92,
	34.60, 10.28, 1.47, 0.40, 0.05, 11.39, 0.27, 0.42, 0.09, 11.37,
}

var wantHeights = []float64{0.02, 0.493895, 4.44063, 17.2039, 38.62}
var wantCounts = []uint64{1, 6, 10, 16, 20}

func TestNewP2(t *testing.T) {
	_, err := NewP2(0.5)
	expect.NoError(t, err)
	_, err = NewP2(1.2)
	expect.NotNil(t, err)
	_, err = NewP2(-0.1)
	expect.NotNil(t, err)
}

func TestP2Median(t *testing.T) {
	p2, err := NewP2(0.5)
	expect.NoError(t, err)

	_, ok := p2.Estimate(2)
	expect.False(t, ok)
	expect.EQ(t, p2.Count(2), uint64(0))

	var last float64
	for i, x := range obs {
		last = p2.Add(x)
		if i < 4 {
			expect.True(t, math.IsNaN(last), "observation %d: %g", i, last)
		}
	}
	expect.True(t, math.Abs(last-wantHeights[2]) < 1e-5, "median: %g", last)

	_, ok = p2.Estimate(5)
	expect.False(t, ok)
	expect.EQ(t, p2.Count(5), uint64(0))

	for m := 0; m < 5; m++ {
		v, ok := p2.Estimate(m)
		expect.True(t, ok)
		expect.True(t, math.Abs(v-wantHeights[m]) < 1e-5, "marker %d: %g", m, v)
		expect.EQ(t, p2.Count(m), wantCounts[m])
	}
}

func TestP2WarmupReturnsSortedMedian(t *testing.T) {
	p2, err := NewP2(0.5)
	expect.NoError(t, err)
	for _, x := range []float64{5, 1, 4, 2} {
		expect.True(t, math.IsNaN(p2.Add(x)))
	}
	// The fifth observation completes the fill; the return value is the
	// median of the sorted initial markers.
	expect.EQ(t, p2.Add(3), 3.0)
}

func TestP2MarkersOrdered(t *testing.T) {
	p2, err := NewP2(0.9)
	expect.NoError(t, err)
	// A deterministic but jumpy sequence.
	x := 0.3
	for i := 0; i < 1000; i++ {
		x = 3.99 * x * (1.0 - x)
		p2.Add(x * 100)
		if i < 4 {
			continue
		}
		prev, _ := p2.Estimate(0)
		prevCount := p2.Count(0)
		for m := 1; m < 5; m++ {
			v, ok := p2.Estimate(m)
			expect.True(t, ok)
			expect.LE(t, prev, v)
			expect.LE(t, prevCount, p2.Count(m))
			prev, prevCount = v, p2.Count(m)
		}
	}
	expect.EQ(t, p2.Count(4), uint64(1000))
}

func TestP2ClearIdempotent(t *testing.T) {
	p2, err := NewP2(0.5)
	expect.NoError(t, err)
	for _, x := range obs {
		p2.Add(x)
	}
	p2.Clear()
	once, err := p2.MarshalBinary()
	expect.NoError(t, err)
	p2.Clear()
	twice, err := p2.MarshalBinary()
	expect.NoError(t, err)
	expect.EQ(t, twice, once)

	fresh, err := NewP2(0.5)
	expect.NoError(t, err)
	fbuf, err := fresh.MarshalBinary()
	expect.NoError(t, err)
	expect.EQ(t, once, fbuf)
}

func TestP2RoundTrip(t *testing.T) {
	src, err := NewP2(0.5)
	expect.NoError(t, err)
	for _, x := range obs {
		src.Add(x)
	}
	buf, err := src.MarshalBinary()
	expect.NoError(t, err)
	expect.EQ(t, len(buf), 2+4+3*5*8)

	dst, err := NewP2(0.5)
	expect.NoError(t, err)
	expect.NoError(t, dst.UnmarshalBinary(buf))
	v, ok := dst.Estimate(2)
	expect.True(t, ok)
	expect.True(t, math.Abs(v-wantHeights[2]) < 1e-5, "median: %g", v)

	// Restored state behaves identically going forward.
	expect.EQ(t, dst.Add(7.5), src.Add(7.5))
}

func TestP2UnmarshalErrors(t *testing.T) {
	src, err := NewP2(0.3)
	expect.NoError(t, err)
	buf, err := src.MarshalBinary()
	expect.NoError(t, err)

	dst, err := NewP2(0.3)
	expect.NoError(t, err)
	expect.EQ(t, dst.UnmarshalBinary(buf[:len(buf)-1]), ErrBadLength)

	bad := make([]byte, len(buf))
	copy(bad, buf)
	bad[0] = 6 // fill countdown beyond the marker count
	expect.EQ(t, dst.UnmarshalBinary(bad), ErrBadCount)

	other, err := NewP2(0.5)
	expect.NoError(t, err)
	expect.EQ(t, other.UnmarshalBinary(buf), ErrMismatchedP)

	// Failure leaves the receiver in its creation state.
	fresh, err := NewP2(0.5)
	expect.NoError(t, err)
	fbuf, err := fresh.MarshalBinary()
	expect.NoError(t, err)
	obuf, err := other.MarshalBinary()
	expect.NoError(t, err)
	expect.EQ(t, obuf, fbuf)
}
