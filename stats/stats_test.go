package stats

import (
	"math"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func expectSame(t *testing.T, got, want *Running) {
	t.Helper()
	expect.EQ(t, got.Count(), want.Count())
	expect.EQ(t, got.Mean(), want.Mean())
	expect.EQ(t, got.Variance(), want.Variance())
}

func TestRunning(t *testing.T) {
	var s Running
	expect.EQ(t, s.Count(), int64(0))
	expect.EQ(t, s.Mean(), 0.0)
	expect.EQ(t, s.Variance(), 0.0)
	expect.EQ(t, s.SD(), 0.0)
	expect.EQ(t, s.USD(), 0.0)

	s.Add(1)
	expect.EQ(t, s.Count(), int64(1))
	expect.EQ(t, s.Mean(), 1.0)
	expect.EQ(t, s.Variance(), 0.0)

	s.Add(2)
	s.Add(3)
	expect.EQ(t, s.Count(), int64(3))
	expect.EQ(t, s.Mean(), 2.0)
	expect.EQ(t, s.Variance(), 1.0)
	expect.EQ(t, s.SD(), 1.0)
	expect.True(t, math.Abs(s.USD()-0.816497) < 1e-6, "usd: %g", s.USD())
}

func TestRunningIgnoresNonFinite(t *testing.T) {
	var s Running
	s.Add(1)
	s.Add(2)
	s.Add(3)
	before := s

	s.Add(math.Inf(1))
	s.Add(math.NaN())
	s.Add(math.Inf(-1))
	expectSame(t, &s, &before)
}

func TestSwap(t *testing.T) {
	// Swapping 1 out of {1,2,3} and 4 in must yield the moments of {2,3,4}.
	var s Running
	s.Add(1)
	s.Add(2)
	s.Add(3)
	s.Swap(4, 1)

	var want Running
	want.Add(2)
	want.Add(3)
	want.Add(4)
	expect.EQ(t, s.Count(), want.Count())
	expect.True(t, math.Abs(s.Mean()-want.Mean()) < 1e-12, "mean: %g", s.Mean())
	expect.True(t, math.Abs(s.Variance()-want.Variance()) < 1e-12, "variance: %g", s.Variance())

	var empty Running
	empty.Swap(1, 2) // no-op
	expect.EQ(t, empty.Count(), int64(0))
	expect.EQ(t, empty.Mean(), 0.0)
}

func TestClearIdempotent(t *testing.T) {
	var s Running
	s.Add(5)
	s.Clear()
	expectSame(t, &s, &Running{})
	s.Clear()
	expectSame(t, &s, &Running{})
}

func TestRoundTrip(t *testing.T) {
	var s Running
	s.Add(0.5)
	s.Add(-2.25)
	s.Add(17)

	buf, err := s.MarshalBinary()
	expect.NoError(t, err)
	expect.EQ(t, len(buf), 24)

	var r Running
	expect.NoError(t, r.UnmarshalBinary(buf))
	expectSame(t, &r, &s)

	// Serializing the restored copy reproduces the bytes.
	buf2, err := r.MarshalBinary()
	expect.NoError(t, err)
	expect.EQ(t, buf2, buf)
}

func TestUnmarshalErrors(t *testing.T) {
	var s Running
	s.Add(1)
	buf, err := s.MarshalBinary()
	expect.NoError(t, err)

	var r Running
	r.Add(9)
	expect.EQ(t, r.UnmarshalBinary(buf[:len(buf)-1]), ErrBadLength)
	expectSame(t, &r, &Running{}) // reset on failure

	// A negative count is rejected.
	bad := make([]byte, len(buf))
	copy(bad, buf)
	bad[7] |= 0x80
	expect.EQ(t, r.UnmarshalBinary(bad), ErrBadCount)
	expectSame(t, &r, &Running{})

	// A fractional count is rejected.
	var frac Running
	frac.Add(1)
	frac.Add(2)
	fbuf, err := frac.MarshalBinary()
	expect.NoError(t, err)
	fbuf[0] = 1
	expect.EQ(t, r.UnmarshalBinary(fbuf), ErrBadCount)
	expectSame(t, &r, &Running{})
}
