package matrix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInt(t *testing.T) {
	_, err := NewInt(2, 3)
	require.NoError(t, err)
	_, err = NewInt(0, 3)
	assert.Error(t, err)
	_, err = NewInt(3, 0)
	assert.Error(t, err)
}

func TestIntAccess(t *testing.T) {
	m, err := NewInt(2, 3)
	require.NoError(t, err)

	v, ok := m.Get(1, 2)
	assert.True(t, ok)
	assert.Equal(t, int32(0), v)

	v, ok = m.Add(1, 2, 5)
	assert.True(t, ok)
	assert.Equal(t, int32(5), v)
	v, ok = m.Add(1, 2, -8)
	assert.True(t, ok)
	assert.Equal(t, int32(-3), v)
	v, ok = m.Set(1, 2, 42)
	assert.True(t, ok)
	assert.Equal(t, int32(42), v)

	// Out-of-bounds access mutates nothing.
	for _, rc := range [][2]int{{-1, 0}, {2, 0}, {0, -1}, {0, 3}} {
		_, ok = m.Get(rc[0], rc[1])
		assert.False(t, ok)
		_, ok = m.Add(rc[0], rc[1], 1)
		assert.False(t, ok)
		_, ok = m.Set(rc[0], rc[1], 1)
		assert.False(t, ok)
	}
	v, _ = m.Get(1, 2)
	assert.Equal(t, int32(42), v)
}

func TestIntSaturation(t *testing.T) {
	m, err := NewInt(1, 1)
	require.NoError(t, err)

	m.Set(0, 0, math.MaxInt32-1)
	v, _ := m.Add(0, 0, 1)
	assert.Equal(t, int32(math.MaxInt32), v)
	v, _ = m.Add(0, 0, 1)
	assert.Equal(t, int32(math.MaxInt32), v)

	m.Set(0, 0, math.MinInt32+2)
	v, _ = m.Add(0, 0, -1)
	assert.Equal(t, int32(math.MinInt32+1), v)
	v, _ = m.Add(0, 0, -1)
	assert.Equal(t, int32(math.MinInt32+1), v)
}

func TestIntClearRow(t *testing.T) {
	m, err := NewInt(2, 2)
	require.NoError(t, err)
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	m.Set(1, 0, 3)
	m.ClearRow(0)
	m.ClearRow(5) // ignored
	v, _ := m.Get(0, 1)
	assert.Equal(t, int32(0), v)
	v, _ = m.Get(1, 0)
	assert.Equal(t, int32(3), v)
}

func TestFloatUnsetSemantics(t *testing.T) {
	m, err := NewFloat(2, 2)
	require.NoError(t, err)

	v, ok := m.Get(0, 0)
	assert.True(t, ok)
	assert.True(t, math.IsNaN(float64(v)))

	// First add replaces the NaN, later adds accumulate.
	v, _ = m.Add(0, 0, 1.5)
	assert.Equal(t, float32(1.5), v)
	v, _ = m.Add(0, 0, 2.0)
	assert.Equal(t, float32(3.5), v)

	m.ClearRow(0)
	v, _ = m.Get(0, 0)
	assert.True(t, math.IsNaN(float64(v)))

	_, ok = m.Add(2, 0, 1)
	assert.False(t, ok)
}

func TestIntPcc(t *testing.T) {
	m, err := NewInt(4, 4)
	require.NoError(t, err)
	rows := [][]int32{
		{1, 2, 3, 4}, // target
		{2, 4, 6, 8}, // perfectly correlated
		{4, 3, 2, 1}, // perfectly anti-correlated
		{7, 7, 7, 7}, // zero deviation: skipped
	}
	for r, vals := range rows {
		for c, v := range vals {
			m.Set(r, c, v)
		}
	}

	best, corr, ok := m.Pcc(0, PccMax)
	assert.True(t, ok)
	assert.Equal(t, 1, best)
	assert.InDelta(t, 1.0, corr, 1e-12)

	worst, corr, ok := m.Pcc(0, PccMin)
	assert.True(t, ok)
	assert.Equal(t, 2, worst)
	assert.InDelta(t, -1.0, corr, 1e-12)

	// A zero-deviation target has no defined correlation.
	_, _, ok = m.Pcc(3, PccMax)
	assert.False(t, ok)
	_, _, ok = m.Pcc(9, PccMax)
	assert.False(t, ok)
}

func TestPccTiesPreferEarliestRow(t *testing.T) {
	m, err := NewInt(4, 3)
	require.NoError(t, err)
	rows := [][]int32{
		{1, 2, 3},
		{5, 6, 7}, // same correlation as row 2
		{5, 6, 7},
		{9, 8, 7},
	}
	for r, vals := range rows {
		for c, v := range vals {
			m.Set(r, c, v)
		}
	}
	best, _, ok := m.Pcc(0, PccMax)
	assert.True(t, ok)
	assert.Equal(t, 1, best)
}

func TestFloatPccSkipsUnsetRows(t *testing.T) {
	m, err := NewFloat(3, 3)
	require.NoError(t, err)
	for c, v := range []float32{1, 2, 3} {
		m.Set(0, c, v)
	}
	// Row 1 left unset; NaN propagates and the row is skipped.
	for c, v := range []float32{3, 2, 1} {
		m.Set(2, c, v)
	}
	best, corr, ok := m.Pcc(0, PccMax)
	assert.True(t, ok)
	assert.Equal(t, 2, best)
	assert.InDelta(t, -1.0, corr, 1e-12)
}

func TestIntRoundTrip(t *testing.T) {
	src, err := NewInt(2, 3)
	require.NoError(t, err)
	src.Set(0, 0, -7)
	src.Set(1, 2, 9)

	buf, err := src.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, 8+4*6, len(buf))

	dst, err := NewInt(2, 3)
	require.NoError(t, err)
	require.NoError(t, dst.UnmarshalBinary(buf))
	v, _ := dst.Get(0, 0)
	assert.Equal(t, int32(-7), v)
	v, _ = dst.Get(1, 2)
	assert.Equal(t, int32(9), v)

	buf2, err := dst.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, buf, buf2)
}

func TestFloatRoundTrip(t *testing.T) {
	src, err := NewFloat(2, 2)
	require.NoError(t, err)
	src.Set(0, 1, 2.5)

	buf, err := src.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, 8+4*4, len(buf))

	dst, err := NewFloat(2, 2)
	require.NoError(t, err)
	require.NoError(t, dst.UnmarshalBinary(buf))
	v, _ := dst.Get(0, 1)
	assert.Equal(t, float32(2.5), v)
	v, _ = dst.Get(1, 1)
	assert.True(t, math.IsNaN(float64(v))) // unset cells survive the trip
}

func TestIntUnmarshalErrors(t *testing.T) {
	src, err := NewInt(2, 3)
	require.NoError(t, err)
	src.Set(0, 0, 11)
	buf, err := src.MarshalBinary()
	require.NoError(t, err)

	dst, err := NewInt(2, 3)
	require.NoError(t, err)
	dst.Set(1, 1, 5)
	assert.Equal(t, ErrBadLength, dst.UnmarshalBinary(buf[:len(buf)-1]))
	v, _ := dst.Get(1, 1)
	assert.Equal(t, int32(0), v) // reset on failure

	// Same byte size, transposed dimensions.
	transposed, err := NewInt(3, 2)
	require.NoError(t, err)
	assert.Equal(t, ErrMismatchedRows, transposed.UnmarshalBinary(buf))

	bad := make([]byte, len(buf))
	copy(bad, buf)
	bad[4] = 9 // corrupt cols
	assert.Equal(t, ErrMismatchedCols, dst.UnmarshalBinary(bad))
}
