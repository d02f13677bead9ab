package quantile

import (
	"math"
	"sort"

	"github.com/grailbio/streamstats/wire"
	"github.com/pkg/errors"
)

// Histogram is the P² algorithm generalized to b+1 markers, yielding an
// adaptive histogram of b equi-probable buckets.  The desired marker
// positions are implicit: marker i wants to sit at 1 + i*(total-1)/b.
type Histogram struct {
	b   int
	cnt uint16 // initial observations still required before estimates exist
	// data holds the marker heights q[0..b] followed by the marker positions
	// n[0..b], matching the serialized layout.
	data []float64
}

// NewHistogram returns a histogram with the given bucket count.  Bucket
// counts below 4 or above 65534 are rejected.
func NewHistogram(buckets int) (*Histogram, error) {
	if buckets < 4 || buckets > math.MaxUint16-1 {
		return nil, errors.Errorf("quantile: bucket count %d out of range", buckets)
	}
	h := &Histogram{b: buckets, data: make([]float64, 2*(buckets+1))}
	h.Clear()
	return h, nil
}

// Buckets returns the bucket count.
func (h *Histogram) Buckets() int { return h.b }

// Clear resets the histogram to its creation state.
func (h *Histogram) Clear() {
	h.cnt = uint16(h.b + 1)
	q := h.data[:h.b+1]
	n := h.data[h.b+1:]
	for i := range q {
		q[i] = 0
		n[i] = float64(i + 1)
	}
}

// Add folds x into the histogram.  The first b+1 observations are collected
// verbatim and sorted once the last one arrives; afterwards the markers
// track the equi-probable bucket boundaries.
func (h *Histogram) Add(x float64) {
	if h.cnt > 0 {
		h.cnt--
		h.data[h.cnt] = x
		if h.cnt == 0 {
			sort.Float64s(h.data[:h.b+1])
		}
		return
	}

	q := h.data[:h.b+1]
	n := h.data[h.b+1:]
	k := 0
	if x < q[0] {
		q[0] = x
		k = 1
	} else {
		for i := 0; i < h.b-1; i++ {
			if q[i] <= x && x < q[i+1] {
				k = i + 1
				break
			}
		}
	}
	if k == 0 {
		if q[h.b-1] <= x && x <= q[h.b] {
			k = h.b
		} else if q[h.b] < x {
			q[h.b] = x
			k = h.b
		}
	}

	for i := k; i <= h.b; i++ {
		n[i]++
	}

	fb := float64(h.b)
	for i := 1; i < h.b; i++ {
		adjust(i, 1+float64(i)*(n[h.b]-1)/fb, q, n)
	}
}

// Estimate returns the height of the given marker, in [0, Buckets()].  ok is
// false for an out-of-range marker or before warm-up completes.
func (h *Histogram) Estimate(marker int) (v float64, ok bool) {
	if marker < 0 || marker > h.b || h.cnt != 0 {
		return 0, false
	}
	return h.data[marker], true
}

// Count returns the number of observations at or below the given marker, or
// 0 for an out-of-range marker or before warm-up completes.
func (h *Histogram) Count(marker int) uint64 {
	if marker < 0 || marker > h.b || h.cnt != 0 {
		return 0
	}
	return uint64(h.data[h.b+1+marker])
}

func (h *Histogram) marshaledLen() int {
	return wire.SizeU16 + len(h.data)*wire.SizeF64
}

// MarshalBinary serializes the histogram.
func (h *Histogram) MarshalBinary() ([]byte, error) {
	buf := make([]byte, h.marshaledLen())
	off := 0
	wire.PutU16(wire.Cut(&off, buf, wire.SizeU16), h.cnt)
	for _, v := range h.data {
		wire.PutF64(wire.Cut(&off, buf, wire.SizeF64), v)
	}
	return buf, nil
}

// UnmarshalBinary restores the histogram from MarshalBinary output.  The
// receiver must have been created with the same bucket count the buffer was
// produced with; a buffer of any other bucket count is indistinguishable
// from garbage and fails the length check.  On any failure the receiver is
// reset to its creation state before the error is returned.
func (h *Histogram) UnmarshalBinary(data []byte) error {
	if len(data) != h.marshaledLen() {
		h.Clear()
		return ErrBadLength
	}
	off := 0
	cnt := wire.U16(wire.Cut(&off, data, wire.SizeU16))
	if int(cnt) > h.b+1 {
		h.Clear()
		return ErrBadCount
	}
	h.cnt = cnt
	for i := range h.data {
		h.data[i] = wire.F64(wire.Cut(&off, data, wire.SizeF64))
	}
	return nil
}
