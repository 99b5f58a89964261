// Package average maintains incremental means over a stream of frames.
//
// Two variants are provided: a boxcar averager over a true sliding window of
// the last N frames, and an exponential averager that only remembers the
// previous mean. Both reset themselves when the incoming frame shape changes
// rather than failing, since a shape change means the upstream region of
// interest was reconfigured.
package average

import (
	"github.com/European-XFEL/imageproc/internal/frame"
)

// Boxcar keeps the mean of the last N frames. Reconfiguring N mid-stream
// restarts the window; samples accumulated under the old window size are
// discarded.
type Boxcar struct {
	n     int
	ring  []*frame.Frame
	next  int
	count int
	sum   *frame.Frame
}

// NewBoxcar creates a boxcar averager over a window of n frames.
// n must be >= 1; a violation is a programming error and panics.
func NewBoxcar(n int) *Boxcar {
	if n < 1 {
		panic("average: window size must be >= 1")
	}
	return &Boxcar{n: n, ring: make([]*frame.Frame, n)}
}

// Append folds one frame into the window and returns the current mean.
// A frame whose shape differs from the accumulated state resets the window
// first.
func (b *Boxcar) Append(f *frame.Frame) *frame.Frame {
	if b.sum != nil && !b.sum.SameShape(f) {
		b.Clear()
	}
	if b.sum == nil {
		b.sum = frame.New(f.Width, f.Height)
		b.sum.OffsetX, b.sum.OffsetY = f.OffsetX, f.OffsetY
		b.sum.BinX, b.sum.BinY = f.BinX, f.BinY
	}

	if b.count == b.n {
		oldest := b.ring[b.next]
		for i, v := range oldest.Data {
			b.sum.Data[i] -= v
		}
	} else {
		b.count++
	}
	b.ring[b.next] = f.Clone()
	for i, v := range f.Data {
		b.sum.Data[i] += v
	}
	b.next = (b.next + 1) % b.n

	return b.Mean()
}

// SetWindow reconfigures the window size. A change restarts the window;
// setting the same size is a no-op. n must be >= 1.
func (b *Boxcar) SetWindow(n int) {
	if n < 1 {
		panic("average: window size must be >= 1")
	}
	if n == b.n {
		return
	}
	b.n = n
	b.ring = make([]*frame.Frame, n)
	b.next = 0
	b.count = 0
	b.sum = nil
}

// Count returns the number of frames currently in the window.
func (b *Boxcar) Count() int { return b.count }

// Mean returns the current window mean, or nil when the window is empty.
func (b *Boxcar) Mean() *frame.Frame {
	if b.count == 0 {
		return nil
	}
	mean := b.sum.Clone()
	inv := 1.0 / float64(b.count)
	for i := range mean.Data {
		mean.Data[i] *= inv
	}
	return mean
}

// Clear empties the window.
func (b *Boxcar) Clear() {
	for i := range b.ring {
		b.ring[i] = nil
	}
	b.next = 0
	b.count = 0
	b.sum = nil
}

// Exponential maintains mean_t = alpha*frame_t + (1-alpha)*mean_{t-1} with
// alpha = 1/N. The first frame initialises the mean exactly, with no partial
// blending.
type Exponential struct {
	n     int
	mean  *frame.Frame
	count int
}

// NewExponential creates an exponential averager with alpha = 1/n.
func NewExponential(n int) *Exponential {
	if n < 1 {
		panic("average: window size must be >= 1")
	}
	return &Exponential{n: n}
}

// Append folds one frame into the mean and returns the updated mean.
// A shape change resets the averager to the new frame.
func (e *Exponential) Append(f *frame.Frame) *frame.Frame {
	if e.mean != nil && !e.mean.SameShape(f) {
		e.Clear()
	}
	if e.mean == nil {
		e.mean = f.Clone()
		e.count = 1
		return e.mean.Clone()
	}

	alpha := 1.0 / float64(e.n)
	for i, v := range f.Data {
		e.mean.Data[i] = alpha*v + (1-alpha)*e.mean.Data[i]
	}
	e.count++
	return e.mean.Clone()
}

// Count returns the number of frames folded in since the last reset.
func (e *Exponential) Count() int { return e.count }

// Mean returns the current mean, or nil before the first frame.
func (e *Exponential) Mean() *frame.Frame {
	if e.mean == nil {
		return nil
	}
	return e.mean.Clone()
}

// Clear resets the averager.
func (e *Exponential) Clear() {
	e.mean = nil
	e.count = 0
}
