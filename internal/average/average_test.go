package average

import (
	"math"
	"testing"

	"github.com/European-XFEL/imageproc/internal/frame"
)

func constant(w, h int, v float64) *frame.Frame {
	f := frame.New(w, h)
	for i := range f.Data {
		f.Data[i] = v
	}
	return f
}

func TestBoxcarSlidingWindow(t *testing.T) {
	b := NewBoxcar(3)

	for _, v := range []float64{1, 2, 3} {
		b.Append(constant(2, 2, v))
	}
	mean := b.Mean()
	if math.Abs(mean.Data[0]-2.0) > 1e-12 {
		t.Errorf("mean = %v, want 2.0", mean.Data[0])
	}

	// Window slides: oldest frame (1) drops out.
	b.Append(constant(2, 2, 7))
	mean = b.Mean()
	if math.Abs(mean.Data[0]-4.0) > 1e-12 {
		t.Errorf("mean after slide = %v, want (2+3+7)/3 = 4.0", mean.Data[0])
	}
	if b.Count() != 3 {
		t.Errorf("count = %d, want 3", b.Count())
	}
}

func TestBoxcarPartialWindow(t *testing.T) {
	b := NewBoxcar(10)
	b.Append(constant(1, 1, 4))
	b.Append(constant(1, 1, 6))
	mean := b.Mean()
	if math.Abs(mean.Data[0]-5.0) > 1e-12 {
		t.Errorf("mean = %v, want 5.0 over the 2 frames seen", mean.Data[0])
	}
}

func TestBoxcarShapeChangeResets(t *testing.T) {
	b := NewBoxcar(5)
	b.Append(constant(10, 10, 3))
	b.Append(constant(10, 10, 5))

	// A differently shaped frame must not fail; it restarts the window.
	mean := b.Append(constant(20, 20, 8))
	if mean.Width != 20 || mean.Height != 20 {
		t.Fatalf("mean shape = %dx%d, want 20x20", mean.Width, mean.Height)
	}
	if b.Count() != 1 {
		t.Errorf("count = %d, want 1 after reset", b.Count())
	}
	if math.Abs(mean.Data[0]-8.0) > 1e-12 {
		t.Errorf("mean = %v, want 8.0", mean.Data[0])
	}
}

func TestBoxcarSetWindowRestarts(t *testing.T) {
	b := NewBoxcar(4)
	b.Append(constant(2, 2, 1))
	b.Append(constant(2, 2, 2))

	b.SetWindow(2)
	if b.Count() != 0 || b.Mean() != nil {
		t.Error("changing the window size must discard accumulated samples")
	}

	b.SetWindow(2) // same size: no-op
	b.Append(constant(2, 2, 9))
	if b.Count() != 1 {
		t.Errorf("count = %d, want 1", b.Count())
	}
}

func TestBoxcarClear(t *testing.T) {
	b := NewBoxcar(3)
	b.Append(constant(2, 2, 1))
	b.Clear()
	if b.Count() != 0 || b.Mean() != nil {
		t.Error("Clear must empty the window")
	}
}

func TestBoxcarMeanIsACopy(t *testing.T) {
	b := NewBoxcar(2)
	b.Append(constant(1, 1, 2))
	m1 := b.Mean()
	m1.Data[0] = 99
	if got := b.Mean().Data[0]; got != 2 {
		t.Errorf("internal state mutated through returned mean: %v", got)
	}
}

func TestExponentialFirstFrameExact(t *testing.T) {
	e := NewExponential(8)
	mean := e.Append(constant(3, 3, 41))
	if mean.Data[0] != 41 {
		t.Errorf("first mean = %v, want the first frame exactly", mean.Data[0])
	}
}

func TestExponentialBlend(t *testing.T) {
	e := NewExponential(4) // alpha = 0.25
	e.Append(constant(1, 1, 0))
	mean := e.Append(constant(1, 1, 8))
	if math.Abs(mean.Data[0]-2.0) > 1e-12 {
		t.Errorf("mean = %v, want 0.25*8 = 2.0", mean.Data[0])
	}
	if e.Count() != 2 {
		t.Errorf("count = %d, want 2", e.Count())
	}
}

func TestExponentialShapeChangeResets(t *testing.T) {
	e := NewExponential(4)
	e.Append(constant(10, 10, 5))
	mean := e.Append(constant(20, 20, 3))
	if mean.Width != 20 || mean.Data[0] != 3 {
		t.Errorf("mean = %vx%v value %v, want fresh 20x20 of 3", mean.Width, mean.Height, mean.Data[0])
	}
	if e.Count() != 1 {
		t.Errorf("count = %d, want 1 after reset", e.Count())
	}
}
