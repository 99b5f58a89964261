// Package frame holds the dense image buffer type shared by all processing
// stages, plus the region, threshold, mask and projection utilities that
// operate on it.
//
// A Frame is an immutable input to the pipeline: utilities that mutate pixel
// data either operate on a clone or are explicitly documented as in-place.
package frame

// Number covers the element types delivered by upstream camera transports.
type Number interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~float32 | ~float64
}

// Frame is a dense rank-1 or rank-2 pixel array in row-major order.
// A rank-1 profile is represented with Height == 1.
//
// OffsetX/OffsetY locate the frame on the parent sensor and BinX/BinY record
// the binning applied upstream; both are carried through unchanged so result
// coordinates can be mapped back to sensor pixels.
type Frame struct {
	Data    []float64
	Width   int
	Height  int
	OffsetX int
	OffsetY int
	BinX    int
	BinY    int
}

// New returns a zeroed Frame of the given dimensions.
// Non-positive dimensions are a programming error and panic.
func New(width, height int) *Frame {
	if width <= 0 || height <= 0 {
		panic("frame: non-positive dimensions")
	}
	return &Frame{
		Data:   make([]float64, width*height),
		Width:  width,
		Height: height,
		BinX:   1,
		BinY:   1,
	}
}

// FromValues builds a Frame from a row-major slice of any fixed-width
// numeric type. Values are widened to float64 once at the boundary so all
// downstream accumulation happens in double precision.
func FromValues[T Number](vals []T, width, height int) *Frame {
	if width*height != len(vals) {
		panic("frame: dimensions do not match value count")
	}
	f := New(width, height)
	for i, v := range vals {
		f.Data[i] = float64(v)
	}
	return f
}

// Profile builds a rank-1 Frame from a slice of values.
func Profile(vals []float64) *Frame {
	f := New(len(vals), 1)
	copy(f.Data, vals)
	return f
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := *f
	out.Data = make([]float64, len(f.Data))
	copy(out.Data, f.Data)
	return &out
}

// IsProfile reports whether the frame is rank-1.
func (f *Frame) IsProfile() bool { return f.Height == 1 }

// Idx converts (x, y) pixel coordinates to the row-major index.
func (f *Frame) Idx(x, y int) int { return y*f.Width + x }

// At returns the pixel value at (x, y). Bounds are not checked.
func (f *Frame) At(x, y int) float64 { return f.Data[y*f.Width+x] }

// SameShape reports whether two frames have identical dimensions.
func (f *Frame) SameShape(other *Frame) bool {
	return f.Width == other.Width && f.Height == other.Height
}

// Max returns the maximum pixel value. An empty frame cannot occur by
// construction.
func (f *Frame) Max() float64 {
	max := f.Data[0]
	for _, v := range f.Data[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Min returns the minimum pixel value.
func (f *Frame) Min() float64 {
	min := f.Data[0]
	for _, v := range f.Data[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Sum returns the total intensity, accumulated in double precision.
func (f *Frame) Sum() float64 {
	var total float64
	for _, v := range f.Data {
		total += v
	}
	return total
}
