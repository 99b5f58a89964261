package frame

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch reports two frames whose dimensions differ where identical
// shapes are required.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrInvalidRegion reports a region of interest that fails the validity
// predicate or exceeds the frame bounds.
var ErrInvalidRegion = errors.New("invalid region")

// ROI is a half-open region [X1,X2) x [Y1,Y2) in frame coordinates.
type ROI struct {
	X1, X2, Y1, Y2 int
}

// Valid reports whether the region satisfies the acceptance predicate:
// both low bounds non-negative and neither high bound below its low bound.
func (r ROI) Valid() bool {
	return r.X1 >= 0 && r.X2 >= r.X1 && r.Y1 >= 0 && r.Y2 >= r.Y1
}

// Width returns the horizontal extent of the region.
func (r ROI) Width() int { return r.X2 - r.X1 }

// Height returns the vertical extent of the region.
func (r ROI) Height() int { return r.Y2 - r.Y1 }

// Threshold suppresses noise ahead of centroiding: every pixel below level
// is replaced by zero. Zero (rather than the frame minimum) keeps suppressed
// pixels weightless in the subsequent centre-of-mass sums.
// With inPlace false the input is left untouched and a clone is returned.
func Threshold(img *Frame, level float64, inPlace bool) *Frame {
	out := img
	if !inPlace {
		out = img.Clone()
	}
	for i, v := range out.Data {
		if v < level {
			out.Data[i] = 0
		}
	}
	return out
}

// SubtractBackground computes img - background clamped at zero: pixels where
// the background meets or exceeds the image become 0, never negative.
// Frames must have identical shapes.
func SubtractBackground(img, background *Frame, inPlace bool) (*Frame, error) {
	if !img.SameShape(background) {
		return nil, fmt.Errorf("subtract background: %dx%d vs %dx%d: %w",
			img.Width, img.Height, background.Width, background.Height, ErrShapeMismatch)
	}
	out := img
	if !inPlace {
		out = img.Clone()
	}
	for i, v := range out.Data {
		if v > background.Data[i] {
			out.Data[i] = v - background.Data[i]
		} else {
			out.Data[i] = 0
		}
	}
	return out, nil
}

// SelectRegion crops the frame to the half-open box roi. The result carries
// an adjusted sensor offset so coordinates remain traceable. Regions that
// fail the validity predicate or extend past the frame bounds are rejected.
func SelectRegion(img *Frame, roi ROI) (*Frame, error) {
	if !roi.Valid() {
		return nil, fmt.Errorf("select region [%d:%d,%d:%d]: %w",
			roi.X1, roi.X2, roi.Y1, roi.Y2, ErrInvalidRegion)
	}
	if roi.X2 > img.Width || roi.Y2 > img.Height {
		return nil, fmt.Errorf("select region [%d:%d,%d:%d] exceeds %dx%d frame: %w",
			roi.X1, roi.X2, roi.Y1, roi.Y2, img.Width, img.Height, ErrInvalidRegion)
	}
	if roi.Width() == 0 || roi.Height() == 0 {
		return nil, fmt.Errorf("select region [%d:%d,%d:%d] is empty: %w",
			roi.X1, roi.X2, roi.Y1, roi.Y2, ErrInvalidRegion)
	}

	out := New(roi.Width(), roi.Height())
	out.OffsetX = img.OffsetX + roi.X1*img.BinX
	out.OffsetY = img.OffsetY + roi.Y1*img.BinY
	out.BinX = img.BinX
	out.BinY = img.BinY
	for y := 0; y < out.Height; y++ {
		src := img.Data[img.Idx(roi.X1, roi.Y1+y):img.Idx(roi.X2, roi.Y1+y)]
		copy(out.Data[y*out.Width:(y+1)*out.Width], src)
	}
	return out, nil
}

// ApplyMask zeroes every pixel whose mask value is <= 0. Mask and image must
// have identical shapes.
func ApplyMask(img, mask *Frame, inPlace bool) (*Frame, error) {
	if !img.SameShape(mask) {
		return nil, fmt.Errorf("apply mask: %dx%d vs %dx%d: %w",
			img.Width, img.Height, mask.Width, mask.Height, ErrShapeMismatch)
	}
	out := img
	if !inPlace {
		out = img.Clone()
	}
	for i := range out.Data {
		if mask.Data[i] <= 0 {
			out.Data[i] = 0
		}
	}
	return out, nil
}

// SubtractPedestal removes the constant offset common to all pixels by
// subtracting the frame minimum in place, but only when the minimum is
// positive. It returns the pedestal that was removed (0 when nothing was).
// Callers own the frame by the time this runs, so in-place is safe.
func SubtractPedestal(img *Frame) float64 {
	min := img.Min()
	if min <= 0 {
		return 0
	}
	for i := range img.Data {
		img.Data[i] -= min
	}
	return min
}
