package fit

import (
	"math"

	"github.com/European-XFEL/imageproc/internal/frame"
)

// AutoRange derives the fit window around a centroid: centre +/- sigmas
// standard deviations per axis, clamped to the image bounds and widened to
// at least minRange pixels. Widening is symmetric where possible; against
// an image edge the window grows only from the available side.
func AutoRange(x0, y0, sx, sy, sigmas float64, width, height, minRange int) frame.ROI {
	x1, x2 := autoRangeAxis(x0, sx, sigmas, width, minRange)
	y1, y2 := autoRangeAxis(y0, sy, sigmas, height, minRange)
	return frame.ROI{X1: x1, X2: x2, Y1: y1, Y2: y2}
}

// AutoRange1D is the single-axis variant used for profile fits.
func AutoRange1D(x0, sx, sigmas float64, width, minRange int) (lo, hi int) {
	return autoRangeAxis(x0, sx, sigmas, width, minRange)
}

func autoRangeAxis(c, s, sigmas float64, size, minRange int) (lo, hi int) {
	if minRange > size {
		minRange = size
	}

	lo = int(math.Floor(c - sigmas*s))
	hi = int(math.Ceil(c + sigmas*s))
	if lo < 0 {
		lo = 0
	}
	if hi > size {
		hi = size
	}

	if need := minRange - (hi - lo); need > 0 {
		lo -= need / 2
		hi += need - need/2
		// Push any overshoot to the opposite side.
		if lo < 0 {
			hi -= lo
			lo = 0
		}
		if hi > size {
			lo -= hi - size
			hi = size
			if lo < 0 {
				lo = 0
			}
		}
	}
	return lo, hi
}
