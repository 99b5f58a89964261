// Package centroid estimates the weighted centre of mass and spread of a
// thresholded intensity distribution.
//
// Degenerate input (total weight zero, e.g. a fully suppressed frame) is
// reported as ErrDegenerateInput. NaN is never returned: the orchestrator
// maps the error to zeroed outputs and a health event.
package centroid

import (
	"errors"
	"math"

	"github.com/European-XFEL/imageproc/internal/frame"
)

// ErrDegenerateInput reports a distribution with no positive weight.
var ErrDegenerateInput = errors.New("degenerate input: total weight is zero")

// Result holds the centroid and standard deviation per axis.
// For rank-1 input Y0 and SY are zero.
type Result struct {
	X0 float64
	Y0 float64
	SX float64
	SY float64
}

// Profile computes the weighted centroid x0 and standard deviation sx of a
// 1-D profile, using pixel index as the coordinate. Negative weights are
// clipped to zero before summing.
func Profile(weights []float64) (x0, sx float64, err error) {
	var sum, first float64
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		sum += w
		first += w * float64(i)
	}
	if sum == 0 {
		return 0, 0, ErrDegenerateInput
	}
	x0 = first / sum

	var second float64
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		d := float64(i) - x0
		second += w * d * d
	}
	sx = math.Sqrt(second / sum)
	return x0, sx, nil
}

// Image computes the centroid of a rank-2 frame using the full 2-D weight
// map for both axes (not the separable projections). Rank-1 frames fall
// back to Profile.
func Image(img *frame.Frame) (Result, error) {
	if img.IsProfile() {
		x0, sx, err := Profile(img.Data)
		if err != nil {
			return Result{}, err
		}
		return Result{X0: x0, SX: sx}, nil
	}

	var sum, fx, fy float64
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*img.Width : (y+1)*img.Width]
		for x, w := range row {
			if w < 0 {
				w = 0
			}
			sum += w
			fx += w * float64(x)
			fy += w * float64(y)
		}
	}
	if sum == 0 {
		return Result{}, ErrDegenerateInput
	}

	res := Result{X0: fx / sum, Y0: fy / sum}

	var sx2, sy2 float64
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*img.Width : (y+1)*img.Width]
		dy := float64(y) - res.Y0
		for x, w := range row {
			if w < 0 {
				w = 0
			}
			dx := float64(x) - res.X0
			sx2 += w * dx * dx
			sy2 += w * dy * dy
		}
	}
	res.SX = math.Sqrt(sx2 / sum)
	res.SY = math.Sqrt(sy2 / sum)
	return res, nil
}
