package centroid

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/European-XFEL/imageproc/internal/frame"
)

func gauss1d(n int, a, x0, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		d := float64(i) - x0
		out[i] = a * math.Exp(-d*d/(2*sigma*sigma))
	}
	return out
}

func TestProfileRecoversGaussianCentre(t *testing.T) {
	const x0, sigma = 340.0, 12.0
	w := gauss1d(1000, 500, x0, sigma)

	gotX0, gotSX, err := Profile(w)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if math.Abs(gotX0-x0) > 1e-6 {
		t.Errorf("x0 = %v, want %v", gotX0, x0)
	}
	if math.Abs(gotSX-sigma)/sigma > 0.02 {
		t.Errorf("sx = %v, want within 2%% of %v", gotSX, sigma)
	}

	// Crosscheck against gonum's weighted moments.
	xs := make([]float64, len(w))
	for i := range xs {
		xs[i] = float64(i)
	}
	wantMean := stat.Mean(xs, w)
	if math.Abs(gotX0-wantMean) > 1e-9 {
		t.Errorf("x0 = %v, gonum weighted mean = %v", gotX0, wantMean)
	}
}

func TestProfileClipsNegativeWeights(t *testing.T) {
	// A symmetric profile plus a large negative outlier: the outlier must
	// carry no weight.
	w := []float64{0, 1, 2, 1, 0, -100}
	x0, _, err := Profile(w)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if math.Abs(x0-2) > 1e-12 {
		t.Errorf("x0 = %v, want 2", x0)
	}
}

func TestProfileDegenerate(t *testing.T) {
	_, _, err := Profile([]float64{0, 0, 0})
	if !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("err = %v, want ErrDegenerateInput", err)
	}
	_, _, err = Profile([]float64{-1, -2})
	if !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("all-negative err = %v, want ErrDegenerateInput", err)
	}
}

func TestImageCentroid(t *testing.T) {
	const w, h = 60, 40
	const x0, y0, sx, sy = 25.0, 18.0, 4.0, 3.0
	img := frame.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) - x0) / sx
			dy := (float64(y) - y0) / sy
			img.Data[img.Idx(x, y)] = 900 * math.Exp(-(dx*dx+dy*dy)/2)
		}
	}

	res, err := Image(img)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if math.Abs(res.X0-x0) > 0.01 || math.Abs(res.Y0-y0) > 0.01 {
		t.Errorf("centroid = (%v,%v), want (%v,%v)", res.X0, res.Y0, x0, y0)
	}
	if math.Abs(res.SX-sx)/sx > 0.03 || math.Abs(res.SY-sy)/sy > 0.03 {
		t.Errorf("spread = (%v,%v), want ~(%v,%v)", res.SX, res.SY, sx, sy)
	}
}

func TestImageDegenerate(t *testing.T) {
	img := frame.New(8, 8)
	if _, err := Image(img); !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("err = %v, want ErrDegenerateInput", err)
	}
}

func TestImageProfileFallback(t *testing.T) {
	p := frame.Profile([]float64{0, 2, 4, 2, 0})
	res, err := Image(p)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if math.Abs(res.X0-2) > 1e-12 {
		t.Errorf("x0 = %v, want 2", res.X0)
	}
	if res.Y0 != 0 || res.SY != 0 {
		t.Errorf("rank-1 result has y components: %+v", res)
	}
}
