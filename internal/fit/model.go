package fit

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/European-XFEL/imageproc/internal/centroid"
	"github.com/European-XFEL/imageproc/internal/frame"
)

// Model is a peak shape evaluated on an implicit integer pixel grid.
// 1-D models run over x = 0..n-1; 2-D models over the row-major flattening
// of a width x height grid.
type Model interface {
	// Name identifies the model in logs.
	Name() string

	// NumParams returns the length of the parameter vector.
	NumParams() int

	// NumPoints returns the number of grid points (data length).
	NumPoints() int

	// Eval writes the model values for parameters p into out
	// (len(out) == NumPoints()).
	Eval(p, out []float64)

	// Jacobian writes df/dp_j at grid point i into j.Set(i, j).
	Jacobian(p []float64, jac *mat.Dense)

	// Guess derives an initial parameter vector from the data using
	// centre-of-mass and raw-peak heuristics.
	Guess(data []float64) []float64
}

// gauss1D is f(x) = A*exp(-(x-x0)^2/(2 sigma^2)), optionally plus a linear
// background a + b*x. Parameters: [A, x0, sigma] or [A, x0, sigma, a, b].
type gauss1D struct {
	n    int
	poly bool
}

// Gauss1D returns a 1-D Gaussian model over n points. With poly a linear
// background term is added and the parameter vector grows by [a, b].
func Gauss1D(n int, poly bool) Model {
	if n < 1 {
		panic("fit: model needs at least one point")
	}
	return &gauss1D{n: n, poly: poly}
}

func (m *gauss1D) Name() string {
	if m.poly {
		return "gauss1d+poly"
	}
	return "gauss1d"
}

func (m *gauss1D) NumParams() int {
	if m.poly {
		return 5
	}
	return 3
}

func (m *gauss1D) NumPoints() int { return m.n }

func (m *gauss1D) Eval(p, out []float64) {
	a, x0, sig := p[0], p[1], p[2]
	for i := range out {
		d := (float64(i) - x0) / sig
		out[i] = a * math.Exp(-d*d/2)
		if m.poly {
			out[i] += p[3] + p[4]*float64(i)
		}
	}
}

func (m *gauss1D) Jacobian(p []float64, jac *mat.Dense) {
	a, x0, sig := p[0], p[1], p[2]
	for i := 0; i < m.n; i++ {
		dx := float64(i) - x0
		e := math.Exp(-dx * dx / (2 * sig * sig))
		jac.Set(i, 0, e)
		jac.Set(i, 1, a*e*dx/(sig*sig))
		jac.Set(i, 2, a*e*dx*dx/(sig*sig*sig))
		if m.poly {
			jac.Set(i, 3, 1)
			jac.Set(i, 4, float64(i))
		}
	}
}

func (m *gauss1D) Guess(data []float64) []float64 {
	a, x0, sig, base := profileGuess(data)
	if m.poly {
		return []float64{a, x0, sig, base, 0}
	}
	return []float64{a, x0, sig}
}

// sech2 is f(x) = A*sech((x-x0)/sigma)^2. Parameters: [A, x0, sigma].
type sech2 struct {
	n int
}

// Sech2 returns a 1-D squared hyperbolic secant model over n points.
func Sech2(n int) Model {
	if n < 1 {
		panic("fit: model needs at least one point")
	}
	return &sech2{n: n}
}

func (m *sech2) Name() string   { return "sech2" }
func (m *sech2) NumParams() int { return 3 }
func (m *sech2) NumPoints() int { return m.n }

func sech(u float64) float64 { return 1 / math.Cosh(u) }

func (m *sech2) Eval(p, out []float64) {
	a, x0, sig := p[0], p[1], p[2]
	for i := range out {
		s := sech((float64(i) - x0) / sig)
		out[i] = a * s * s
	}
}

func (m *sech2) Jacobian(p []float64, jac *mat.Dense) {
	a, x0, sig := p[0], p[1], p[2]
	for i := 0; i < m.n; i++ {
		u := (float64(i) - x0) / sig
		s := sech(u)
		s2 := s * s
		t := math.Tanh(u)
		jac.Set(i, 0, s2)
		jac.Set(i, 1, 2*a*s2*t/sig)
		jac.Set(i, 2, 2*a*s2*t*u/sig)
	}
}

func (m *sech2) Guess(data []float64) []float64 {
	a, x0, sig, _ := profileGuess(data)
	return []float64{a, x0, sig}
}

// gauss2D is an elliptical Gaussian over a width x height grid, optionally
// rotated and optionally with a planar background a + bx*x + by*y.
// Parameters: [A, x0, y0, sx, sy] (+ theta) (+ a, bx, by).
type gauss2D struct {
	w, h     int
	rotation bool
	poly     bool
}

// Gauss2D returns a 2-D Gaussian model over a width x height grid.
func Gauss2D(width, height int, rotation, poly bool) Model {
	if width < 1 || height < 1 {
		panic("fit: model needs at least one point")
	}
	return &gauss2D{w: width, h: height, rotation: rotation, poly: poly}
}

func (m *gauss2D) Name() string {
	name := "gauss2d"
	if m.rotation {
		name += "+rot"
	}
	if m.poly {
		name += "+poly"
	}
	return name
}

func (m *gauss2D) NumParams() int {
	n := 5
	if m.rotation {
		n++
	}
	if m.poly {
		n += 3
	}
	return n
}

func (m *gauss2D) NumPoints() int { return m.w * m.h }

func (m *gauss2D) Eval(p, out []float64) {
	a, x0, y0, sx, sy := p[0], p[1], p[2], p[3], p[4]
	cos, sin := 1.0, 0.0
	next := 5
	if m.rotation {
		cos, sin = math.Cos(p[5]), math.Sin(p[5])
		next = 6
	}
	var bg0, bgx, bgy float64
	if m.poly {
		bg0, bgx, bgy = p[next], p[next+1], p[next+2]
	}
	for y := 0; y < m.h; y++ {
		dy := float64(y) - y0
		for x := 0; x < m.w; x++ {
			dx := float64(x) - x0
			u := cos*dx + sin*dy
			v := -sin*dx + cos*dy
			val := a * math.Exp(-(u*u/(sx*sx)+v*v/(sy*sy))/2)
			if m.poly {
				val += bg0 + bgx*float64(x) + bgy*float64(y)
			}
			out[y*m.w+x] = val
		}
	}
}

func (m *gauss2D) Jacobian(p []float64, jac *mat.Dense) {
	a, x0, y0, sx, sy := p[0], p[1], p[2], p[3], p[4]
	cos, sin := 1.0, 0.0
	next := 5
	if m.rotation {
		cos, sin = math.Cos(p[5]), math.Sin(p[5])
		next = 6
	}
	sx2, sy2 := sx*sx, sy*sy
	for y := 0; y < m.h; y++ {
		dy := float64(y) - y0
		for x := 0; x < m.w; x++ {
			dx := float64(x) - x0
			u := cos*dx + sin*dy
			v := -sin*dx + cos*dy
			e := math.Exp(-(u*u/sx2 + v*v/sy2) / 2)
			i := y*m.w + x

			jac.Set(i, 0, e)
			jac.Set(i, 1, a*e*(u*cos/sx2-v*sin/sy2))
			jac.Set(i, 2, a*e*(u*sin/sx2+v*cos/sy2))
			jac.Set(i, 3, a*e*u*u/(sx2*sx))
			jac.Set(i, 4, a*e*v*v/(sy2*sy))
			if m.rotation {
				jac.Set(i, 5, -a*e*u*v*(1/sx2-1/sy2))
			}
			if m.poly {
				jac.Set(i, next, 1)
				jac.Set(i, next+1, float64(x))
				jac.Set(i, next+2, float64(y))
			}
		}
	}
}

func (m *gauss2D) Guess(data []float64) []float64 {
	base, peak := data[0], data[0]
	for _, v := range data {
		if v < base {
			base = v
		}
		if v > peak {
			peak = v
		}
	}

	// Centre-of-mass of the baseline-subtracted map seeds position and
	// widths; degenerate (flat) data falls back to the grid centre.
	weights := make([]float64, len(data))
	for i, v := range data {
		weights[i] = v - base
	}
	x0 := float64(m.w) / 2
	y0 := float64(m.h) / 2
	sx := float64(m.w) / 4
	sy := float64(m.h) / 4
	if c, err := centroid.Image(frame.FromValues(weights, m.w, m.h)); err == nil {
		x0, y0 = c.X0, c.Y0
		if c.SX > 0 {
			sx = c.SX
		}
		if c.SY > 0 {
			sy = c.SY
		}
	}

	p := []float64{peak - base, x0, y0, sx, sy}
	if m.rotation {
		p = append(p, 0)
	}
	if m.poly {
		p = append(p, base, 0, 0)
	}
	return p
}

// profileGuess derives [amplitude, centre, sigma, baseline] for 1-D data.
func profileGuess(data []float64) (a, x0, sig, base float64) {
	base, peak := data[0], data[0]
	for _, v := range data {
		if v < base {
			base = v
		}
		if v > peak {
			peak = v
		}
	}
	weights := make([]float64, len(data))
	for i, v := range data {
		weights[i] = v - base
	}
	x0 = float64(len(data)) / 2
	sig = float64(len(data)) / 4
	if c, s, err := centroid.Profile(weights); err == nil {
		x0 = c
		if s > 0 {
			sig = s
		}
	}
	return peak - base, x0, sig, base
}
