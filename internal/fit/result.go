// Package fit implements nonlinear least-squares fitting of 1-D and 2-D
// intensity peak models (Gaussian and Sech², with optional polynomial
// background and optional rotation) using a damped Levenberg-Marquardt
// solver built on gonum/mat.
package fit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Status encodes the convergence outcome of a fit, following the
// Levenberg-Marquardt convention: 1-4 converged with diminishing
// confidence, 0 not attempted, anything else failed.
type Status int

const (
	// StatusNotAttempted means no fit was run.
	StatusNotAttempted Status = 0
	// StatusChi2Converged means the relative chi-square change fell below
	// tolerance.
	StatusChi2Converged Status = 1
	// StatusStepConverged means the relative parameter step fell below
	// tolerance.
	StatusStepConverged Status = 2
	// StatusGradientConverged means the gradient norm fell below tolerance.
	StatusGradientConverged Status = 3
	// StatusDampingConverged means the damping factor overflowed after an
	// accepted step; the fit is usable but least trustworthy.
	StatusDampingConverged Status = 4
	// StatusIterationLimit means the solver hit the iteration cap.
	StatusIterationLimit Status = 5
	// StatusFailed means the solver could not make progress or an internal
	// error was recovered.
	StatusFailed Status = -1
)

// Converged reports whether the status represents a usable fit.
func (s Status) Converged() bool { return s >= StatusChi2Converged && s <= StatusDampingConverged }

// Result is the outcome of one fit call.
//
// Cov is the parameter covariance at the solution; a nil Cov is the
// "singular" marker: the normal matrix could not be inverted, callers must
// substitute zero uncertainties and should discard any cached warm-start
// parameters.
type Result struct {
	Params     []float64
	Cov        *mat.SymDense
	Status     Status
	Chi2       float64
	Iterations int
}

// Singular reports whether the covariance is the singular marker.
func (r Result) Singular() bool { return r.Cov == nil }

// Uncertainty returns the 1-sigma uncertainty of parameter i, or 0 when the
// covariance is singular.
func (r Result) Uncertainty(i int) float64 {
	if r.Cov == nil {
		return 0
	}
	v := r.Cov.At(i, i)
	if v < 0 {
		return 0
	}
	return math.Sqrt(v)
}
