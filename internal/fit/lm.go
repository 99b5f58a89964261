package fit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	maxIterations = 200
	chi2Tol       = 1e-8
	stepTol       = 1e-8
	gradTol       = 1e-10
	lambdaInit    = 1e-3
	lambdaScale   = 10.0
	lambdaMax     = 1e12
)

// Fit runs a damped Levenberg-Marquardt least-squares fit of model m to
// data. p0 seeds the iteration; pass nil to derive a guess from the data.
// A p0 of the wrong length is a programming error and panics. Data whose
// length does not match the model's grid is likewise a contract violation.
//
// Fit never propagates solver panics from degenerate numerics: any
// recovered internal error yields StatusFailed. A non-converged fit is a
// per-frame outcome, not a fatal one.
func Fit(m Model, data, p0 []float64) (res Result) {
	if len(data) != m.NumPoints() {
		panic("fit: data length does not match model grid")
	}
	if p0 != nil && len(p0) != m.NumParams() {
		panic("fit: initial guess length does not match model parameter count")
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{Status: StatusFailed}
		}
	}()

	if p0 == nil {
		p0 = m.Guess(data)
	}
	p := append([]float64(nil), p0...)

	n := m.NumPoints()
	np := m.NumParams()

	model := make([]float64, n)
	resid := make([]float64, n)
	trialModel := make([]float64, n)
	trialResid := make([]float64, n)
	jac := mat.NewDense(n, np, nil)

	chi2 := evalChi2(m, p, data, model, resid)
	if math.IsNaN(chi2) || math.IsInf(chi2, 0) {
		return Result{Params: p, Status: StatusFailed}
	}

	lambda := lambdaInit
	status := StatusIterationLimit
	iter := 0

	for ; iter < maxIterations; iter++ {
		m.Jacobian(p, jac)

		// Normal equations: (JtJ + lambda*diag(JtJ)) step = Jt r
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)

		grad := make([]float64, np)
		for j := 0; j < np; j++ {
			var g float64
			for i := 0; i < n; i++ {
				g += jac.At(i, j) * resid[i]
			}
			grad[j] = g
		}
		if norm2(grad) < gradTol {
			status = StatusGradientConverged
			break
		}

		stepped := false
		for lambda <= lambdaMax {
			a := mat.NewDense(np, np, nil)
			a.Copy(&jtj)
			for j := 0; j < np; j++ {
				d := jtj.At(j, j)
				if d == 0 {
					d = 1e-12
				}
				a.Set(j, j, d*(1+lambda))
			}

			var step mat.VecDense
			if err := step.SolveVec(a, mat.NewVecDense(np, grad)); err != nil {
				// Singular even with damping: raise lambda and retry.
				lambda *= lambdaScale
				continue
			}

			trial := make([]float64, np)
			for j := range trial {
				trial[j] = p[j] + step.AtVec(j)
			}
			trialChi2 := evalChi2(m, trial, data, trialModel, trialResid)

			if !math.IsNaN(trialChi2) && trialChi2 < chi2 {
				relChi2 := (chi2 - trialChi2) / math.Max(chi2, 1e-300)
				relStep := norm2(step.RawVector().Data) / math.Max(norm2(p), 1e-300)
				copy(p, trial)
				copy(resid, trialResid)
				prevLambda := lambda
				lambda /= lambdaScale
				chi2 = trialChi2
				stepped = true

				switch {
				case relChi2 < chi2Tol:
					status = StatusChi2Converged
				case relStep < stepTol:
					status = StatusStepConverged
				case prevLambda >= lambdaMax/lambdaScale:
					status = StatusDampingConverged
				}
				break
			}
			// Rejected step: steepen the damping and retry from p.
			lambda *= lambdaScale
		}
		if !stepped {
			// No downhill step exists at any damping: if we never moved at
			// all the fit failed outright, otherwise accept what we have.
			if iter == 0 {
				return Result{Params: p, Status: StatusFailed, Chi2: chi2, Iterations: iter}
			}
			status = StatusDampingConverged
			break
		}
		if status != StatusIterationLimit {
			break
		}
	}

	// The Jacobian is stale after the last accepted step; the covariance
	// needs it at the solution.
	m.Jacobian(p, jac)

	return Result{
		Params:     p,
		Cov:        covariance(jac, chi2, n, np),
		Status:     status,
		Chi2:       chi2,
		Iterations: iter,
	}
}

// evalChi2 evaluates the model at p and fills resid with data - model,
// returning the sum of squared residuals.
func evalChi2(m Model, p, data, model, resid []float64) float64 {
	m.Eval(p, model)
	var chi2 float64
	for i, d := range data {
		r := d - model[i]
		resid[i] = r
		chi2 += r * r
	}
	return chi2
}

// covariance returns sigma^2 * (JtJ)^-1 at the solution, or nil (the
// singular marker) when the normal matrix cannot be inverted.
func covariance(jac *mat.Dense, chi2 float64, n, np int) *mat.SymDense {
	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)

	var inv mat.Dense
	if err := inv.Inverse(&jtj); err != nil {
		return nil
	}

	dof := n - np
	if dof < 1 {
		dof = 1
	}
	sigma2 := chi2 / float64(dof)

	cov := mat.NewSymDense(np, nil)
	for i := 0; i < np; i++ {
		for j := i; j < np; j++ {
			cov.SetSym(i, j, sigma2*(inv.At(i, j)+inv.At(j, i))/2)
		}
	}
	return cov
}

func norm2(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
