// Package calibrate fits process parameters to observed targets by
// damped nonlinear least squares (Levenberg-Marquardt).
//
// The caller supplies an Objective mapping a parameter vector to a
// residual vector; the solver iterates (JtJ + lambda I) dp = Jt r with an
// adaptive damping parameter, projecting each accepted step onto the
// caller's bounds. Bound projection by clamping can stall convergence
// when the optimum sits on a bound; callers that hit this should widen
// the bounds or reparameterize.
package calibrate

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/quantforge/stoch/internal/models"
)

// Objective maps a parameter vector to a residual vector. It must be pure:
// the solver evaluates it concurrently for finite differences.
type Objective func(params []float64) ([]float64, error)

// Options tunes the solver. Zero values select the documented defaults.
type Options struct {
	// Lower and Upper are optional per-parameter bounds. A nil slice
	// leaves that side unbounded; individual entries may be +-Inf.
	Lower, Upper []float64

	// MaxIterations caps the number of outer iterations (default 200).
	MaxIterations int

	// TolResidual stops the solver when the residual norm falls below it
	// (default 1e-10).
	TolResidual float64

	// TolStep stops the solver when the step norm falls below
	// TolStep * (1 + parameter norm) (default 1e-10).
	TolStep float64

	// InitialDamping is the starting lambda (default 1e-3).
	InitialDamping float64

	// DampingFactor scales lambda up on rejection and down on acceptance
	// (default 10).
	DampingFactor float64

	// MaxDamping bounds lambda; failing to solve at MaxDamping yields
	// ErrSingularJacobian (default 1e12).
	MaxDamping float64

	// FDStep is the relative finite-difference step (default 1e-7).
	FDStep float64

	// Workers bounds the parallel finite-difference evaluations
	// (default: one per CPU).
	Workers int

	// Logger, when non-nil, receives a debug record per iteration.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 200
	}
	if o.TolResidual <= 0 {
		o.TolResidual = 1e-10
	}
	if o.TolStep <= 0 {
		o.TolStep = 1e-10
	}
	if o.InitialDamping <= 0 {
		o.InitialDamping = 1e-3
	}
	if o.DampingFactor <= 1 {
		o.DampingFactor = 10
	}
	if o.MaxDamping <= 0 {
		o.MaxDamping = 1e12
	}
	if o.FDStep <= 0 {
		o.FDStep = 1e-7
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

// Calibrate runs Levenberg-Marquardt from initial and returns the fitted
// parameters with termination diagnostics. MaxIterations is reported as a
// status, not an error; ErrSingularJacobian is returned when the damped
// normal equations cannot be solved even at maximum damping.
func Calibrate(obj Objective, initial []float64, opts Options) (models.CalibrationResult, error) {
	if len(initial) == 0 {
		return models.CalibrationResult{}, fmt.Errorf("%w: empty initial parameter vector", models.ErrInvalidParameters)
	}
	o := opts.withDefaults()
	if err := checkBounds(o, len(initial)); err != nil {
		return models.CalibrationResult{}, err
	}

	p := clamp(append([]float64(nil), initial...), o.Lower, o.Upper)
	r, err := obj(p)
	if err != nil {
		return models.CalibrationResult{}, err
	}
	if len(r) == 0 {
		return models.CalibrationResult{}, fmt.Errorf("%w: objective returned no residuals", models.ErrInvalidParameters)
	}
	rss := sumSquares(r)
	if !isFinite(rss) {
		return result(p, rss, models.StatusDiverged, 0), nil
	}

	lambda := o.InitialDamping
	for iter := 1; iter <= o.MaxIterations; iter++ {
		jac, err := jacobian(obj, p, r, o)
		if err != nil {
			return models.CalibrationResult{}, err
		}
		jtj, jtr := normalEquations(jac, r)

		for {
			step, ok := solveDamped(jtj, jtr, lambda)
			if !ok {
				if lambda >= o.MaxDamping {
					return models.CalibrationResult{}, fmt.Errorf("%w: damping exhausted at iteration %d",
						models.ErrSingularJacobian, iter)
				}
				lambda *= o.DampingFactor
				continue
			}

			cand := make([]float64, len(p))
			for i := range p {
				cand[i] = p[i] - step[i]
			}
			cand = clamp(cand, o.Lower, o.Upper)

			candR, err := obj(cand)
			if err != nil {
				return models.CalibrationResult{}, err
			}
			candRSS := sumSquares(candR)

			if isFinite(candRSS) && candRSS < rss {
				stepNorm := norm(step)
				p, r, rss = cand, candR, candRSS
				lambda = math.Max(lambda/o.DampingFactor, 1e-12)
				if o.Logger != nil {
					o.Logger.Debug("lm step accepted",
						"iteration", iter, "rss", rss, "lambda", lambda, "step_norm", stepNorm)
				}
				if math.Sqrt(rss) < o.TolResidual || stepNorm < o.TolStep*(1+norm(p)) {
					return result(p, rss, models.StatusConverged, iter), nil
				}
				break
			}

			if !isFinite(candRSS) && o.Logger != nil {
				o.Logger.Debug("lm step rejected (non-finite residual)", "iteration", iter, "lambda", lambda)
			}
			if lambda >= o.MaxDamping {
				// No descent direction left: the current point is as good
				// as the model gets.
				return result(p, rss, models.StatusConverged, iter), nil
			}
			lambda *= o.DampingFactor
		}
	}
	return result(p, rss, models.StatusMaxIterations, o.MaxIterations), nil
}

func result(p []float64, rss float64, status models.CalibrationStatus, iters int) models.CalibrationResult {
	return models.CalibrationResult{Params: p, RSS: rss, Status: status, Iterations: iters}
}

func checkBounds(o Options, n int) error {
	if o.Lower != nil && len(o.Lower) != n {
		return fmt.Errorf("%w: %d lower bounds for %d parameters", models.ErrInvalidParameters, len(o.Lower), n)
	}
	if o.Upper != nil && len(o.Upper) != n {
		return fmt.Errorf("%w: %d upper bounds for %d parameters", models.ErrInvalidParameters, len(o.Upper), n)
	}
	for i := 0; i < n; i++ {
		if o.Lower != nil && o.Upper != nil && o.Lower[i] > o.Upper[i] {
			return fmt.Errorf("%w: lower bound %v > upper bound %v at %d",
				models.ErrInvalidParameters, o.Lower[i], o.Upper[i], i)
		}
	}
	return nil
}

func clamp(p, lower, upper []float64) []float64 {
	for i := range p {
		if lower != nil && p[i] < lower[i] {
			p[i] = lower[i]
		}
		if upper != nil && p[i] > upper[i] {
			p[i] = upper[i]
		}
	}
	return p
}

// jacobian computes forward finite differences, one parameter per task.
// A parameter sitting close enough to its upper bound is bumped backward
// instead, so the objective is never evaluated outside the feasible box.
func jacobian(obj Objective, p, r []float64, o Options) (*mat.Dense, error) {
	m, n := len(r), len(p)
	jac := mat.NewDense(m, n, nil)
	var g errgroup.Group
	g.SetLimit(o.Workers)
	for j := 0; j < n; j++ {
		g.Go(func() error {
			h := o.FDStep * math.Max(math.Abs(p[j]), 1)
			if o.Upper != nil && p[j]+h > o.Upper[j] {
				h = -h
			}
			bumped := append([]float64(nil), p...)
			bumped[j] += h
			rb, err := obj(bumped)
			if err != nil {
				return err
			}
			if len(rb) != m {
				return fmt.Errorf("%w: objective residual length changed (%d -> %d)",
					models.ErrInvalidParameters, m, len(rb))
			}
			for i := 0; i < m; i++ {
				jac.Set(i, j, (rb[i]-r[i])/h)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jac, nil
}

func normalEquations(jac *mat.Dense, r []float64) (*mat.SymDense, *mat.VecDense) {
	_, n := jac.Dims()
	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, jtj.At(i, j))
		}
	}
	rv := mat.NewVecDense(len(r), r)
	jtr := mat.NewVecDense(n, nil)
	jtr.MulVec(jac.T(), rv)
	return sym, jtr
}

// solveDamped solves (JtJ + lambda I) x = Jt r via Cholesky.
func solveDamped(jtj *mat.SymDense, jtr *mat.VecDense, lambda float64) ([]float64, bool) {
	n := jtj.SymmetricDim()
	damped := mat.NewSymDense(n, nil)
	damped.CopySym(jtj)
	for i := 0; i < n; i++ {
		damped.SetSym(i, i, jtj.At(i, i)+lambda)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(damped); !ok {
		return nil, false
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, jtr); err != nil {
		return nil, false
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = x.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, false
		}
	}
	return out, true
}

func sumSquares(r []float64) float64 {
	var s float64
	for _, v := range r {
		s += v * v
	}
	return s
}

func norm(v []float64) float64 { return math.Sqrt(sumSquares(v)) }

func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
