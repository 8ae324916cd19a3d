// Package process implements the discretized process simulators: standard
// and geometric Brownian motion, Ornstein-Uhlenbeck, Cox-Ingersoll-Ross,
// Heston, Merton and Kou jump-diffusions, fractional Brownian motion and
// its mean-reverting variants, and Poisson/Hawkes counting processes.
//
// Every simulator validates its parameters at construction and is pure
// given (grid, stream): the same stream seed always reproduces the same
// path, and no simulator touches global state.
package process

import (
	"fmt"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/randsrc"
)

// Simulator produces one discretized sample path per call.
type Simulator interface {
	Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error)
}

// BatchPreparer is implemented by simulators that precompute per-grid
// state, such as a covariance factorization, so a batch of paths can
// build it once and share it read-only across parallel workers. Preparing
// also surfaces grid and covariance errors before any path is dispatched.
type BatchPreparer interface {
	PrepareBatch(grid models.TimeGrid) error
}

// EventSimulator produces an event-time sequence rather than a regularly
// sampled path. Used by the counting processes.
type EventSimulator interface {
	SimulateEvents(horizon float64, stream *randsrc.Stream) ([]float64, error)
}

// Scheme selects the discretization scheme for simulators that support
// more than one. SchemeDefault resolves to the documented per-variant
// default: exact transition for GBM and OU, exact noncentral chi-squared
// for CIR when the Feller condition holds (Milstein otherwise).
type Scheme int

const (
	SchemeDefault Scheme = iota
	SchemeExact
	SchemeEuler
	SchemeMilstein
)

func (s Scheme) String() string {
	switch s {
	case SchemeDefault:
		return "default"
	case SchemeExact:
		return "exact"
	case SchemeEuler:
		return "euler"
	case SchemeMilstein:
		return "milstein"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// validateGrid is the shared entry check for all simulators.
func validateGrid(grid models.TimeGrid) error {
	if grid.Len() < 2 {
		return fmt.Errorf("%w: empty grid", models.ErrInvalidGrid)
	}
	return nil
}

// uniformDt returns the common step of a grid, or ErrInvalidGrid if the
// grid is not (numerically) uniform. The fractional simulators require a
// uniform grid because fractional Gaussian noise is stationary only under
// equal spacing.
func uniformDt(grid models.TimeGrid) (float64, error) {
	dt := grid.Dt(0)
	for i := 1; i < grid.Steps(); i++ {
		if diff := grid.Dt(i) - dt; diff > 1e-9*dt || diff < -1e-9*dt {
			return 0, fmt.Errorf("%w: fractional processes require a uniform grid", models.ErrInvalidGrid)
		}
	}
	return dt, nil
}

// spec lookups for the scenario and MCP surfaces.

type paramSpec map[string]float64

func (p paramSpec) get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

func (p paramSpec) require(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing parameter %q", models.ErrInvalidParameters, name)
	}
	return v, nil
}

// FromSpec builds a path simulator from a process kind and a named
// parameter map, as used by scenario files and the MCP tools.
func FromSpec(kind string, params map[string]float64) (Simulator, error) {
	p := paramSpec(params)
	switch kind {
	case "bm":
		return NewBM(p.get("mu", 0), p.get("sigma", 1), p.get("x0", 0))
	case "gbm":
		return NewGBM(p.get("mu", 0), p.get("sigma", 0.2), p.get("x0", 100), SchemeDefault)
	case "ou":
		return NewOU(p.get("theta", 1), p.get("mu", 0), p.get("sigma", 1), p.get("x0", 0), SchemeDefault)
	case "cir":
		return NewCIR(p.get("kappa", 1), p.get("theta", 0.04), p.get("sigma", 0.2), p.get("x0", 0.04), SchemeDefault)
	case "heston":
		return NewHeston(HestonParams{
			Mu:    p.get("mu", 0),
			S0:    p.get("s0", 100),
			V0:    p.get("v0", 0.04),
			Kappa: p.get("kappa", 1),
			Theta: p.get("theta", 0.04),
			Xi:    p.get("xi", 0.2),
			Rho:   p.get("rho", -0.7),
		})
	case "merton":
		return NewMerton(MertonParams{
			Mu:       p.get("mu", 0),
			Sigma:    p.get("sigma", 0.2),
			Lambda:   p.get("lambda", 1),
			JumpMean: p.get("jump_mean", 0),
			JumpStd:  p.get("jump_std", 0.1),
			X0:       p.get("x0", 100),
		})
	case "kou":
		return NewKou(KouParams{
			Mu:     p.get("mu", 0),
			Sigma:  p.get("sigma", 0.2),
			Lambda: p.get("lambda", 1),
			PUp:    p.get("p_up", 0.5),
			Eta1:   p.get("eta1", 10),
			Eta2:   p.get("eta2", 10),
			X0:     p.get("x0", 100),
		})
	case "fbm":
		h, err := p.require("hurst")
		if err != nil {
			return nil, err
		}
		return NewFBM(h, p.get("sigma", 1), p.get("x0", 0))
	case "fou":
		h, err := p.require("hurst")
		if err != nil {
			return nil, err
		}
		return NewFOU(h, p.get("theta", 1), p.get("mu", 0), p.get("sigma", 1), p.get("x0", 0))
	case "fjacobi":
		h, err := p.require("hurst")
		if err != nil {
			return nil, err
		}
		return NewFJacobi(h, p.get("alpha", 1), p.get("beta", 2), p.get("sigma", 0.3), p.get("x0", 0.5))
	case "jumpfou":
		h, err := p.require("hurst")
		if err != nil {
			return nil, err
		}
		return NewJumpFOU(JumpFOUParams{
			Hurst:    h,
			Theta:    p.get("theta", 1),
			Mu:       p.get("mu", 0),
			Sigma:    p.get("sigma", 1),
			Lambda:   p.get("lambda", 1),
			JumpMean: p.get("jump_mean", 0),
			JumpStd:  p.get("jump_std", 0.1),
			X0:       p.get("x0", 0),
		})
	default:
		return nil, fmt.Errorf("%w: unknown process kind %q", models.ErrInvalidParameters, kind)
	}
}

// EventFromSpec builds a counting-process simulator from a kind and a
// named parameter map.
func EventFromSpec(kind string, params map[string]float64) (EventSimulator, error) {
	p := paramSpec(params)
	switch kind {
	case "poisson":
		return NewPoissonProcess(p.get("rate", 1))
	case "hawkes":
		return NewHawkes(p.get("mu", 1), p.get("alpha", 0.5), p.get("beta", 1))
	default:
		return nil, fmt.Errorf("%w: unknown counting process kind %q", models.ErrInvalidParameters, kind)
	}
}

// Kinds lists the path-simulator kinds FromSpec accepts.
func Kinds() []string {
	return []string{"bm", "gbm", "ou", "cir", "heston", "merton", "kou", "fbm", "fou", "fjacobi", "jumpfou"}
}
