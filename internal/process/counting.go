package process

import (
	"fmt"
	"math"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/randsrc"
)

// PoissonProcess generates event times of a homogeneous Poisson process
// via exponential inter-arrival sampling.
type PoissonProcess struct {
	Rate float64
}

// NewPoissonProcess validates rate > 0.
func NewPoissonProcess(rate float64) (*PoissonProcess, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: poisson rate=%v must be positive", models.ErrInvalidParameters, rate)
	}
	return &PoissonProcess{Rate: rate}, nil
}

func (p *PoissonProcess) SimulateEvents(horizon float64, stream *randsrc.Stream) ([]float64, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon=%v must be positive", models.ErrInvalidGrid, horizon)
	}
	var events []float64
	t := stream.Exp(p.Rate)
	for t <= horizon {
		events = append(events, t)
		t += stream.Exp(p.Rate)
	}
	return events, nil
}

// Hawkes generates event times of a self-exciting Hawkes process with
// exponential kernel, intensity lambda(t) = mu + sum alpha e^{-beta (t-ti)},
// sampled by Ogata thinning.
type Hawkes struct {
	Mu    float64 // baseline intensity
	Alpha float64 // excitation jump
	Beta  float64 // excitation decay
}

// NewHawkes validates mu > 0, alpha >= 0, beta > 0 and the stability
// condition alpha < beta (branching ratio below one).
func NewHawkes(mu, alpha, beta float64) (*Hawkes, error) {
	if mu <= 0 {
		return nil, fmt.Errorf("%w: hawkes mu=%v must be positive", models.ErrInvalidParameters, mu)
	}
	if alpha < 0 || beta <= 0 {
		return nil, fmt.Errorf("%w: hawkes requires alpha >= 0 and beta > 0", models.ErrInvalidParameters)
	}
	if alpha >= beta {
		return nil, fmt.Errorf("%w: hawkes unstable: alpha=%v >= beta=%v", models.ErrInvalidParameters, alpha, beta)
	}
	return &Hawkes{Mu: mu, Alpha: alpha, Beta: beta}, nil
}

func (h *Hawkes) SimulateEvents(horizon float64, stream *randsrc.Stream) ([]float64, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon=%v must be positive", models.ErrInvalidGrid, horizon)
	}
	var events []float64
	var excitation float64 // sum of alpha e^{-beta (t-ti)} at current t
	t := 0.0
	for {
		upper := h.Mu + excitation
		w := stream.Exp(upper)
		t += w
		if t > horizon {
			break
		}
		excitation *= math.Exp(-h.Beta * w)
		if stream.Uniform()*upper <= h.Mu+excitation {
			events = append(events, t)
			excitation += h.Alpha
		}
	}
	return events, nil
}

// CountingPath bins event times onto a grid, returning the cumulative
// count aligned with the grid points. Convenience for estimators that
// consume regularly sampled paths.
func CountingPath(grid models.TimeGrid, events []float64) (models.Path, error) {
	if err := validateGrid(grid); err != nil {
		return models.Path{}, err
	}
	counts := make([]float64, grid.Len())
	j := 0
	for i := 0; i < grid.Len(); i++ {
		for j < len(events) && events[j] <= grid.At(i) {
			j++
		}
		counts[i] = float64(j)
	}
	return models.NewPath(grid, counts)
}
