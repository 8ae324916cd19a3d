package process

import (
	"fmt"
	"math"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/randsrc"
)

// MertonParams parameterizes the Merton jump-diffusion: a geometric
// Brownian diffusion plus compound-Poisson jumps with lognormal sizes.
type MertonParams struct {
	Mu       float64
	Sigma    float64
	Lambda   float64 // jump intensity per unit time
	JumpMean float64 // mean of log jump size
	JumpStd  float64 // std of log jump size
	X0       float64
}

// Merton simulates log-returns with a compound-Poisson jump component:
// per step, the jump count is Poisson(lambda dt) and each jump adds a
// normal draw to the log-return.
type Merton struct {
	p MertonParams
}

// NewMerton validates the parameter domain.
func NewMerton(p MertonParams) (*Merton, error) {
	if p.Sigma < 0 || p.Lambda < 0 || p.JumpStd < 0 {
		return nil, fmt.Errorf("%w: merton requires sigma, lambda, jump_std >= 0", models.ErrInvalidParameters)
	}
	if p.X0 <= 0 {
		return nil, fmt.Errorf("%w: x0=%v must be positive", models.ErrInvalidParameters, p.X0)
	}
	return &Merton{p: p}, nil
}

// Params returns the model parameters.
func (m *Merton) Params() MertonParams { return m.p }

func (m *Merton) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	if err := validateGrid(grid); err != nil {
		return models.Path{}, err
	}
	p := m.p
	x := make([]float64, grid.Len())
	x[0] = p.X0
	for i := 0; i < grid.Steps(); i++ {
		dt := grid.Dt(i)
		logStep := (p.Mu-0.5*p.Sigma*p.Sigma)*dt + p.Sigma*math.Sqrt(dt)*stream.Normal()
		n := stream.Poisson(p.Lambda * dt)
		for j := 0; j < n; j++ {
			logStep += p.JumpMean + p.JumpStd*stream.Normal()
		}
		x[i+1] = x[i] * math.Exp(logStep)
	}
	return models.NewPath(grid, x)
}

// KouParams parameterizes the Kou double-exponential jump-diffusion.
type KouParams struct {
	Mu     float64
	Sigma  float64
	Lambda float64 // jump intensity per unit time
	PUp    float64 // probability of an upward jump
	Eta1   float64 // rate of upward (exponential) jump sizes
	Eta2   float64 // rate of downward jump sizes
	X0     float64
}

// Kou simulates like Merton but with asymmetric double-exponential jump
// sizes: upward jumps are Exp(eta1), downward jumps are -Exp(eta2).
type Kou struct {
	p KouParams
}

// NewKou validates the parameter domain.
func NewKou(p KouParams) (*Kou, error) {
	if p.Sigma < 0 || p.Lambda < 0 {
		return nil, fmt.Errorf("%w: kou requires sigma, lambda >= 0", models.ErrInvalidParameters)
	}
	if p.PUp < 0 || p.PUp > 1 {
		return nil, fmt.Errorf("%w: p_up=%v not in [0,1]", models.ErrInvalidParameters, p.PUp)
	}
	if p.Eta1 <= 0 || p.Eta2 <= 0 {
		return nil, fmt.Errorf("%w: eta1, eta2 must be positive", models.ErrInvalidParameters)
	}
	if p.X0 <= 0 {
		return nil, fmt.Errorf("%w: x0=%v must be positive", models.ErrInvalidParameters, p.X0)
	}
	return &Kou{p: p}, nil
}

// Params returns the model parameters.
func (k *Kou) Params() KouParams { return k.p }

func (k *Kou) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	if err := validateGrid(grid); err != nil {
		return models.Path{}, err
	}
	p := k.p
	x := make([]float64, grid.Len())
	x[0] = p.X0
	for i := 0; i < grid.Steps(); i++ {
		dt := grid.Dt(i)
		logStep := (p.Mu-0.5*p.Sigma*p.Sigma)*dt + p.Sigma*math.Sqrt(dt)*stream.Normal()
		n := stream.Poisson(p.Lambda * dt)
		for j := 0; j < n; j++ {
			if stream.Uniform() < p.PUp {
				logStep += stream.Exp(p.Eta1)
			} else {
				logStep -= stream.Exp(p.Eta2)
			}
		}
		x[i+1] = x[i] * math.Exp(logStep)
	}
	return models.NewPath(grid, x)
}

// JumpFOUParams parameterizes the jump fractional Ornstein-Uhlenbeck
// process: fOU dynamics plus compound-Poisson jumps with normal sizes.
type JumpFOUParams struct {
	Hurst    float64
	Theta    float64
	Mu       float64
	Sigma    float64
	Lambda   float64
	JumpMean float64
	JumpStd  float64
	X0       float64
}

// JumpFOU overlays a compound-Poisson jump component on a fractional
// Ornstein-Uhlenbeck path.
type JumpFOU struct {
	p   JumpFOUParams
	fou *FOU
}

// NewJumpFOU validates the parameter domain.
func NewJumpFOU(p JumpFOUParams) (*JumpFOU, error) {
	fou, err := NewFOU(p.Hurst, p.Theta, p.Mu, p.Sigma, p.X0)
	if err != nil {
		return nil, err
	}
	if p.Lambda < 0 || p.JumpStd < 0 {
		return nil, fmt.Errorf("%w: jumpfou requires lambda, jump_std >= 0", models.ErrInvalidParameters)
	}
	return &JumpFOU{p: p, fou: fou}, nil
}

// PrepareBatch builds the underlying fOU noise generator for grid ahead
// of a simulation batch.
func (j *JumpFOU) PrepareBatch(grid models.TimeGrid) error {
	return j.fou.PrepareBatch(grid)
}

func (j *JumpFOU) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	base, err := j.fou.Simulate(grid, stream)
	if err != nil {
		return models.Path{}, err
	}
	x := make([]float64, grid.Len())
	x[0] = base.Values[0]
	var jumps float64
	for i := 0; i < grid.Steps(); i++ {
		n := stream.Poisson(j.p.Lambda * grid.Dt(i))
		for k := 0; k < n; k++ {
			jumps += j.p.JumpMean + j.p.JumpStd*stream.Normal()
		}
		x[i+1] = base.Values[i+1] + jumps
	}
	return models.NewPath(grid, x)
}
