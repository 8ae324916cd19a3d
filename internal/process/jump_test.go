package process

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/noise"
	"github.com/quantforge/stoch/internal/randsrc"
)

func TestHestonValidation(t *testing.T) {
	tests := []struct {
		name string
		p    HestonParams
	}{
		{"zero s0", HestonParams{S0: 0, V0: 0.04, Kappa: 1, Theta: 0.04, Xi: 0.2, Rho: -0.7}},
		{"negative v0", HestonParams{S0: 100, V0: -0.1, Kappa: 1, Theta: 0.04, Xi: 0.2, Rho: 0}},
		{"rho out of range", HestonParams{S0: 100, V0: 0.04, Kappa: 1, Theta: 0.04, Xi: 0.2, Rho: -1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHeston(tt.p); !errors.Is(err, models.ErrInvalidParameters) {
				t.Fatalf("want ErrInvalidParameters, got %v", err)
			}
		})
	}
}

func TestHestonVarianceFloor(t *testing.T) {
	h, err := NewHeston(HestonParams{
		Mu: 0.05, S0: 100, V0: 0.04, Kappa: 1.5, Theta: 0.04, Xi: 0.8, Rho: -0.7,
	})
	if err != nil {
		t.Fatal(err)
	}
	grid := mustGrid(t, 0, 1, 250)
	stream := randsrc.NewStream(9)
	for r := 0; r < 50; r++ {
		price, variance, err := h.SimulatePair(grid, stream)
		if err != nil {
			t.Fatal(err)
		}
		for i := range variance.Values {
			if variance.Values[i] < 0 {
				t.Fatalf("variance negative at %d: %v", i, variance.Values[i])
			}
			if price.Values[i] <= 0 {
				t.Fatalf("price non-positive at %d: %v", i, price.Values[i])
			}
		}
	}
}

func TestHestonRejectsPerfectCorrelation(t *testing.T) {
	for _, rho := range []float64{-1, 1} {
		_, err := NewHeston(HestonParams{S0: 100, V0: 0.04, Kappa: 1, Theta: 0.04, Xi: 0.2, Rho: rho})
		if !errors.Is(err, models.ErrInvalidCorrelationMatrix) {
			t.Errorf("rho=%v: want ErrInvalidCorrelationMatrix, got %v", rho, err)
		}
	}
}

func TestHestonUsesCorrelatedShocks(t *testing.T) {
	const rho = -0.5
	h, err := NewHeston(HestonParams{Mu: 0.05, S0: 100, V0: 0.04, Kappa: 1, Theta: 0.04, Xi: 0.3, Rho: rho})
	if err != nil {
		t.Fatal(err)
	}
	grid := mustGrid(t, 0, 1, 100)
	price, variance, err := h.SimulatePair(grid, randsrc.NewStream(11))
	if err != nil {
		t.Fatal(err)
	}

	// Rebuild both paths from the shared correlation factor on an equally
	// seeded stream.
	corr, err := noise.NewCorrelated(mat.NewSymDense(2, []float64{1, rho, rho, 1}))
	if err != nil {
		t.Fatal(err)
	}
	inc := corr.Increments(randsrc.NewStream(11), grid)
	s, v := 100.0, 0.04
	for i, w := range inc {
		dt := grid.Dt(i)
		vPos := math.Max(v, 0)
		s *= math.Exp((0.05-0.5*vPos)*dt + math.Sqrt(vPos)*w[0])
		v = math.Max(0, v+1*(0.04-vPos)*dt+0.3*math.Sqrt(vPos)*w[1])
		if math.Abs(price.Values[i+1]-s) > 1e-9 {
			t.Fatalf("price step %d: %v, want %v", i, price.Values[i+1], s)
		}
		if math.Abs(variance.Values[i+1]-v) > 1e-12 {
			t.Fatalf("variance step %d: %v, want %v", i, variance.Values[i+1], v)
		}
	}
}

func TestHestonReproducible(t *testing.T) {
	h, _ := NewHeston(HestonParams{Mu: 0, S0: 100, V0: 0.04, Kappa: 1, Theta: 0.04, Xi: 0.3, Rho: -0.5})
	grid := mustGrid(t, 0, 1, 100)
	a, err := h.Simulate(grid, randsrc.NewStream(2))
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Simulate(grid, randsrc.NewStream(2))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("value %d diverged", i)
		}
	}
}

func TestMertonZeroIntensityMatchesGBM(t *testing.T) {
	grid := mustGrid(t, 0, 1, 100)
	m, err := NewMerton(MertonParams{Mu: 0.05, Sigma: 0.2, Lambda: 0, JumpMean: 0, JumpStd: 0.1, X0: 100})
	if err != nil {
		t.Fatal(err)
	}
	g, _ := NewGBM(0.05, 0.2, 100, SchemeExact)

	a, err := m.Simulate(grid, randsrc.NewStream(77))
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Simulate(grid, randsrc.NewStream(77))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Values {
		if math.Abs(a.Values[i]-b.Values[i]) > 1e-9 {
			t.Fatalf("step %d: merton %v vs gbm %v", i, a.Values[i], b.Values[i])
		}
	}
}

func TestMertonJumpsChangeThePath(t *testing.T) {
	grid := mustGrid(t, 0, 1, 100)
	noJumps, _ := NewMerton(MertonParams{Mu: 0, Sigma: 0.2, Lambda: 0, JumpStd: 0.1, X0: 100})
	jumps, _ := NewMerton(MertonParams{Mu: 0, Sigma: 0.2, Lambda: 50, JumpMean: -0.05, JumpStd: 0.1, X0: 100})

	a, _ := noJumps.Simulate(grid, randsrc.NewStream(4))
	b, _ := jumps.Simulate(grid, randsrc.NewStream(4))
	identical := true
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			identical = false
			break
		}
	}
	if identical {
		t.Error("lambda=50 produced a path identical to lambda=0")
	}
}

func TestKouValidation(t *testing.T) {
	tests := []struct {
		name string
		p    KouParams
	}{
		{"bad p_up", KouParams{Sigma: 0.2, Lambda: 1, PUp: 1.2, Eta1: 10, Eta2: 10, X0: 100}},
		{"zero eta1", KouParams{Sigma: 0.2, Lambda: 1, PUp: 0.5, Eta1: 0, Eta2: 10, X0: 100}},
		{"zero x0", KouParams{Sigma: 0.2, Lambda: 1, PUp: 0.5, Eta1: 10, Eta2: 10, X0: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewKou(tt.p); !errors.Is(err, models.ErrInvalidParameters) {
				t.Fatalf("want ErrInvalidParameters, got %v", err)
			}
		})
	}
}

func TestKouStaysPositive(t *testing.T) {
	k, err := NewKou(KouParams{Mu: 0, Sigma: 0.2, Lambda: 5, PUp: 0.4, Eta1: 10, Eta2: 5, X0: 100})
	if err != nil {
		t.Fatal(err)
	}
	grid := mustGrid(t, 0, 1, 200)
	stream := randsrc.NewStream(15)
	for r := 0; r < 20; r++ {
		p, err := k.Simulate(grid, stream)
		if err != nil {
			t.Fatal(err)
		}
		for i, v := range p.Values {
			if v <= 0 || math.IsNaN(v) {
				t.Fatalf("value at %d invalid: %v", i, v)
			}
		}
	}
}

func TestJumpFOUOverlaysJumps(t *testing.T) {
	grid := mustGrid(t, 0, 1, 128)
	j, err := NewJumpFOU(JumpFOUParams{
		Hurst: 0.7, Theta: 1, Mu: 0, Sigma: 0.5,
		Lambda: 0, JumpMean: 0, JumpStd: 0.1, X0: 0,
	})
	if err != nil {
		t.Fatal(err)
	}
	f, _ := NewFOU(0.7, 1, 0, 0.5, 0)

	// With zero intensity the jump overlay is the identity.
	a, err := j.Simulate(grid, randsrc.NewStream(6))
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Simulate(grid, randsrc.NewStream(6))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("step %d diverged with lambda=0", i)
		}
	}
}

func TestJumpFOUValidation(t *testing.T) {
	if _, err := NewJumpFOU(JumpFOUParams{Hurst: 1.2, Sigma: 1, Lambda: 1}); !errors.Is(err, models.ErrInvalidParameters) {
		t.Fatalf("want ErrInvalidParameters, got %v", err)
	}
	if _, err := NewJumpFOU(JumpFOUParams{Hurst: 0.7, Sigma: 1, Lambda: -1}); !errors.Is(err, models.ErrInvalidParameters) {
		t.Fatalf("want ErrInvalidParameters for negative lambda, got %v", err)
	}
}
