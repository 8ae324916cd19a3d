package mcp

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/process"
	"github.com/quantforge/stoch/internal/randsrc"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(&Config{Name: "stoch", Version: "test", Workers: 2})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

func TestHandleSimulate(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleSimulate(ctx, nil, SimulateInput{
		Process: "gbm",
		Params:  map[string]float64{"mu": 0.05, "sigma": 0.2, "x0": 100},
		T1:      1,
		Steps:   252,
		Seed:    42,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Times) != 253 || len(out.Values) != 253 {
		t.Fatalf("got %d times, %d values, want 253 each", len(out.Times), len(out.Values))
	}
	if out.Values[0] != 100 {
		t.Errorf("initial value = %v, want 100", out.Values[0])
	}

	// Same seed reproduces the same path.
	_, again, err := s.handleSimulate(ctx, nil, SimulateInput{
		Process: "gbm",
		Params:  map[string]float64{"mu": 0.05, "sigma": 0.2, "x0": 100},
		T1:      1,
		Steps:   252,
		Seed:    42,
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := range out.Values {
		if out.Values[i] != again.Values[i] {
			t.Fatalf("path not reproducible at index %d", i)
		}
	}
}

func TestHandleSimulateErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, _, err := s.handleSimulate(ctx, nil, SimulateInput{Process: "gbm", T1: 1, Steps: 0})
	if !errors.Is(err, models.ErrInvalidGrid) {
		t.Errorf("zero steps: want ErrInvalidGrid, got %v", err)
	}

	_, _, err = s.handleSimulate(ctx, nil, SimulateInput{Process: "warp-drive", T1: 1, Steps: 10})
	if !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("unknown process: want ErrInvalidParameters, got %v", err)
	}
}

func TestHandleEnsembleStats(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleEnsembleStats(context.Background(), nil, EnsembleStatsInput{
		Process: "gbm",
		Params:  map[string]float64{"mu": 0.05, "sigma": 0.2, "x0": 100},
		T1:      1,
		Steps:   100,
		Paths:   2000,
		Seed:    7,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Paths != 2000 {
		t.Fatalf("Paths = %d, want 2000", out.Paths)
	}
	// E[S_T] = 100 * exp(0.05) ~ 105.13
	want := 100 * math.Exp(0.05)
	if math.Abs(out.TerminalMean-want)/want > 0.02 {
		t.Errorf("TerminalMean = %v, want ~%v", out.TerminalMean, want)
	}
	if out.TerminalStd <= 0 {
		t.Errorf("TerminalStd = %v, want > 0", out.TerminalStd)
	}
}

func TestHandleEnsembleStatsBadSize(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.handleEnsembleStats(context.Background(), nil, EnsembleStatsInput{
		Process: "bm",
		T1:      1,
		Steps:   10,
		Paths:   0,
	})
	if !errors.Is(err, models.ErrInvalidEnsembleSize) {
		t.Fatalf("want ErrInvalidEnsembleSize, got %v", err)
	}
}

func TestHandleEstimate(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	grid, err := models.NewUniformGrid(0, 1, 2048)
	if err != nil {
		t.Fatal(err)
	}
	sim, err := process.NewFBM(0.7, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	path, err := sim.Simulate(grid, randsrc.NewStream(3))
	if err != nil {
		t.Fatal(err)
	}

	for _, method := range []string{"", "rs", "aggvar"} {
		_, out, err := s.handleEstimate(ctx, nil, EstimateInput{
			Increments: path.Increments(),
			Method:     method,
		})
		if err != nil {
			t.Fatalf("method %q: %v", method, err)
		}
		if math.Abs(out.Hurst-0.7) > 0.15 {
			t.Errorf("method %q: Hurst = %v, want ~0.7", method, out.Hurst)
		}
		if out.Windows < 2 {
			t.Errorf("method %q: Windows = %d", method, out.Windows)
		}
	}

	_, _, err = s.handleEstimate(ctx, nil, EstimateInput{
		Increments: path.Increments(),
		Method:     "wavelets",
	})
	if !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("unknown method: want ErrInvalidParameters, got %v", err)
	}

	_, _, err = s.handleEstimate(ctx, nil, EstimateInput{Increments: []float64{1, 2, 3}})
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Errorf("short series: want ErrInsufficientData, got %v", err)
	}
}

func TestHandleCalibrateGBM(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	grid, err := models.NewUniformGrid(0, 1, 50000)
	if err != nil {
		t.Fatal(err)
	}
	sim, err := process.NewGBM(0.05, 0.2, 100, process.SchemeExact)
	if err != nil {
		t.Fatal(err)
	}
	path, err := sim.Simulate(grid, randsrc.NewStream(13))
	if err != nil {
		t.Fatal(err)
	}

	_, out, err := s.handleCalibrate(ctx, nil, CalibrateInput{
		Model:  "gbm",
		Times:  grid.Points(),
		Values: path.Values,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != "converged" {
		t.Fatalf("Status = %q, want converged", out.Status)
	}
	if math.Abs(out.Params[1]-0.2)/0.2 > 0.02 {
		t.Errorf("recovered sigma = %v, want ~0.2", out.Params[1])
	}
}

func TestHandleCalibrateRateLimited(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	// Burn through the burst; the bad input still consumes a token
	// because the limit check runs before validation.
	in := CalibrateInput{Model: "gbm", Times: []float64{0, 1}, Values: []float64{100}}
	for i := 0; i < 3; i++ {
		_, _, err := s.handleCalibrate(ctx, nil, in)
		if !errors.Is(err, models.ErrInvalidParameters) {
			t.Fatalf("call %d: want ErrInvalidParameters, got %v", i+1, err)
		}
	}

	_, _, err := s.handleCalibrate(ctx, nil, in)
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("want rate limit error, got %v", err)
	}
}

func TestHandleCalibrateErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, _, err := s.handleCalibrate(ctx, nil, CalibrateInput{
		Model:  "gbm",
		Times:  []float64{0, 1},
		Values: []float64{100},
	})
	if !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("length mismatch: want ErrInvalidParameters, got %v", err)
	}

	times := make([]float64, 20)
	values := make([]float64, 20)
	for i := range times {
		times[i] = float64(i)
		values[i] = 100
	}
	_, _, err = s.handleCalibrate(ctx, nil, CalibrateInput{
		Model:  "garch",
		Times:  times,
		Values: values,
	})
	if !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("unknown model: want ErrInvalidParameters, got %v", err)
	}
}
