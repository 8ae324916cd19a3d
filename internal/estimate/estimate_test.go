package estimate

import (
	"errors"
	"math"
	"testing"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/process"
	"github.com/quantforge/stoch/internal/randsrc"
)

func TestHurstInsufficientData(t *testing.T) {
	short := make([]float64, MinHurstSamples-1)
	if _, err := HurstRS(short); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("HurstRS: want ErrInsufficientData, got %v", err)
	}
	if _, err := HurstAggVar(short); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("HurstAggVar: want ErrInsufficientData, got %v", err)
	}
}

func fbmIncrements(t *testing.T, h float64, n int, seed uint64) []float64 {
	t.Helper()
	grid, err := models.NewUniformGrid(0, 1, n)
	if err != nil {
		t.Fatal(err)
	}
	sim, err := process.NewFBM(h, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	p, err := sim.Simulate(grid, randsrc.NewStream(seed))
	if err != nil {
		t.Fatal(err)
	}
	return p.Increments()
}

func TestHurstRecoversExponent(t *testing.T) {
	tests := []struct {
		name string
		h    float64
	}{
		{"antipersistent", 0.3},
		{"brownian", 0.5},
		{"persistent", 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc := fbmIncrements(t, tt.h, 4096, 101)

			rs, err := HurstRS(inc)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(rs.H-tt.h) > 0.12 {
				t.Errorf("R/S H = %v, want ~%v", rs.H, tt.h)
			}
			if rs.R2 < 0.9 {
				t.Errorf("R/S regression R2 = %v, want > 0.9", rs.R2)
			}

			av, err := HurstAggVar(inc)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(av.H-tt.h) > 0.12 {
				t.Errorf("aggregated variance H = %v, want ~%v", av.H, tt.h)
			}
		})
	}
}

func TestMomentsAgainstClosedForm(t *testing.T) {
	m := Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if m.Count() != 8 {
		t.Fatalf("Count = %d", m.Count())
	}
	if math.Abs(m.Mean()-5) > 1e-12 {
		t.Errorf("Mean = %v, want 5", m.Mean())
	}
	// Population m2 = 32, sample variance = 32/7.
	if got, want := m.Variance(), 32.0/7.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("Variance = %v, want %v", got, want)
	}
}

func TestMomentsStableUnderLargeOffset(t *testing.T) {
	// The classic catastrophic-cancellation case: tiny variance on top of
	// a huge mean.
	const offset = 1e9
	var m Moments
	for i := 0; i < 10000; i++ {
		m.Add(offset + float64(i%2))
	}
	if got := m.Variance(); math.Abs(got-0.25) > 1e-6 {
		t.Errorf("Variance = %v, want ~0.25", got)
	}
}

func TestMomentsGaussianShape(t *testing.T) {
	stream := randsrc.NewStream(55)
	var m Moments
	for i := 0; i < 200000; i++ {
		m.Add(stream.Normal())
	}
	if math.Abs(m.Mean()) > 0.01 {
		t.Errorf("Mean = %v", m.Mean())
	}
	if math.Abs(m.Variance()-1) > 0.02 {
		t.Errorf("Variance = %v", m.Variance())
	}
	if math.Abs(m.Skewness()) > 0.05 {
		t.Errorf("Skewness = %v", m.Skewness())
	}
	if math.Abs(m.Kurtosis()) > 0.1 {
		t.Errorf("Kurtosis = %v", m.Kurtosis())
	}
}

func TestRealizedVolatilityRecoversGBMSigma(t *testing.T) {
	grid, _ := models.NewUniformGrid(0, 1, 100000)
	sim, _ := process.NewGBM(0.05, 0.2, 100, process.SchemeExact)
	p, err := sim.Simulate(grid, randsrc.NewStream(202))
	if err != nil {
		t.Fatal(err)
	}
	vol, err := RealizedVolatility(p)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(vol-0.2)/0.2 > 0.01 {
		t.Errorf("realized vol = %v, want 0.2 within 1%%", vol)
	}
}

func TestRealizedVolatilityErrors(t *testing.T) {
	grid, _ := models.NewUniformGrid(0, 1, 2)
	p, _ := models.NewPath(grid, []float64{100, -1, 100})
	if _, err := RealizedVolatility(p); !errors.Is(err, models.ErrInvalidParameters) {
		t.Fatalf("want ErrInvalidParameters for negative price, got %v", err)
	}
	if _, err := RealizedVolatility(models.Path{}); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("want ErrInsufficientData for empty path, got %v", err)
	}
}
