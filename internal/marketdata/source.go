// Package marketdata loads observed price series for estimation and
// calibration, with a CSV file source and a SQLite-backed cache.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/quantforge/stoch/internal/models"
)

// hoursPerYear converts wall-clock spans to the year-fraction time unit
// used by the process simulators.
const hoursPerYear = 24 * 365.25

// Point is one observed price.
type Point struct {
	Time  time.Time
	Price float64
}

// Series is an ordered price series for one symbol.
type Series struct {
	Symbol string
	Points []Point
}

// Source fetches a price series for a symbol over a closed time range.
type Source interface {
	Fetch(ctx context.Context, symbol string, from, to time.Time) (Series, error)
}

// ToPath converts the series to a path on a year-fraction grid anchored
// at the first observation. Timestamps must be strictly increasing.
func (s Series) ToPath() (models.Path, error) {
	if len(s.Points) < 2 {
		return models.Path{}, fmt.Errorf("%w: series %q has %d points, need at least 2",
			models.ErrInsufficientData, s.Symbol, len(s.Points))
	}
	times := make([]float64, len(s.Points))
	values := make([]float64, len(s.Points))
	t0 := s.Points[0].Time
	for i, p := range s.Points {
		times[i] = p.Time.Sub(t0).Hours() / hoursPerYear
		values[i] = p.Price
	}
	grid, err := models.NewGrid(times)
	if err != nil {
		return models.Path{}, fmt.Errorf("series %q: %w", s.Symbol, err)
	}
	return models.NewPath(grid, values)
}

// Slice returns the points within [from, to], preserving order.
func (s Series) Slice(from, to time.Time) Series {
	out := Series{Symbol: s.Symbol}
	for _, p := range s.Points {
		if p.Time.Before(from) || p.Time.After(to) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}
