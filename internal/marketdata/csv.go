package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/quantforge/stoch/internal/models"
)

// timeLayouts are tried in order when parsing the timestamp column.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CSVSource reads per-symbol CSV files named <symbol>.csv from a
// directory. Each file holds a timestamp column followed by a price
// column; a header row is skipped when the first field does not parse
// as a timestamp.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// Fetch reads the symbol's file and returns the points within [from, to].
func (c *CSVSource) Fetch(ctx context.Context, symbol string, from, to time.Time) (Series, error) {
	if err := ctx.Err(); err != nil {
		return Series{}, err
	}
	path := filepath.Join(c.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return Series{}, fmt.Errorf("opening series for %q: %w", symbol, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return Series{}, fmt.Errorf("reading %s: %w", path, err)
	}

	s := Series{Symbol: symbol}
	for i, row := range rows {
		if len(row) < 2 {
			return Series{}, fmt.Errorf("%w: %s row %d has %d fields, need 2",
				models.ErrInvalidParameters, path, i+1, len(row))
		}
		ts, err := parseTime(row[0])
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return Series{}, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		price, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return Series{}, fmt.Errorf("%s row %d: parsing price: %w", path, i+1, err)
		}
		s.Points = append(s.Points, Point{Time: ts, Price: price})
	}

	sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Time.Before(s.Points[j].Time) })
	return s.Slice(from, to), nil
}

func parseTime(field string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, field); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", models.ErrInvalidParameters, field)
}
