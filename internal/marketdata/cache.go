package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS bars (
    symbol TEXT NOT NULL,
    ts INTEGER NOT NULL,  -- unix nanoseconds
    price REAL NOT NULL,
    PRIMARY KEY (symbol, ts)
);

-- Closed ranges already fetched from the upstream source. A request
-- contained in one of these rows is served from bars alone.
CREATE TABLE IF NOT EXISTS coverage (
    symbol TEXT NOT NULL,
    from_ts INTEGER NOT NULL,
    to_ts INTEGER NOT NULL,
    fetched_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coverage_symbol ON coverage(symbol);
`

// Cache wraps a Source with a SQLite store so repeated requests for
// covered ranges never hit the upstream source.
type Cache struct {
	mu       sync.Mutex
	db       *sql.DB
	upstream Source
}

// NewCache opens (or creates) the cache database at dbPath.
func NewCache(dbPath string, upstream Source) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with a single writer

	if _, err := db.ExecContext(context.Background(), cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &Cache{db: db, upstream: upstream}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error { return c.db.Close() }

// Fetch serves from the cache when the range is covered, otherwise
// forwards to the upstream source and stores the result.
func (c *Cache) Fetch(ctx context.Context, symbol string, from, to time.Time) (Series, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	covered, err := c.isCovered(ctx, symbol, from, to)
	if err != nil {
		return Series{}, err
	}
	if covered {
		return c.read(ctx, symbol, from, to)
	}

	s, err := c.upstream.Fetch(ctx, symbol, from, to)
	if err != nil {
		return Series{}, err
	}
	if err := c.store(ctx, s, from, to); err != nil {
		return Series{}, err
	}
	return s, nil
}

func (c *Cache) isCovered(ctx context.Context, symbol string, from, to time.Time) (bool, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coverage WHERE symbol = ? AND from_ts <= ? AND to_ts >= ?`,
		symbol, from.UnixNano(), to.UnixNano()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking coverage: %w", err)
	}
	return n > 0, nil
}

func (c *Cache) read(ctx context.Context, symbol string, from, to time.Time) (Series, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT ts, price FROM bars WHERE symbol = ? AND ts BETWEEN ? AND ? ORDER BY ts`,
		symbol, from.UnixNano(), to.UnixNano())
	if err != nil {
		return Series{}, fmt.Errorf("reading cached bars: %w", err)
	}
	defer rows.Close()

	s := Series{Symbol: symbol}
	for rows.Next() {
		var ts int64
		var price float64
		if err := rows.Scan(&ts, &price); err != nil {
			return Series{}, fmt.Errorf("scanning cached bar: %w", err)
		}
		s.Points = append(s.Points, Point{Time: time.Unix(0, ts).UTC(), Price: price})
	}
	if err := rows.Err(); err != nil {
		return Series{}, fmt.Errorf("reading cached bars: %w", err)
	}
	return s, nil
}

func (c *Cache) store(ctx context.Context, s Series, from, to time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting cache transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range s.Points {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO bars (symbol, ts, price) VALUES (?, ?, ?)`,
			s.Symbol, p.Time.UnixNano(), p.Price); err != nil {
			return fmt.Errorf("storing bar: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO coverage (symbol, from_ts, to_ts, fetched_at) VALUES (?, ?, ?, ?)`,
		s.Symbol, from.UnixNano(), to.UnixNano(), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("recording coverage: %w", err)
	}
	return tx.Commit()
}
