package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/passrate/go-pass-metrics/internal/model"
)

// RunSummary is one cached run's metadata for list output.
type RunSummary struct {
	CacheKey          string
	CreatedAt         string
	MatchesProcessed  int
	MatchesSkipped    int
	AttributionMisses int
	MalformedEvents   int
}

// SaveAggregate stores the aggregate under the cache key, replacing any prior
// run for the same key. Only totals are persisted; the passes-per-minute rate
// is recomputed on load so it can never go stale against its inputs.
func (db *DB) SaveAggregate(key string, agg model.AggregateResult) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM position_totals WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("clear totals: %w", err)
	}
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs(cache_key, created_at, matches_processed, matches_skipped, attribution_misses, malformed_events)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key, time.Now().UTC().Format(time.RFC3339),
		agg.MatchesProcessed, agg.MatchesSkipped, agg.AttributionMisses, agg.MalformedEvents,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO position_totals(cache_key, position, passes, minutes)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for pos, t := range agg.Positions {
		if _, err := stmt.Exec(key, pos, t.Passes, t.Minutes); err != nil {
			return fmt.Errorf("insert totals for %q: %w", pos, err)
		}
	}
	return tx.Commit()
}

// LoadAggregate reads the aggregate stored under the cache key. Returns
// (nil, nil) when no run exists for the key, and an error wrapping
// ErrCacheCorrupt when the stored form cannot be read back.
func (db *DB) LoadAggregate(key string) (*model.AggregateResult, error) {
	agg := model.NewAggregateResult()

	row := db.conn.QueryRow(`
		SELECT matches_processed, matches_skipped, attribution_misses, malformed_events
		FROM runs WHERE cache_key = ?`, key)
	err := row.Scan(&agg.MatchesProcessed, &agg.MatchesSkipped, &agg.AttributionMisses, &agg.MalformedEvents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run %q: %v: %w", key, err, ErrCacheCorrupt)
	}

	rows, err := db.conn.Query(`
		SELECT position, passes, minutes FROM position_totals WHERE cache_key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("read totals %q: %v: %w", key, err, ErrCacheCorrupt)
	}
	defer rows.Close()

	for rows.Next() {
		var pos string
		var t model.PositionTotals
		if err := rows.Scan(&pos, &t.Passes, &t.Minutes); err != nil {
			return nil, fmt.Errorf("scan totals %q: %v: %w", key, err, ErrCacheCorrupt)
		}
		agg.Positions[pos] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read totals %q: %v: %w", key, err, ErrCacheCorrupt)
	}
	return &agg, nil
}

// DeleteAggregate removes one cached run.
func (db *DB) DeleteAggregate(key string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM position_totals WHERE cache_key = ?", key); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM runs WHERE cache_key = ?", key); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteAll clears every cached run.
func (db *DB) DeleteAll() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM position_totals"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM runs"); err != nil {
		return err
	}
	return tx.Commit()
}

// ListRuns returns all cached runs, newest first.
func (db *DB) ListRuns() ([]RunSummary, error) {
	rows, err := db.conn.Query(`
		SELECT cache_key, created_at, matches_processed, matches_skipped, attribution_misses, malformed_events
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.CacheKey, &r.CreatedAt, &r.MatchesProcessed, &r.MatchesSkipped,
			&r.AttributionMisses, &r.MalformedEvents); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
