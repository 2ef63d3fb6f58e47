// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jvaisto/clerkbot/internal/archiver"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RunStoreConfig controls the Postgres connection pool used for run rows.
type RunStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// RunStore persists run history rows in Postgres.
type RunStore struct {
	pool  dbPool
	table string
}

// NewRunStore creates a Postgres-backed RunStore using the provided config.
func NewRunStore(ctx context.Context, cfg RunStoreConfig) (*RunStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RunStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewRunStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRunStoreWithPool(pool dbPool, table string) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RunStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *RunStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordRun inserts a run row into Postgres.
func (s *RunStore) RecordRun(ctx context.Context, rec archiver.RunRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("run store is not configured")
	}
	if rec.ID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	page,
	started_at,
	finished_at,
	archived_count,
	modified_count,
	skipped,
	summary
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, s.table)

	args := []any{
		rec.ID,
		rec.Page,
		rec.Started,
		rec.Finished,
		rec.ArchivedCount,
		rec.ModifiedCount,
		rec.Skipped,
		rec.Summary,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. An empty page
// matches all pages; limit caps the result size.
func (s *RunStore) ListRuns(ctx context.Context, page string, limit int) ([]archiver.RunRecord, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("run store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT id, page, started_at, finished_at, archived_count, modified_count, skipped, summary
FROM %s
WHERE ($1 = '' OR page = $1)
ORDER BY started_at DESC
LIMIT $2`, s.table)

	rows, err := s.pool.Query(ctx, query, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []archiver.RunRecord
	for rows.Next() {
		var rec archiver.RunRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Page,
			&rec.Started,
			&rec.Finished,
			&rec.ArchivedCount,
			&rec.ModifiedCount,
			&rec.Skipped,
			&rec.Summary,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// GetRun returns a single run by id, or ErrRunNotFound.
func (s *RunStore) GetRun(ctx context.Context, runID string) (archiver.RunRecord, error) {
	if s == nil || s.pool == nil {
		return archiver.RunRecord{}, fmt.Errorf("run store is not configured")
	}
	query := fmt.Sprintf(`
SELECT id, page, started_at, finished_at, archived_count, modified_count, skipped, summary
FROM %s
WHERE id = $1`, s.table)

	var rec archiver.RunRecord
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&rec.ID,
		&rec.Page,
		&rec.Started,
		&rec.Finished,
		&rec.ArchivedCount,
		&rec.ModifiedCount,
		&rec.Skipped,
		&rec.Summary,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return archiver.RunRecord{}, archiver.ErrRunNotFound
	}
	if err != nil {
		return archiver.RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}
