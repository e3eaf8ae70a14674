package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lakecraft/silversmith/internal/state"
	"github.com/lakecraft/silversmith/pkg/types"
)

// Store is a Postgres-backed run-state store.
type Store struct {
	pool *pgxpool.Pool
}

var _ state.Store = (*Store)(nil)

// New creates a Store and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate runs the schema DDL to create tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// PutRun upserts a run report.
func (s *Store) PutRun(ctx context.Context, report types.RunReport) error {
	outcomesJSON, err := json.Marshal(report.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal run outcomes: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO ingestion_runs (run_id, run_date, started_at, finished_at,
			succeeded, skipped, failed, rows_affected, outcomes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			run_date      = EXCLUDED.run_date,
			started_at    = EXCLUDED.started_at,
			finished_at   = EXCLUDED.finished_at,
			succeeded     = EXCLUDED.succeeded,
			skipped       = EXCLUDED.skipped,
			failed        = EXCLUDED.failed,
			rows_affected = EXCLUDED.rows_affected,
			outcomes      = EXCLUDED.outcomes,
			recorded_at   = NOW()
	`, report.RunID, report.Date, report.StartedAt, report.FinishedAt,
		report.Succeeded, report.Skipped, report.Failed, report.RowsAffected, outcomesJSON)
	return err
}

// GetRun retrieves a run report by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*types.RunReport, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, run_date, started_at, finished_at,
			succeeded, skipped, failed, rows_affected, outcomes
		FROM ingestion_runs
		WHERE run_id = $1
	`, runID)

	report, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListRuns returns recent run reports, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]types.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, run_date, started_at, finished_at,
			succeeded, skipped, failed, rows_affected, outcomes
		FROM ingestion_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []types.RunReport
	for rows.Next() {
		report, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

func scanRun(row pgx.Row) (*types.RunReport, error) {
	var r types.RunReport
	var outcomesJSON []byte
	if err := row.Scan(&r.RunID, &r.Date, &r.StartedAt, &r.FinishedAt,
		&r.Succeeded, &r.Skipped, &r.Failed, &r.RowsAffected, &outcomesJSON); err != nil {
		return nil, err
	}
	if len(outcomesJSON) > 0 {
		if err := json.Unmarshal(outcomesJSON, &r.Outcomes); err != nil {
			return nil, fmt.Errorf("unmarshal run outcomes: %w", err)
		}
	}
	return &r, nil
}

// PutWatermark upserts the watermark for a table.
func (s *Store) PutWatermark(ctx context.Context, mark types.WatermarkRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO watermarks (table_name, column_name, value, run_date, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (table_name) DO UPDATE SET
			column_name = EXCLUDED.column_name,
			value       = EXCLUDED.value,
			run_date    = EXCLUDED.run_date,
			updated_at  = EXCLUDED.updated_at
	`, mark.Table, mark.Column, mark.Value, mark.Date, mark.UpdatedAt)
	return err
}

// GetWatermark retrieves the watermark for a table.
func (s *Store) GetWatermark(ctx context.Context, table string) (*types.WatermarkRecord, error) {
	var m types.WatermarkRecord
	err := s.pool.QueryRow(ctx, `
		SELECT table_name, column_name, value, run_date, updated_at
		FROM watermarks
		WHERE table_name = $1
	`, table).Scan(&m.Table, &m.Column, &m.Value, &m.Date, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListWatermarks returns all watermarks ordered by table name.
func (s *Store) ListWatermarks(ctx context.Context) ([]types.WatermarkRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT table_name, column_name, value, run_date, updated_at
		FROM watermarks
		ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []types.WatermarkRecord
	for rows.Next() {
		var m types.WatermarkRecord
		if err := rows.Scan(&m.Table, &m.Column, &m.Value, &m.Date, &m.UpdatedAt); err != nil {
			return nil, err
		}
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

// AcquireLock takes the named lock when it is free or expired. The expiry
// arithmetic runs on the server clock so client skew cannot extend a lock.
func (s *Store) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO run_locks (lock_key, expires_at)
		VALUES ($1, NOW() + make_interval(secs => $2))
		ON CONFLICT (lock_key) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
		WHERE run_locks.expires_at < NOW()
	`, key, ttl.Seconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseLock releases the named lock.
func (s *Store) ReleaseLock(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM run_locks WHERE lock_key = $1`, key)
	return err
}

// Start migrates the schema.
func (s *Store) Start(ctx context.Context) error {
	return s.Migrate(ctx)
}

// Stop closes the connection pool.
func (s *Store) Stop(context.Context) error {
	s.pool.Close()
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}
