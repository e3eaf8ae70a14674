// Package state defines the run-state store interface for silversmith.
// Backends persist run reports, per-table watermarks, and the distributed
// locks that fence concurrent runs.
package state

import (
	"context"
	"time"

	"github.com/lakecraft/silversmith/pkg/types"
)

// Store is the run-state backend interface. Get methods return (nil, nil)
// when nothing is recorded: a missing watermark is the normal first-run
// condition, not an error.
type Store interface {
	// Run history
	PutRun(ctx context.Context, report types.RunReport) error
	GetRun(ctx context.Context, runID string) (*types.RunReport, error)
	ListRuns(ctx context.Context, limit int) ([]types.RunReport, error)

	// Watermarks record the newest consolidated ordering value per table.
	PutWatermark(ctx context.Context, mark types.WatermarkRecord) error
	GetWatermark(ctx context.Context, table string) (*types.WatermarkRecord, error)
	ListWatermarks(ctx context.Context) ([]types.WatermarkRecord, error)

	// Distributed locking for cross-process run fencing
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error

	// Lifecycle
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Ping(ctx context.Context) error
}

// RunLockKey names the lock fencing one (table, date) ingestion.
func RunLockKey(table, date string) string {
	return "ingest:" + table + ":" + date
}

// DayLockKey names the lock fencing one whole-date run.
func DayLockKey(date string) string {
	return "run:" + date
}
