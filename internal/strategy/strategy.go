// Package strategy reconciles staged bronze partitions into silver tables.
// Each configured table carries a strategy descriptor; executors implement
// the per-kind reconciliation semantics.
package strategy

import (
	"context"
	"time"

	"github.com/lakecraft/silversmith/internal/warehouse"
	"github.com/lakecraft/silversmith/pkg/types"
)

// Executor applies one strategy kind against a staged partition and returns
// the number of rows written to the target.
type Executor interface {
	Apply(ctx context.Context, staged types.StagingRelation, strat types.TableStrategy, day time.Time) (int64, error)
}

// Engine routes staged partitions to the executor registered for their
// strategy kind. The dispatch is closed: kinds outside the registered set
// fail with invalid_strategy.
type Engine struct {
	executors map[types.StrategyKind]Executor
}

// NewEngine returns an Engine with the three built-in executors wired
// against db.
func NewEngine(db *warehouse.DB) *Engine {
	targets := warehouse.NewTargets(db)
	return &Engine{
		executors: map[types.StrategyKind]Executor{
			types.IncrementalMerge: &mergeExecutor{db: db, targets: targets},
			types.ReplacePartition: &replaceExecutor{db: db, targets: targets},
			types.UpsertSCD1:       &upsertExecutor{db: db, targets: targets},
		},
	}
}

// Apply runs the executor for the table's strategy kind.
func (e *Engine) Apply(ctx context.Context, staged types.StagingRelation, strat types.TableStrategy, day time.Time) (int64, error) {
	ex, ok := e.executors[strat.Strategy]
	if !ok {
		return 0, types.Errorf(types.CodeInvalidStrategy, staged.Table, "unknown strategy %q", strat.Strategy)
	}
	return ex.Apply(ctx, staged, strat, day)
}
