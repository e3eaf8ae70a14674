package strategy

import (
	"context"
	"time"

	"github.com/lakecraft/silversmith/internal/warehouse"
	"github.com/lakecraft/silversmith/pkg/types"
)

// mergeExecutor implements incremental_merge for append-heavy event tables.
// Staged rows are deduplicated per key, newest ordering value first with
// later-arriving files breaking ties, and a staged row replaces the target
// row only when its ordering value is strictly greater. Late replays of
// already-consolidated data therefore fall out as no-ops.
type mergeExecutor struct {
	db      *warehouse.DB
	targets *warehouse.Targets
}

var _ Executor = (*mergeExecutor)(nil)

func (m *mergeExecutor) Apply(ctx context.Context, staged types.StagingRelation, strat types.TableStrategy, day time.Time) (int64, error) {
	target, err := m.targets.Ensure(ctx, staged, strat, day)
	if err != nil {
		return 0, err
	}
	if staged.Rows == 0 {
		return 0, nil
	}
	return applyKeyed(ctx, m.db, staged, target, strat, ">")
}
