package strategy

import (
	"context"
	"time"

	"github.com/lakecraft/silversmith/internal/warehouse"
	"github.com/lakecraft/silversmith/pkg/types"
)

// upsertExecutor implements upsert_scd1 for slowly-changing reference
// tables. Same skeleton as incremental_merge, but the ordering column is a
// last-modified marker and an equal value still overwrites every column, so
// corrective backfills with unchanged timestamps land.
type upsertExecutor struct {
	db      *warehouse.DB
	targets *warehouse.Targets
}

var _ Executor = (*upsertExecutor)(nil)

func (u *upsertExecutor) Apply(ctx context.Context, staged types.StagingRelation, strat types.TableStrategy, day time.Time) (int64, error) {
	target, err := u.targets.Ensure(ctx, staged, strat, day)
	if err != nil {
		return 0, err
	}
	if staged.Rows == 0 {
		return 0, nil
	}
	return applyKeyed(ctx, u.db, staged, target, strat, ">=")
}
