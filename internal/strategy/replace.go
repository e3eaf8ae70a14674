package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/lakecraft/silversmith/internal/warehouse"
	"github.com/lakecraft/silversmith/pkg/types"
)

// replaceExecutor implements replace_partition for full-snapshot tables.
// Target rows for the load day are deleted and the staged snapshot is
// inserted unconditionally with the partition column stamped from the load
// day. Delete and insert are deliberately separate statements; an insert
// failure leaves the partition empty and reports partial_replace so the day
// is re-run before anyone queries it.
type replaceExecutor struct {
	db      *warehouse.DB
	targets *warehouse.Targets
}

var _ Executor = (*replaceExecutor)(nil)

func (r *replaceExecutor) Apply(ctx context.Context, staged types.StagingRelation, strat types.TableStrategy, day time.Time) (int64, error) {
	target, err := r.targets.Ensure(ctx, staged, strat, day)
	if err != nil {
		return 0, err
	}
	if staged.Rows == 0 {
		return 0, nil
	}

	dayStr := day.Format(types.DateLayout)
	purge := fmt.Sprintf("DELETE FROM %s WHERE %s = DATE %s",
		target.Relation, warehouse.QuoteIdent(strat.PartitionField), warehouse.QuoteLiteral(dayStr))
	if _, err := r.db.ExecContext(ctx, purge); err != nil {
		return 0, fmt.Errorf("clearing partition %s of %s: %w", dayStr, target.Relation, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s BY NAME %s",
		target.Relation, warehouse.SilverSelect(staged, strat, day))
	res, err := r.db.ExecContext(ctx, insert)
	if err != nil {
		return 0, types.Errorf(types.CodePartialReplace, staged.Table,
			"partition %s deleted but not reloaded: %w", dayStr, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting rows written to %s: %w", target.Relation, err)
	}
	return affected, nil
}
