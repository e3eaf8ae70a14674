package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lakecraft/silversmith/pkg/types"
)

// Targets ensures durable silver relations exist before strategies write
// into them.
type Targets struct {
	db *DB
}

// NewTargets returns a Targets managing db's silver schema.
func NewTargets(db *DB) *Targets {
	return &Targets{db: db}
}

// Ensure creates the silver relation for the staged table when missing. The
// schema derives from the staging relation minus helper columns; for
// replace_partition tables the partition column is stamped as DATE from the
// load day. Ensure is idempotent, never alters an existing relation, and
// also maintains cluster indexes on relations that already exist.
func (t *Targets) Ensure(ctx context.Context, staged types.StagingRelation, strat types.TableStrategy, day time.Time) (types.TargetRelation, error) {
	relation := QualifiedName(t.db.SilverSchema(), staged.Table)

	var existing int
	err := t.db.QueryRowContext(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
		t.db.SilverSchema(), staged.Table).Scan(&existing)
	if err != nil {
		return types.TargetRelation{}, fmt.Errorf("checking target %s: %w", relation, err)
	}

	if existing == 0 {
		create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s AS %s WHERE 1=0",
			relation, SilverSelect(staged, strat, day))
		if _, err := t.db.ExecContext(ctx, create); err != nil {
			return types.TargetRelation{}, fmt.Errorf("creating target %s: %w", relation, err)
		}
	}

	if len(strat.ClusterColumns) > 0 {
		idx := fmt.Sprintf("idx_%s_%s", staged.Table, strings.Join(strat.ClusterColumns, "_"))
		ddl := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			QuoteIdent(idx), relation, IdentList(strat.ClusterColumns))
		if _, err := t.db.ExecContext(ctx, ddl); err != nil {
			return types.TargetRelation{}, fmt.Errorf("indexing target %s: %w", relation, err)
		}
	}

	return types.TargetRelation{
		Table:    staged.Table,
		Relation: relation,
		Created:  existing == 0,
	}, nil
}

// SilverSelect builds the projection that reads staged rows as silver rows.
// Helper columns are stripped; replace_partition stamps the partition column
// from the load day, overriding any staged column of the same name so every
// inserted row lands in the partition being replaced. Target creation uses
// the same projection under WHERE 1=0 so the two schemas cannot drift.
func SilverSelect(staged types.StagingRelation, strat types.TableStrategy, day time.Time) string {
	excluded := []string{LoadDayColumn, ArrivalSeqColumn}
	stamp := ""
	if strat.Strategy == types.ReplacePartition {
		if hasColumn(staged.Columns, strat.PartitionField) {
			excluded = append(excluded, strat.PartitionField)
		}
		stamp = fmt.Sprintf(", DATE %s AS %s",
			QuoteLiteral(day.Format(types.DateLayout)), QuoteIdent(strat.PartitionField))
	}
	return fmt.Sprintf("SELECT * EXCLUDE (%s)%s FROM %s", IdentList(excluded), stamp, staged.Relation)
}

func hasColumn(cols []types.Column, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return true
		}
	}
	return false
}
