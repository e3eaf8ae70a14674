package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/lakecraft/silversmith/internal/warehouse"
	"github.com/lakecraft/silversmith/pkg/types"
)

const rankColumn = "_rank"

// applyKeyed is the deduplicate-then-overwrite skeleton shared by
// incremental_merge and upsert_scd1. cmp decides when a staged row beats
// the target row holding the same key: ">" keeps equal-ordering target rows
// in place, ">=" lets the staged row take over. The retire and insert
// statements run in one transaction so a key is never observed missing.
func applyKeyed(ctx context.Context, db *warehouse.DB, staged types.StagingRelation, target types.TargetRelation, strat types.TableStrategy, cmp string) (int64, error) {
	deduped := dedupSelect(staged, strat)
	match := keyMatch("t", "s", strat.KeyColumns)
	ord := warehouse.QuoteIdent(strat.OrderingColumn)

	retire := fmt.Sprintf(
		"DELETE FROM %s AS t WHERE EXISTS (SELECT 1 FROM (%s) AS s WHERE %s AND s.%s %s t.%s)",
		target.Relation, deduped, match, ord, cmp, ord)

	insert := fmt.Sprintf(
		"INSERT INTO %s BY NAME SELECT * EXCLUDE (%s, %s) FROM (%s) AS s WHERE NOT EXISTS (SELECT 1 FROM %s AS t WHERE %s)",
		target.Relation,
		warehouse.QuoteIdent(warehouse.LoadDayColumn), warehouse.QuoteIdent(warehouse.ArrivalSeqColumn),
		deduped, target.Relation, match)

	var affected int64
	err := db.Atomic(ctx, func(q warehouse.Querier) error {
		if _, err := q.ExecContext(ctx, retire); err != nil {
			return fmt.Errorf("retiring stale rows in %s: %w", target.Relation, err)
		}
		res, err := q.ExecContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("inserting into %s: %w", target.Relation, err)
		}
		if affected, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("counting rows written to %s: %w", target.Relation, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// dedupSelect ranks staged rows per key by ordering value, newest first,
// breaking ties in favor of later-arriving files, and keeps the top row of
// each key.
func dedupSelect(staged types.StagingRelation, strat types.TableStrategy) string {
	return fmt.Sprintf(
		"SELECT * EXCLUDE (%s) FROM (SELECT *, row_number() OVER (PARTITION BY %s ORDER BY %s DESC, %s DESC) AS %s FROM %s) WHERE %s = 1",
		warehouse.QuoteIdent(rankColumn),
		warehouse.IdentList(strat.KeyColumns),
		warehouse.QuoteIdent(strat.OrderingColumn),
		warehouse.QuoteIdent(warehouse.ArrivalSeqColumn),
		warehouse.QuoteIdent(rankColumn),
		staged.Relation,
		warehouse.QuoteIdent(rankColumn))
}

// keyMatch builds the key-equality predicate joining aliases t and s.
func keyMatch(t, s string, keys []string) string {
	preds := make([]string, len(keys))
	for i, k := range keys {
		q := warehouse.QuoteIdent(k)
		preds[i] = fmt.Sprintf("%s.%s = %s.%s", t, q, s, q)
	}
	return strings.Join(preds, " AND ")
}
