package strategy

import (
	"sort"

	"github.com/lakecraft/silversmith/pkg/types"
)

// Registry holds the validated strategy descriptor for every configured
// table. Construction fails on an invalid descriptor so bad configuration
// surfaces before any partition is touched, never mid-run.
type Registry struct {
	tables map[string]types.TableStrategy
}

// NewRegistry validates every descriptor and returns the registry.
func NewRegistry(tables map[string]types.TableStrategy) (*Registry, error) {
	for _, table := range sortedKeys(tables) {
		if err := Validate(table, tables[table]); err != nil {
			return nil, err
		}
	}
	return &Registry{tables: tables}, nil
}

// Validate checks that a descriptor carries every field its kind requires.
func Validate(table string, strat types.TableStrategy) error {
	if !strat.Strategy.Valid() {
		return types.Errorf(types.CodeInvalidStrategy, table, "unknown strategy %q", strat.Strategy)
	}
	switch strat.Strategy {
	case types.IncrementalMerge, types.UpsertSCD1:
		if len(strat.KeyColumns) == 0 {
			return types.Errorf(types.CodeInvalidStrategy, table, "%s requires keyColumns", strat.Strategy)
		}
		if strat.OrderingColumn == "" {
			return types.Errorf(types.CodeInvalidStrategy, table, "%s requires orderingColumn", strat.Strategy)
		}
	case types.ReplacePartition:
		if strat.PartitionField == "" {
			return types.Errorf(types.CodeInvalidStrategy, table, "%s requires partitionField", strat.Strategy)
		}
	}
	return nil
}

// Lookup returns the descriptor for table. Unknown tables report
// not_configured, which callers surface as a skipped outcome rather than a
// failure.
func (r *Registry) Lookup(table string) (types.TableStrategy, error) {
	strat, ok := r.tables[table]
	if !ok {
		return types.TableStrategy{}, types.Errorf(types.CodeNotConfigured, table, "no strategy configured")
	}
	return strat, nil
}

// Tables returns the configured table names in sorted order.
func (r *Registry) Tables() []string {
	return sortedKeys(r.tables)
}

func sortedKeys(tables map[string]types.TableStrategy) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
