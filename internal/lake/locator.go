package lake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lakecraft/silversmith/pkg/types"
)

// Locator resolves (table, logical date) pairs to the bronze objects that
// hold their rows.
type Locator struct {
	store    Store
	database string
	prefix   string
}

// NewLocator returns a Locator rooted at prefix/database in the lake.
func NewLocator(store Store, database, prefix string) *Locator {
	return &Locator{store: store, database: database, prefix: prefix}
}

// PartitionPrefix returns the object prefix for one partition, with
// zero-padded date components:
//
//	bronze/{database}/{table}/year=2025/month=07/day=05/
func (l *Locator) PartitionPrefix(table string, day time.Time) string {
	return fmt.Sprintf("%s/%s/%s/year=%s/month=%s/day=%s/",
		l.prefix, l.database, table,
		day.Format("2006"), day.Format("01"), day.Format("02"))
}

// Locate lists the parquet objects of one partition. A partition with no
// objects is not an error; the returned ref is simply Empty. Non-parquet
// objects under the prefix are ignored.
func (l *Locator) Locate(ctx context.Context, table string, day time.Time) (types.PartitionRef, error) {
	listed, err := l.store.List(ctx, l.PartitionPrefix(table, day))
	if err != nil {
		return types.PartitionRef{}, types.NewError(types.CodeSourceUnavailable, table, err)
	}

	var files []types.FileRef
	for _, f := range listed {
		if strings.HasSuffix(f.Key, ".parquet") {
			files = append(files, f)
		}
	}
	// Extraction jobs name files with monotonic part numbers, so lexicographic
	// key order is arrival order.
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })

	return types.PartitionRef{Table: table, Date: day, Files: files}, nil
}
