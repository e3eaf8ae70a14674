// Package ingest coordinates bronze-to-silver consolidation runs: locating
// partitions, staging their files, applying strategies, and assembling the
// run report.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lakecraft/silversmith/internal/lake"
	"github.com/lakecraft/silversmith/internal/warehouse"
	"github.com/lakecraft/silversmith/pkg/types"
)

// Loader downloads a partition's bronze objects and stages them in the
// warehouse. Downloads go through a per-call temp dir that is always removed
// before Load returns; the staging relation is what persists.
type Loader struct {
	store  lake.Store
	stager *warehouse.Stager
}

// NewLoader returns a Loader staging through stager.
func NewLoader(store lake.Store, stager *warehouse.Stager) *Loader {
	return &Loader{store: store, stager: stager}
}

// Load stages one partition. An empty partition yields the Skipped marker
// relation without touching the warehouse.
func (l *Loader) Load(ctx context.Context, ref types.PartitionRef) (types.StagingRelation, error) {
	if ref.Empty() {
		return types.StagingRelation{Table: ref.Table}, nil
	}

	dir, err := os.MkdirTemp("", "silversmith-stage-")
	if err != nil {
		return types.StagingRelation{}, fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(dir)

	files := make([]warehouse.StagedFile, 0, len(ref.Files))
	for i, f := range ref.Files {
		path := filepath.Join(dir, fmt.Sprintf("part-%06d.parquet", i))
		if err := l.download(ctx, f.Key, path); err != nil {
			return types.StagingRelation{}, types.NewError(types.CodeSourceUnavailable, ref.Table,
				fmt.Errorf("fetching %s: %w", f.URI, err)).WithFiles([]string{f.URI})
		}
		files = append(files, warehouse.StagedFile{Path: path, URI: f.URI})
	}

	return l.stager.Load(ctx, ref.Table, ref.Date, files)
}

func (l *Loader) download(ctx context.Context, key, path string) error {
	obj, err := l.store.Fetch(ctx, key)
	if err != nil {
		return err
	}
	defer obj.Close()

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, obj); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
