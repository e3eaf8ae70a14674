// Package lake provides access to the bronze object lake where extraction
// jobs land date-partitioned parquet files.
package lake

import (
	"context"
	"io"

	"github.com/lakecraft/silversmith/pkg/types"
)

// Store is the object-store surface the engine needs. Implementations are
// bound to a single bucket.
type Store interface {
	// List returns the objects under prefix with fully qualified URIs.
	List(ctx context.Context, prefix string) ([]types.FileRef, error)
	// Fetch opens one object for reading. Callers own the returned reader.
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
	// Put writes one object.
	Put(ctx context.Context, key string, data []byte) error
	// EnsureBucket creates the bucket when it does not exist.
	EnsureBucket(ctx context.Context) error
	// Ping verifies the endpoint is reachable and credentials work.
	Ping(ctx context.Context) error
}
