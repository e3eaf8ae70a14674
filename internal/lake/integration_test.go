//go:build integration

package lake

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakecraft/silversmith/pkg/types"
)

func setupTestClient(t *testing.T) *Client {
	t.Helper()

	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := fmt.Sprintf("silversmith-test-%d", time.Now().UnixNano())

	client, err := NewClient(types.LakeConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    bucket,
	})
	require.NoError(t, err)

	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	require.NoError(t, client.EnsureBucket(ctx))

	t.Cleanup(func() {
		files, err := client.List(ctx, "")
		if err != nil {
			return
		}
		for _, f := range files {
			_ = client.mc.RemoveObject(ctx, bucket, f.Key, minio.RemoveObjectOptions{})
		}
		_ = client.mc.RemoveBucket(ctx, bucket)
	})

	return client
}

func TestClientRoundTrip(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Put(ctx, "bronze/appdb/events/year=2025/month=08/day=18/part-000000.parquet", []byte("PAR1fake")))
	require.NoError(t, client.Put(ctx, "bronze/appdb/events/year=2025/month=08/day=18/_manifest.json", []byte("{}")))

	files, err := client.List(ctx, "bronze/appdb/events/")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	rc, err := client.Fetch(ctx, files[0].Key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.NotEmpty(t, data)
}

func TestFetchMissingObject(t *testing.T) {
	client := setupTestClient(t)

	_, err := client.Fetch(context.Background(), "bronze/appdb/events/missing.parquet")
	assert.Error(t, err)
}

func TestSeedAndLocate(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	loc := NewLocator(client, "appdb", "bronze")
	seeder := NewSeeder(client, loc)

	d, err := time.Parse(types.DateLayout, "2025-08-18")
	require.NoError(t, err)

	keys, err := seeder.Seed(ctx, SeedSpec{Table: "events", Files: 2, Rows: 25, Overlap: 5}, d)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	ref, err := loc.Locate(ctx, "events", d)
	require.NoError(t, err)
	assert.False(t, ref.Empty())
	assert.Len(t, ref.Files, 2)
}
