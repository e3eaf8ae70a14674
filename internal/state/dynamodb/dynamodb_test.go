//go:build integration

package dynamodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakecraft/silversmith/pkg/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	endpoint := os.Getenv("SILVERSMITH_TEST_DYNAMODB_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:8000"
	}

	tableName := fmt.Sprintf("silversmith-test-%d", time.Now().UnixNano())
	cfg := &types.DynamoDBConfig{
		TableName:   tableName,
		Region:      "us-east-1",
		Endpoint:    endpoint,
		CreateTable: true,
	}
	store, err := New(cfg)
	if err != nil {
		t.Skipf("DynamoDB Local not available: %v", err)
	}
	if err := store.Start(ctx); err != nil {
		t.Skipf("DynamoDB Local not available: %v", err)
	}
	t.Cleanup(func() {
		_, _ = store.client.DeleteTable(context.Background(), &dynamodb.DeleteTableInput{
			TableName: &tableName,
		})
	})
	return store
}

func integrationReport(runID string, started time.Time) types.RunReport {
	outcomes := []types.IngestionOutcome{
		{Table: "events", Date: "2025-08-18", Status: types.OutcomeSuccess,
			Strategy: types.IncrementalMerge, RowsAffected: 3, Files: 1},
	}
	return types.NewRunReport(runID, "2025-08-18", started, started.Add(time.Second), outcomes)
}

func TestRunHistory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	got, err := store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.PutRun(ctx, integrationReport(
			fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	got, err = store.GetRun(ctx, "run-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, 1, got.Succeeded)

	reports, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "run-3", reports[0].RunID)
	assert.Equal(t, "run-2", reports[1].RunID)
}

func TestPutRunSameIDOverwritesTruth(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Millisecond)
	report := integrationReport("run-x", started)
	require.NoError(t, store.PutRun(ctx, report))

	report.Failed = 2
	require.NoError(t, store.PutRun(ctx, report))

	got, err := store.GetRun(ctx, "run-x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Failed)

	// Same start time, so the list copy was overwritten too.
	reports, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestWatermarks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	got, err := store.GetWatermark(ctx, "events")
	require.NoError(t, err)
	assert.Nil(t, got)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.PutWatermark(ctx, types.WatermarkRecord{
		Table: "events", Column: "event_ts", Value: "2025-08-18T10:00:00Z",
		Date: "2025-08-18", UpdatedAt: now,
	}))
	require.NoError(t, store.PutWatermark(ctx, types.WatermarkRecord{
		Table: "customers", Column: "updated_at", Value: "900",
		Date: "2025-08-18", UpdatedAt: now,
	}))

	got, err = store.GetWatermark(ctx, "events")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-08-18T10:00:00Z", got.Value)

	marks, err := store.ListWatermarks(ctx)
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, "customers", marks[0].Table)
	assert.Equal(t, "events", marks[1].Table)
}

func TestDistributedLock(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	key := "ingest:events:2025-08-18"

	ok, err := store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lock should not be re-acquirable")

	require.NoError(t, store.ReleaseLock(ctx, key))

	ok, err = store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpiry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	key := "ingest:events:expiry"

	ok, err := store.AcquireLock(ctx, key, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(1500 * time.Millisecond)

	ok, err = store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be stealable")
}
