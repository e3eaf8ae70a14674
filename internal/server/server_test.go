package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakecraft/silversmith/internal/state"
	"github.com/lakecraft/silversmith/internal/strategy"
	"github.com/lakecraft/silversmith/pkg/types"
)

type fakeRunner struct {
	runFn func(ctx context.Context, day time.Time, tables []string) (types.RunReport, error)
}

func (f *fakeRunner) Run(ctx context.Context, day time.Time) (types.RunReport, error) {
	return f.runFn(ctx, day, nil)
}

func (f *fakeRunner) RunTables(ctx context.Context, day time.Time, tables []string) (types.RunReport, error) {
	return f.runFn(ctx, day, tables)
}

func testServer(t *testing.T, runner Runner) (*Server, *state.MemoryStore) {
	t.Helper()
	reg, err := strategy.NewRegistry(map[string]types.TableStrategy{
		"events":    {Strategy: types.IncrementalMerge, KeyColumns: []string{"event_id"}, OrderingColumn: "event_ts"},
		"inventory": {Strategy: types.ReplacePartition, PartitionField: "snapshot_date"},
	})
	require.NoError(t, err)
	store := state.NewMemory(10)
	if runner == nil {
		runner = &fakeRunner{runFn: func(_ context.Context, day time.Time, _ []string) (types.RunReport, error) {
			return types.RunReport{RunID: "run-1", Date: day.Format(types.DateLayout)}, nil
		}}
	}
	return New(":0", runner, reg, store, nil), store
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, nil)
	rec := get(t, s, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListTables(t *testing.T) {
	s, store := testServer(t, nil)
	require.NoError(t, store.PutWatermark(context.Background(), types.WatermarkRecord{
		Table: "events", Column: "event_ts", Value: "2025-08-18 12:00:00",
	}))

	rec := get(t, s, "/api/tables")
	require.Equal(t, http.StatusOK, rec.Code)

	var tables []tableView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tables))
	require.Len(t, tables, 2)
	assert.Equal(t, "events", tables[0].Table)
	require.NotNil(t, tables[0].Watermark)
	assert.Equal(t, "2025-08-18 12:00:00", tables[0].Watermark.Value)
	assert.Nil(t, tables[1].Watermark)
}

func TestGetTableNotFound(t *testing.T) {
	s, _ := testServer(t, nil)
	rec := get(t, s, "/api/tables/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_configured")
}

func TestRuns(t *testing.T) {
	s, store := testServer(t, nil)
	report := types.NewRunReport("run-9", "2025-08-18", time.Now(), time.Now(), []types.IngestionOutcome{
		{Table: "events", Date: "2025-08-18", Status: types.OutcomeSuccess, RowsAffected: 5},
	})
	require.NoError(t, store.PutRun(context.Background(), report))

	rec := get(t, s, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []types.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-9", runs[0].RunID)

	rec = get(t, s, "/api/runs/run-9")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/api/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, s, "/api/runs?limit=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest(t *testing.T) {
	var gotTables []string
	var gotDate string
	runner := &fakeRunner{runFn: func(_ context.Context, day time.Time, tables []string) (types.RunReport, error) {
		gotTables = tables
		gotDate = day.Format(types.DateLayout)
		return types.NewRunReport("run-2", gotDate, time.Now(), time.Now(), []types.IngestionOutcome{
			{Table: "events", Date: gotDate, Status: types.OutcomeSuccess},
		}), nil
	}}
	s, _ := testServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest",
		strings.NewReader(`{"date":"2025-08-18","tables":["events"]}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-08-18", gotDate)
	assert.Equal(t, []string{"events"}, gotTables)

	var report types.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "run-2", report.RunID)
}

func TestIngestValidation(t *testing.T) {
	s, _ := testServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"date":"18-08-2025"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{`))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestOverlapConflict(t *testing.T) {
	runner := &fakeRunner{runFn: func(context.Context, time.Time, []string) (types.RunReport, error) {
		return types.RunReport{}, errors.New("a run for 2025-08-18 is already in progress")
	}}
	s, _ := testServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"date":"2025-08-18"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExpvarExposed(t *testing.T) {
	s, _ := testServer(t, nil)
	rec := get(t, s, "/debug/vars")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "runs_total")
}
