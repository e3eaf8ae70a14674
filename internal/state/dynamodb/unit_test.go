package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/lakecraft/silversmith/pkg/types"
)

// mockDDB is a minimal mock of the DDBAPI interface for unit testing.
type mockDDB struct {
	putItemFn           func(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	getItemFn           func(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	queryFn             func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	deleteItemFn        func(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	transactWriteItemFn func(ctx context.Context, input *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	describeTableFn     func(ctx context.Context, input *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	createTableFn       func(ctx context.Context, input *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	deleteTableFn       func(ctx context.Context, input *dynamodb.DeleteTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	updateTTLFn         func(ctx context.Context, input *dynamodb.UpdateTimeToLiveInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

func (m *mockDDB) PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFn != nil {
		return m.putItemFn(ctx, input, opts...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDB) GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFn != nil {
		return m.getItemFn(ctx, input, opts...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDDB) Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, input, opts...)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (m *mockDDB) DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if m.deleteItemFn != nil {
		return m.deleteItemFn(ctx, input, opts...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDDB) TransactWriteItems(ctx context.Context, input *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if m.transactWriteItemFn != nil {
		return m.transactWriteItemFn(ctx, input, opts...)
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (m *mockDDB) DescribeTable(ctx context.Context, input *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if m.describeTableFn != nil {
		return m.describeTableFn(ctx, input, opts...)
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func (m *mockDDB) CreateTable(ctx context.Context, input *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if m.createTableFn != nil {
		return m.createTableFn(ctx, input, opts...)
	}
	return &dynamodb.CreateTableOutput{}, nil
}

func (m *mockDDB) DeleteTable(ctx context.Context, input *dynamodb.DeleteTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	if m.deleteTableFn != nil {
		return m.deleteTableFn(ctx, input, opts...)
	}
	return &dynamodb.DeleteTableOutput{}, nil
}

func (m *mockDDB) UpdateTimeToLive(ctx context.Context, input *dynamodb.UpdateTimeToLiveInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error) {
	if m.updateTTLFn != nil {
		return m.updateTTLFn(ctx, input, opts...)
	}
	return &dynamodb.UpdateTimeToLiveOutput{}, nil
}

func newTestStore(mock *mockDDB) *Store {
	return &Store{
		client:       mock,
		tableName:    "test-table",
		logger:       slog.Default(),
		retentionTTL: 7 * 24 * time.Hour,
	}
}

func strPtr(s string) *string { return &s }

func testReport(runID string, started time.Time) types.RunReport {
	outcomes := []types.IngestionOutcome{
		{Table: "events", Date: "2025-08-18", Status: types.OutcomeSuccess,
			Strategy: types.IncrementalMerge, RowsAffected: 11, Files: 2},
	}
	return types.NewRunReport(runID, "2025-08-18", started, started.Add(time.Second), outcomes)
}

func TestPutRun_DualWrite(t *testing.T) {
	var captured *dynamodb.TransactWriteItemsInput
	mock := &mockDDB{
		transactWriteItemFn: func(_ context.Context, input *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
			captured = input
			return &dynamodb.TransactWriteItemsOutput{}, nil
		},
	}
	s := newTestStore(mock)

	started := time.Date(2025, 8, 18, 6, 30, 0, 0, time.UTC)
	err := s.PutRun(context.Background(), testReport("run-77", started))
	if err != nil {
		t.Fatalf("PutRun: %v", err)
	}

	if captured == nil {
		t.Fatal("TransactWriteItems was not called")
	}
	if len(captured.TransactItems) != 2 {
		t.Fatalf("transact items = %d, want 2", len(captured.TransactItems))
	}

	truth := captured.TransactItems[0].Put
	pk := truth.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value
	sk := truth.Item["SK"].(*ddbtypes.AttributeValueMemberS).Value
	if pk != "RUN#run-77" {
		t.Errorf("truth PK = %q, want %q", pk, "RUN#run-77")
	}
	if sk != "RUN" {
		t.Errorf("truth SK = %q, want %q", sk, "RUN")
	}

	list := captured.TransactItems[1].Put
	listPK := list.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value
	listSK := list.Item["SK"].(*ddbtypes.AttributeValueMemberS).Value
	if listPK != "RUNS" {
		t.Errorf("list PK = %q, want %q", listPK, "RUNS")
	}
	wantSK := "RUN#2025-08-18T06:30:00Z#run-77"
	if listSK != wantSK {
		t.Errorf("list SK = %q, want %q", listSK, wantSK)
	}

	// Verify data round-trips through JSON
	dataStr := truth.Item["data"].(*ddbtypes.AttributeValueMemberS).Value
	var roundTrip types.RunReport
	if err := json.Unmarshal([]byte(dataStr), &roundTrip); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if roundTrip.RunID != "run-77" {
		t.Errorf("runID = %q, want %q", roundTrip.RunID, "run-77")
	}
	if roundTrip.RowsAffected != 11 {
		t.Errorf("rowsAffected = %d, want 11", roundTrip.RowsAffected)
	}
}

func TestGetRun_RoundTrip(t *testing.T) {
	report := testReport("run-5", time.Now().UTC())
	data, _ := json.Marshal(report)
	ttl := fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix())

	mock := &mockDDB{
		getItemFn: func(_ context.Context, input *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			if input.ConsistentRead == nil || !*input.ConsistentRead {
				t.Error("expected a strongly consistent read")
			}
			return &dynamodb.GetItemOutput{
				Item: map[string]ddbtypes.AttributeValue{
					"PK":   &ddbtypes.AttributeValueMemberS{Value: "RUN#run-5"},
					"SK":   &ddbtypes.AttributeValueMemberS{Value: "RUN"},
					"data": &ddbtypes.AttributeValueMemberS{Value: string(data)},
					"ttl":  &ddbtypes.AttributeValueMemberN{Value: ttl},
				},
			}, nil
		},
	}
	s := newTestStore(mock)

	got, err := s.GetRun(context.Background(), "run-5")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got == nil {
		t.Fatal("expected a report")
	}
	if got.RunID != "run-5" {
		t.Errorf("runID = %q, want %q", got.RunID, "run-5")
	}
	if got.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", got.Succeeded)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	mock := &mockDDB{
		getItemFn: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: nil}, nil
		},
	}
	s := newTestStore(mock)

	got, err := s.GetRun(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got != nil {
		t.Errorf("missing run should read as nil, got %+v", got)
	}
}

func TestGetRun_ExpiredReadsAsMissing(t *testing.T) {
	report := testReport("run-old", time.Now().UTC())
	data, _ := json.Marshal(report)
	expired := fmt.Sprintf("%d", time.Now().Add(-time.Hour).Unix())

	mock := &mockDDB{
		getItemFn: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{
				Item: map[string]ddbtypes.AttributeValue{
					"PK":   &ddbtypes.AttributeValueMemberS{Value: "RUN#run-old"},
					"SK":   &ddbtypes.AttributeValueMemberS{Value: "RUN"},
					"data": &ddbtypes.AttributeValueMemberS{Value: string(data)},
					"ttl":  &ddbtypes.AttributeValueMemberN{Value: expired},
				},
			}, nil
		},
	}
	s := newTestStore(mock)

	got, err := s.GetRun(context.Background(), "run-old")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got != nil {
		t.Error("expired run should read as missing")
	}
}

func TestListRuns_SkipsExpiredAndCorrupt(t *testing.T) {
	fresh := testReport("run-fresh", time.Now().UTC())
	freshData, _ := json.Marshal(fresh)
	future := fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix())
	past := fmt.Sprintf("%d", time.Now().Add(-time.Hour).Unix())

	mock := &mockDDB{
		queryFn: func(_ context.Context, input *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			if input.ScanIndexForward == nil || *input.ScanIndexForward {
				t.Error("expected ScanIndexForward=false for newest-first listing")
			}
			return &dynamodb.QueryOutput{
				Items: []map[string]ddbtypes.AttributeValue{
					{
						"data": &ddbtypes.AttributeValueMemberS{Value: string(freshData)},
						"ttl":  &ddbtypes.AttributeValueMemberN{Value: future},
					},
					{
						"data": &ddbtypes.AttributeValueMemberS{Value: string(freshData)},
						"ttl":  &ddbtypes.AttributeValueMemberN{Value: past},
					},
					{
						"data": &ddbtypes.AttributeValueMemberS{Value: "not-json{{{"},
						"ttl":  &ddbtypes.AttributeValueMemberN{Value: future},
					},
				},
			}, nil
		},
	}
	s := newTestStore(mock)

	reports, err := s.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	if reports[0].RunID != "run-fresh" {
		t.Errorf("runID = %q, want %q", reports[0].RunID, "run-fresh")
	}
}

func TestPutWatermark_Keys(t *testing.T) {
	var captured *dynamodb.PutItemInput
	mock := &mockDDB{
		putItemFn: func(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			captured = input
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := newTestStore(mock)

	mark := types.WatermarkRecord{
		Table: "events", Column: "event_ts", Value: "2025-08-18T10:00:00Z",
		Date: "2025-08-18", UpdatedAt: time.Now().UTC(),
	}
	if err := s.PutWatermark(context.Background(), mark); err != nil {
		t.Fatalf("PutWatermark: %v", err)
	}

	if captured == nil {
		t.Fatal("PutItem was not called")
	}
	pk := captured.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value
	sk := captured.Item["SK"].(*ddbtypes.AttributeValueMemberS).Value
	if pk != "WATERMARK" {
		t.Errorf("PK = %q, want %q", pk, "WATERMARK")
	}
	if sk != "events" {
		t.Errorf("SK = %q, want %q", sk, "events")
	}
	if _, hasTTL := captured.Item["ttl"]; hasTTL {
		t.Error("watermarks should not carry a TTL")
	}
}

func TestGetWatermark_NotFound(t *testing.T) {
	mock := &mockDDB{
		getItemFn: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: nil}, nil
		},
	}
	s := newTestStore(mock)

	got, err := s.GetWatermark(context.Background(), "never-loaded")
	if err != nil {
		t.Fatalf("GetWatermark: %v", err)
	}
	if got != nil {
		t.Errorf("missing watermark should read as nil, got %+v", got)
	}
}

func TestAcquireLock_ConditionalPut(t *testing.T) {
	var captured *dynamodb.PutItemInput
	mock := &mockDDB{
		putItemFn: func(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			captured = input
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := newTestStore(mock)

	ok, err := s.AcquireLock(context.Background(), "ingest:events:2025-08-18", 30*time.Second)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if !ok {
		t.Error("expected lock acquisition to succeed")
	}

	if captured.ConditionExpression == nil {
		t.Fatal("expected ConditionExpression to be set")
	}
	if *captured.ConditionExpression != "attribute_not_exists(PK) OR #ttl < :now" {
		t.Errorf("condition = %q, want %q", *captured.ConditionExpression, "attribute_not_exists(PK) OR #ttl < :now")
	}

	pk := captured.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value
	if pk != "LOCK#ingest:events:2025-08-18" {
		t.Errorf("PK = %q, want %q", pk, "LOCK#ingest:events:2025-08-18")
	}
}

func TestAcquireLock_AlreadyHeld(t *testing.T) {
	mock := &mockDDB{
		putItemFn: func(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return nil, &ddbtypes.ConditionalCheckFailedException{
				Message: strPtr("The conditional request failed"),
			}
		},
	}
	s := newTestStore(mock)

	ok, err := s.AcquireLock(context.Background(), "held-lock", time.Minute)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if ok {
		t.Error("held lock should not be re-acquirable")
	}
}

func TestReleaseLock_Keys(t *testing.T) {
	var captured *dynamodb.DeleteItemInput
	mock := &mockDDB{
		deleteItemFn: func(_ context.Context, input *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			captured = input
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	s := newTestStore(mock)

	if err := s.ReleaseLock(context.Background(), "my-lock"); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}
	pk := captured.Key["PK"].(*ddbtypes.AttributeValueMemberS).Value
	if pk != "LOCK#my-lock" {
		t.Errorf("PK = %q, want %q", pk, "LOCK#my-lock")
	}
}

func TestEnsureTable_ToleratesExisting(t *testing.T) {
	mock := &mockDDB{
		createTableFn: func(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
			return nil, &ddbtypes.ResourceInUseException{Message: strPtr("Table already exists")}
		},
	}
	s := newTestStore(mock)
	s.createTable = true

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start with existing table: %v", err)
	}
}

func TestRunListSK_SortsByStartTime(t *testing.T) {
	early := runListSK(time.Date(2025, 8, 18, 6, 0, 0, 0, time.UTC), "run-a")
	late := runListSK(time.Date(2025, 8, 18, 7, 0, 0, 0, time.UTC), "run-b")
	if !strings.HasPrefix(early, "RUN#") {
		t.Errorf("SK %q should carry the RUN# prefix", early)
	}
	if early >= late {
		t.Errorf("earlier start should sort first: %q vs %q", early, late)
	}
}
