// Package testutil provides shared test fixtures for silversmith.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// EventsSchema is the parquet schema of the demo events table used across
// tests: a natural key, a dimension, a measure, and an ordering column.
const EventsSchema = `{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[` +
	`{"Tag":"name=event_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"},` +
	`{"Tag":"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"},` +
	`{"Tag":"name=amount, type=DOUBLE, repetitiontype=OPTIONAL"},` +
	`{"Tag":"name=event_ts, type=INT64, repetitiontype=OPTIONAL"}]}`

// DriftedSchema carries the same column names as EventsSchema but a
// different type for amount, for schema conflict tests.
const DriftedSchema = `{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[` +
	`{"Tag":"name=event_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"},` +
	`{"Tag":"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"},` +
	`{"Tag":"name=amount, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"},` +
	`{"Tag":"name=event_ts, type=INT64, repetitiontype=OPTIONAL"}]}`

// EventRow is one demo events record.
type EventRow struct {
	EventID string
	UserID  string
	Amount  float64
	EventTS int64
}

// Row converts the record into the map form parquet writers consume.
func (r EventRow) Row() map[string]any {
	return map[string]any{
		"event_id": r.EventID,
		"user_id":  r.UserID,
		"amount":   r.Amount,
		"event_ts": r.EventTS,
	}
}

// WriteEventsParquet writes rows as one events parquet file under dir and
// returns its path.
func WriteEventsParquet(t *testing.T, dir, name string, rows []EventRow) string {
	t.Helper()
	maps := make([]map[string]any, len(rows))
	for i, r := range rows {
		maps[i] = r.Row()
	}
	return WriteParquet(t, dir, name, EventsSchema, maps)
}

// WriteParquet writes rows with an explicit parquet-go JSON schema under dir
// and returns the file path.
func WriteParquet(t *testing.T, dir, name, schema string, rows []map[string]any) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating parquet file: %v", err)
	}

	pfw := writerfile.NewWriterFile(f)
	pw, err := writer.NewJSONWriter(schema, pfw, 2)
	if err != nil {
		t.Fatalf("creating parquet writer: %v", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		// The JSON writer only takes encoded rows, not maps.
		b, err := json.Marshal(row)
		if err != nil {
			t.Fatalf("encoding parquet row: %v", err)
		}
		if err := pw.Write(string(b)); err != nil {
			t.Fatalf("writing parquet row: %v", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		t.Fatalf("finishing parquet file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing parquet file: %v", err)
	}
	return path
}
