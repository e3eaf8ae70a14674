package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/lakecraft/silversmith/pkg/types"
)

// FileSink appends run reports as JSON lines to a local audit log.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// fileEntry is the line shape: severity and tallies up front so the log
// greps without unpacking the embedded report.
type fileEntry struct {
	Level        types.ReportLevel `json:"level"`
	RunID        string            `json:"runId"`
	Date         string            `json:"date"`
	Succeeded    int               `json:"succeeded"`
	Skipped      int               `json:"skipped"`
	Failed       int               `json:"failed"`
	RowsAffected int64             `json:"rowsAffected"`
	Report       types.RunReport   `json:"report"`
}

// NewFileSink creates a new file report sink.
func NewFileSink(path string) (*FileSink, error) {
	// Ensure the file is writable
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening report log: %w", err)
	}
	_ = f.Close()

	return &FileSink{path: path}, nil
}

// Name returns the sink identifier.
func (s *FileSink) Name() string { return "file" }

// Send appends the report as one JSON line to the configured log.
func (s *FileSink) Send(_ context.Context, report types.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	data, err := json.Marshal(fileEntry{
		Level:        report.Level(),
		RunID:        report.RunID,
		Date:         report.Date,
		Succeeded:    report.Succeeded,
		Skipped:      report.Skipped,
		Failed:       report.Failed,
		RowsAffected: report.RowsAffected,
		Report:       report,
	})
	if err != nil {
		return err
	}

	_, err = f.Write(append(data, '\n'))
	return err
}
