package types

import "time"

// FileRef identifies one bronze object holding rows for a partition.
type FileRef struct {
	Key  string `json:"key"`
	URI  string `json:"uri"`
	Size int64  `json:"size,omitempty"`
}

// PartitionRef names one (table, logical date) slice of the bronze lake and
// the objects that belong to it. The slice order is arrival order and is
// preserved through staging.
type PartitionRef struct {
	Table string    `json:"table"`
	Date  time.Time `json:"date"`
	Files []FileRef `json:"files"`
}

// Day returns the logical date in canonical YYYY-MM-DD form.
func (p PartitionRef) Day() string { return p.Date.Format(DateLayout) }

// Empty reports whether the partition has no objects to load.
func (p PartitionRef) Empty() bool { return len(p.Files) == 0 }

// Column describes one column of a staged or target relation.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// StagingRelation is a transient relation holding one partition's rows before
// consolidation. Relation is the fully qualified name in the warehouse; an
// Empty relation was never materialized and needs no cleanup.
type StagingRelation struct {
	Table    string   `json:"table"`
	Relation string   `json:"relation"`
	Columns  []Column `json:"columns,omitempty"`
	Rows     int64    `json:"rows"`
	Files    int      `json:"files"`
}

// Empty reports whether no objects were staged for the partition.
func (s StagingRelation) Empty() bool { return s.Files == 0 }

// TargetRelation is the durable silver relation a strategy writes into.
// Created is true when the ensure call materialized it for the first time.
type TargetRelation struct {
	Table    string `json:"table"`
	Relation string `json:"relation"`
	Created  bool   `json:"created"`
}

// IngestionOutcome records the per-table result of one consolidation run.
type IngestionOutcome struct {
	Table        string        `json:"table"`
	Date         string        `json:"date"`
	Status       OutcomeStatus `json:"status"`
	Strategy     StrategyKind  `json:"strategy,omitempty"`
	RowsAffected int64         `json:"rowsAffected"`
	Files        int           `json:"files"`
	DurationMS   int64         `json:"durationMs"`
	ErrorCode    ErrorCode     `json:"errorCode,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// RunReport aggregates the outcomes of one coordinator run across tables.
type RunReport struct {
	RunID        string             `json:"runId"`
	Date         string             `json:"date"`
	StartedAt    time.Time          `json:"startedAt"`
	FinishedAt   time.Time          `json:"finishedAt"`
	Outcomes     []IngestionOutcome `json:"outcomes"`
	Succeeded    int                `json:"succeeded"`
	Skipped      int                `json:"skipped"`
	Failed       int                `json:"failed"`
	RowsAffected int64              `json:"rowsAffected"`
}

// NewRunReport assembles a report and computes the summary tallies.
func NewRunReport(runID, date string, started, finished time.Time, outcomes []IngestionOutcome) RunReport {
	r := RunReport{
		RunID:      runID,
		Date:       date,
		StartedAt:  started,
		FinishedAt: finished,
		Outcomes:   outcomes,
	}
	for _, o := range outcomes {
		switch o.Status {
		case OutcomeSuccess:
			r.Succeeded++
			r.RowsAffected += o.RowsAffected
		case OutcomeSkipped:
			r.Skipped++
		case OutcomeFailed:
			r.Failed++
		}
	}
	return r
}

// ReportLevel classifies a run report for sinks that route on severity.
type ReportLevel string

const (
	ReportLevelError   ReportLevel = "error"
	ReportLevelWarning ReportLevel = "warning"
	ReportLevelInfo    ReportLevel = "info"
)

// Level derives the severity of the report from its tallies.
func (r RunReport) Level() ReportLevel {
	switch {
	case r.Failed > 0:
		return ReportLevelError
	case r.Skipped > 0:
		return ReportLevelWarning
	default:
		return ReportLevelInfo
	}
}

// WatermarkRecord tracks the newest ordering value consolidated into a
// silver table. Value is the textual form of the ordering column's maximum.
type WatermarkRecord struct {
	Table     string    `json:"table"`
	Column    string    `json:"column"`
	Value     string    `json:"value"`
	Date      string    `json:"date"`
	UpdatedAt time.Time `json:"updatedAt"`
}
