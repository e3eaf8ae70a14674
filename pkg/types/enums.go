// Package types defines the public domain types for the silversmith
// consolidation engine.
package types

// DateLayout is the canonical format for logical dates in configs, records,
// and partition paths.
const DateLayout = "2006-01-02"

// StrategyKind selects how staged data is reconciled into a silver table.
type StrategyKind string

// StrategyKind values enumerate the supported consolidation strategies.
const (
	IncrementalMerge StrategyKind = "incremental_merge"
	ReplacePartition StrategyKind = "replace_partition"
	UpsertSCD1       StrategyKind = "upsert_scd1"
)

// Valid reports whether k is a recognized strategy kind.
func (k StrategyKind) Valid() bool {
	switch k {
	case IncrementalMerge, ReplacePartition, UpsertSCD1:
		return true
	}
	return false
}

// OutcomeStatus represents the per-table result of one ingestion run.
type OutcomeStatus string

// OutcomeStatus values distinguish reconciled tables from deliberately
// skipped ones and from runtime failures.
const (
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	OutcomeSkipped OutcomeStatus = "SKIPPED"
	OutcomeFailed  OutcomeStatus = "FAILED"
)

// SinkType defines a run-report sink backend.
type SinkType string

// SinkType values enumerate the supported report sinks.
const (
	SinkConsole SinkType = "console"
	SinkFile    SinkType = "file"
	SinkWebhook SinkType = "webhook"
	SinkS3      SinkType = "s3"
	SinkSNS     SinkType = "sns"
)

// StateBackend defines the state-store backend.
type StateBackend string

// StateBackend values enumerate the supported state-store backends.
const (
	StateMemory   StateBackend = "memory"
	StatePostgres StateBackend = "postgres"
	StateRedis    StateBackend = "redis"
	StateDynamoDB StateBackend = "dynamodb"
)
