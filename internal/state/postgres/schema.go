// Package postgres implements a durable Postgres run-state store.
package postgres

const schemaDDL = `
CREATE TABLE IF NOT EXISTS ingestion_runs (
    run_id        TEXT PRIMARY KEY,
    run_date      TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    finished_at   TIMESTAMPTZ NOT NULL,
    succeeded     INTEGER NOT NULL,
    skipped       INTEGER NOT NULL,
    failed        INTEGER NOT NULL,
    rows_affected BIGINT NOT NULL,
    outcomes      JSONB,
    recorded_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ingestion_runs_date ON ingestion_runs (run_date);
CREATE INDEX IF NOT EXISTS idx_ingestion_runs_started ON ingestion_runs (started_at);

CREATE TABLE IF NOT EXISTS watermarks (
    table_name  TEXT PRIMARY KEY,
    column_name TEXT NOT NULL,
    value       TEXT NOT NULL,
    run_date    TEXT NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS run_locks (
    lock_key   TEXT PRIMARY KEY,
    expires_at TIMESTAMPTZ NOT NULL
);
`
