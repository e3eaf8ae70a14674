// Package warehouse wraps the embedded DuckDB database that holds the
// staging and silver zones.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/lakecraft/silversmith/pkg/types"
)

// Querier is the statement surface shared by *sql.DB and *sql.Tx. Builders
// that must run inside a transaction accept it instead of *DB.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps sql.DB for DuckDB with the zone schemas created.
type DB struct {
	*sql.DB
	path          string
	stagingSchema string
	silverSchema  string
}

var _ Querier = (*DB)(nil)

// Open opens or creates the warehouse database and provisions the zone
// schemas.
func Open(cfg types.WarehouseConfig) (*DB, error) {
	if cfg.Path != ":memory:" && cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating warehouse dir: %w", err)
		}
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening warehouse: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to warehouse: %w", err)
	}

	d := &DB{
		DB:            db,
		path:          cfg.Path,
		stagingSchema: cfg.StagingSchema,
		silverSchema:  cfg.SilverSchema,
	}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// GoldSchema is provisioned for downstream marts; the engine itself never
// writes to it.
const GoldSchema = "gold"

func (d *DB) init() error {
	for _, schema := range []string{d.stagingSchema, d.silverSchema, GoldSchema} {
		if _, err := d.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", QuoteIdent(schema))); err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}
	return nil
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// StagingSchema returns the schema transient relations live in.
func (d *DB) StagingSchema() string { return d.stagingSchema }

// SilverSchema returns the schema silver tables live in.
func (d *DB) SilverSchema() string { return d.silverSchema }

// Atomic runs fn inside a transaction. The transaction is rolled back when
// fn returns an error and committed otherwise.
func (d *DB) Atomic(ctx context.Context, fn func(q Querier) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// QuoteIdent quotes a SQL identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteLiteral quotes a SQL string literal.
func QuoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}

// QualifiedName joins a schema and relation into a quoted name.
func QualifiedName(schema, relation string) string {
	return QuoteIdent(schema) + "." + QuoteIdent(relation)
}

// IdentList quotes and joins column names for use in column lists.
func IdentList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
