package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lakecraft/silversmith/pkg/types"
)

// Helper columns appended to every staging relation. Strategies strip them
// before rows reach silver.
const (
	ArrivalSeqColumn = "_arrival_seq"
	LoadDayColumn    = "_load_day"
)

// StagedFile pairs a downloaded parquet file with its source object URI. The
// URI is what schema conflicts cite back to operators.
type StagedFile struct {
	Path string
	URI  string
}

// Stager materializes bronze partitions as transient staging relations.
type Stager struct {
	db *DB
}

// NewStager returns a Stager writing into db's staging schema.
func NewStager(db *DB) *Stager {
	return &Stager{db: db}
}

// StagingName returns the transient relation name for one partition load.
// The date suffix keeps concurrent loads of different days apart.
func StagingName(table string, day time.Time) string {
	return fmt.Sprintf("%s__stg_%s", table, day.Format("20060102"))
}

// Load creates the staging relation for one partition from local parquet
// files given in arrival order. Every row is tagged with the logical date
// and its file's arrival sequence. All files must agree on schema; drift
// fails the load and names every offending file.
func (s *Stager) Load(ctx context.Context, table string, day time.Time, files []StagedFile) (types.StagingRelation, error) {
	if len(files) == 0 {
		return types.StagingRelation{Table: table}, nil
	}

	cols, err := s.precheck(ctx, table, files)
	if err != nil {
		return types.StagingRelation{}, err
	}

	relation := QualifiedName(s.db.StagingSchema(), StagingName(table, day))
	dayLit := fmt.Sprintf("DATE %s", QuoteLiteral(day.Format(types.DateLayout)))

	create := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT *, %s AS %s, CAST(0 AS BIGINT) AS %s FROM read_parquet(%s)",
		relation, dayLit, QuoteIdent(LoadDayColumn), QuoteIdent(ArrivalSeqColumn), QuoteLiteral(files[0].Path))
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return types.StagingRelation{}, fmt.Errorf("staging %s: %w", files[0].URI, err)
	}

	for i, f := range files[1:] {
		insert := fmt.Sprintf(
			"INSERT INTO %s BY NAME SELECT *, %s AS %s, CAST(%d AS BIGINT) AS %s FROM read_parquet(%s)",
			relation, dayLit, QuoteIdent(LoadDayColumn), i+1, QuoteIdent(ArrivalSeqColumn), QuoteLiteral(f.Path))
		if _, err := s.db.ExecContext(ctx, insert); err != nil {
			return types.StagingRelation{}, fmt.Errorf("staging %s: %w", f.URI, err)
		}
	}

	var rows int64
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+relation).Scan(&rows); err != nil {
		return types.StagingRelation{}, fmt.Errorf("counting staged rows for %s: %w", table, err)
	}

	return types.StagingRelation{
		Table:    table,
		Relation: relation,
		Columns:  cols,
		Rows:     rows,
		Files:    len(files),
	}, nil
}

// Drop removes a staging relation. Dropping an already absent relation is
// not an error, so cleanup can run unconditionally.
func (s *Stager) Drop(ctx context.Context, relation string) error {
	if relation == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+relation); err != nil {
		return fmt.Errorf("dropping %s: %w", relation, err)
	}
	return nil
}

// ColumnMax reads the maximum value of one column in a staging relation,
// rendered as text. The second return is false when the relation holds no
// rows or the column is entirely NULL.
func (s *Stager) ColumnMax(ctx context.Context, relation, column string) (string, bool, error) {
	q := fmt.Sprintf("SELECT CAST(max(%s) AS VARCHAR) FROM %s", QuoteIdent(column), relation)
	var v sql.NullString
	if err := s.db.QueryRowContext(ctx, q).Scan(&v); err != nil {
		return "", false, fmt.Errorf("reading max(%s) from %s: %w", column, relation, err)
	}
	return v.String, v.Valid, nil
}

// precheck reads every file's parquet schema and compares it against the
// first file's. It collects all mismatches before failing so operators see
// the full extent of the drift.
func (s *Stager) precheck(ctx context.Context, table string, files []StagedFile) ([]types.Column, error) {
	ref, err := s.describe(ctx, files[0])
	if err != nil {
		return nil, types.NewError(types.CodeSourceUnavailable, table, err).WithFiles([]string{files[0].URI})
	}

	var conflicting []string
	for _, f := range files[1:] {
		cols, err := s.describe(ctx, f)
		if err != nil {
			return nil, types.NewError(types.CodeSourceUnavailable, table, err).WithFiles([]string{f.URI})
		}
		if !schemasMatch(ref, cols) {
			conflicting = append(conflicting, f.URI)
		}
	}
	if len(conflicting) > 0 {
		return nil, types.Errorf(types.CodeSchemaConflict, table,
			"parquet schema drift against %s", files[0].URI).WithFiles(conflicting)
	}
	return ref, nil
}

func (s *Stager) describe(ctx context.Context, f StagedFile) ([]types.Column, error) {
	q := fmt.Sprintf("SELECT column_name, column_type FROM (DESCRIBE SELECT * FROM read_parquet(%s))", QuoteLiteral(f.Path))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", f.URI, err)
	}
	defer rows.Close()

	var cols []types.Column
	for rows.Next() {
		var c types.Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("describing %s: %w", f.URI, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describing %s: %w", f.URI, err)
	}
	return cols, nil
}

// schemasMatch compares column sets by name and type, ignoring order.
// Extraction jobs do not guarantee column order across files.
func schemasMatch(a, b []types.Column) bool {
	if len(a) != len(b) {
		return false
	}
	typesByName := make(map[string]string, len(a))
	for _, c := range a {
		typesByName[c.Name] = c.Type
	}
	for _, c := range b {
		if t, ok := typesByName[c.Name]; !ok || t != c.Type {
			return false
		}
	}
	return true
}
