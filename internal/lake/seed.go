package lake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// seedSchema is the parquet schema of generated demo rows. event_id is the
// natural key and event_ts the ordering column.
const seedSchema = `{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[` +
	`{"Tag":"name=event_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"},` +
	`{"Tag":"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"},` +
	`{"Tag":"name=amount, type=DOUBLE, repetitiontype=OPTIONAL"},` +
	`{"Tag":"name=event_ts, type=INT64, repetitiontype=OPTIONAL"}]}`

// SeedSpec describes one synthetic partition to generate.
type SeedSpec struct {
	Table   string
	Files   int
	Rows    int // rows per file
	Overlap int // rows per file that re-use keys from the previous file
}

// Seeder writes synthetic bronze partitions for local development and demos.
type Seeder struct {
	store Store
	loc   *Locator
}

// NewSeeder returns a Seeder writing through store under loc's layout.
func NewSeeder(store Store, loc *Locator) *Seeder {
	return &Seeder{store: store, loc: loc}
}

// Seed generates spec.Files parquet objects for the partition and returns
// their keys in arrival order. Each file past the first re-uses Overlap keys
// from its predecessor with newer timestamps, so merge strategies have
// conflicts to resolve.
func (s *Seeder) Seed(ctx context.Context, spec SeedSpec, day time.Time) ([]string, error) {
	if spec.Files <= 0 {
		spec.Files = 2
	}
	if spec.Rows <= 0 {
		spec.Rows = 100
	}
	if spec.Overlap < 0 {
		spec.Overlap = 0
	}
	if spec.Overlap > spec.Rows {
		spec.Overlap = spec.Rows
	}

	if err := s.store.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	prefix := s.loc.PartitionPrefix(spec.Table, day)
	keys := make([]string, 0, spec.Files)
	for f := 0; f < spec.Files; f++ {
		data, err := s.buildFile(spec, day, f)
		if err != nil {
			return nil, fmt.Errorf("building seed file %d for %s: %w", f, spec.Table, err)
		}
		key := fmt.Sprintf("%spart-%06d.parquet", prefix, f)
		if err := s.store.Put(ctx, key, data); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *Seeder) buildFile(spec SeedSpec, day time.Time, fileIdx int) ([]byte, error) {
	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewJSONWriter(seedSchema, pfw, 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	base := day.Unix()
	for i := 0; i < spec.Rows; i++ {
		n := fileIdx*spec.Rows + i
		if fileIdx > 0 && i < spec.Overlap {
			// Re-issue a key from the previous file with a later timestamp.
			n = (fileIdx-1)*spec.Rows + i
		}
		row := map[string]any{
			"event_id": fmt.Sprintf("evt-%05d", n),
			"user_id":  fmt.Sprintf("user-%03d", n%7),
			"amount":   float64(n%100) + 0.5,
			"event_ts": base + int64(fileIdx*3600+i),
		}
		// The JSON writer only takes encoded rows, not maps.
		b, err := json.Marshal(row)
		if err != nil {
			return nil, err
		}
		if err := pw.Write(string(b)); err != nil {
			_ = pw.WriteStop()
			_ = pfw.Close()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = pfw.Close()
		return nil, err
	}
	if err := pfw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
