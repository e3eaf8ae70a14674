// Package redis implements the run-state store on Redis/Valkey.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lakecraft/silversmith/internal/state"
	"github.com/lakecraft/silversmith/pkg/types"
)

const defaultRunsMax = 50

// Store is a Redis/Valkey-backed run-state store. Run reports live under
// individual keys with an LPush/LTrim index list capping retention.
type Store struct {
	client  *goredis.Client
	prefix  string
	logger  *slog.Logger
	runsMax int
}

var _ state.Store = (*Store)(nil)

// New creates a Store from connection settings, retaining at most runsMax
// run reports.
func New(cfg *types.RedisConfig, runsMax int) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewFromClient(client, cfg.KeyPrefix, runsMax)
}

// NewFromClient creates a Store from an existing client (useful for testing).
func NewFromClient(client *goredis.Client, prefix string, runsMax int) *Store {
	if prefix == "" {
		prefix = "silversmith:"
	}
	if runsMax <= 0 {
		runsMax = defaultRunsMax
	}
	return &Store{
		client:  client,
		prefix:  prefix,
		logger:  slog.Default(),
		runsMax: runsMax,
	}
}

// SetLogger overrides the logger used for corrupt-entry warnings.
func (s *Store) SetLogger(l *slog.Logger) {
	s.logger = l
}

func (s *Store) runKey(runID string) string {
	return s.prefix + "run:" + runID
}

func (s *Store) runIndexKey() string {
	return s.prefix + "runs"
}

func (s *Store) watermarkKey(table string) string {
	return s.prefix + "watermark:" + table
}

func (s *Store) watermarkIndexKey() string {
	return s.prefix + "watermarks"
}

func (s *Store) lockKey(key string) string {
	return s.prefix + "lock:" + key
}

// PutRun stores a run report and indexes it newest first. Re-putting the
// same run ID moves it to the front rather than duplicating the index entry.
func (s *Store) PutRun(ctx context.Context, report types.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.runKey(report.RunID), data, 0)
	pipe.LRem(ctx, s.runIndexKey(), 0, report.RunID)
	pipe.LPush(ctx, s.runIndexKey(), report.RunID)
	pipe.LTrim(ctx, s.runIndexKey(), 0, int64(s.runsMax-1))
	_, err = pipe.Exec(ctx)
	return err
}

// GetRun retrieves a run report, or (nil, nil) when the ID is unknown.
func (s *Store) GetRun(ctx context.Context, runID string) (*types.RunReport, error) {
	data, err := s.client.Get(ctx, s.runKey(runID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var report types.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListRuns returns recent run reports, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]types.RunReport, error) {
	if limit <= 0 || limit > s.runsMax {
		limit = s.runsMax
	}
	ids, err := s.client.LRange(ctx, s.runIndexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	var reports []types.RunReport
	for _, id := range ids {
		report, err := s.GetRun(ctx, id)
		if err != nil || report == nil {
			if err != nil {
				s.logger.Warn("skipping unreadable run", "runID", id, "error", err)
			}
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// PutWatermark stores the watermark for a table.
func (s *Store) PutWatermark(ctx context.Context, mark types.WatermarkRecord) error {
	data, err := json.Marshal(mark)
	if err != nil {
		return fmt.Errorf("marshaling watermark: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.watermarkKey(mark.Table), data, 0)
	pipe.SAdd(ctx, s.watermarkIndexKey(), mark.Table)
	_, err = pipe.Exec(ctx)
	return err
}

// GetWatermark retrieves the watermark for a table, or (nil, nil) when the
// table has never been consolidated.
func (s *Store) GetWatermark(ctx context.Context, table string) (*types.WatermarkRecord, error) {
	data, err := s.client.Get(ctx, s.watermarkKey(table)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var mark types.WatermarkRecord
	if err := json.Unmarshal(data, &mark); err != nil {
		return nil, err
	}
	return &mark, nil
}

// ListWatermarks returns all watermarks ordered by table name.
func (s *Store) ListWatermarks(ctx context.Context) ([]types.WatermarkRecord, error) {
	tables, err := s.client.SMembers(ctx, s.watermarkIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(tables)

	var marks []types.WatermarkRecord
	for _, table := range tables {
		mark, err := s.GetWatermark(ctx, table)
		if err != nil || mark == nil {
			if err != nil {
				s.logger.Warn("skipping unreadable watermark", "table", table, "error", err)
			}
			continue
		}
		marks = append(marks, *mark)
	}
	return marks, nil
}

// AcquireLock attempts to acquire a distributed lock with the given key and
// TTL. Expiry is enforced by Redis so a crashed holder cannot wedge the lock.
func (s *Store) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.lockKey(key), "1", ttl).Result()
	return ok, err
}

// ReleaseLock releases a distributed lock.
func (s *Store) ReleaseLock(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.lockKey(key)).Err()
}

// Start verifies connectivity.
func (s *Store) Start(ctx context.Context) error {
	return s.Ping(ctx)
}

// Stop closes the client connection.
func (s *Store) Stop(_ context.Context) error {
	return s.client.Close()
}

// Ping checks connectivity to the Redis server.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
