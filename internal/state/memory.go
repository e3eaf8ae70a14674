package state

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lakecraft/silversmith/pkg/types"
)

// MemoryStore keeps run state in process memory. It is the fallback when no
// backend is configured: single-process runs still get history and locking,
// nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    []types.RunReport
	marks   map[string]types.WatermarkRecord
	locks   map[string]time.Time
	maxRuns int
}

var _ Store = (*MemoryStore)(nil)

// NewMemory returns a MemoryStore retaining at most maxRuns reports.
func NewMemory(maxRuns int) *MemoryStore {
	if maxRuns <= 0 {
		maxRuns = 50
	}
	return &MemoryStore{
		marks:   make(map[string]types.WatermarkRecord),
		locks:   make(map[string]time.Time),
		maxRuns: maxRuns,
	}
}

// PutRun records a run report, newest first, replacing any report with the
// same run ID.
func (m *MemoryStore) PutRun(_ context.Context, report types.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.runs {
		if r.RunID == report.RunID {
			m.runs[i] = report
			return nil
		}
	}
	m.runs = append([]types.RunReport{report}, m.runs...)
	if len(m.runs) > m.maxRuns {
		m.runs = m.runs[:m.maxRuns]
	}
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, runID string) (*types.RunReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.runs {
		if r.RunID == runID {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListRuns(_ context.Context, limit int) ([]types.RunReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]types.RunReport, limit)
	copy(out, m.runs[:limit])
	return out, nil
}

func (m *MemoryStore) PutWatermark(_ context.Context, mark types.WatermarkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[mark.Table] = mark
	return nil
}

func (m *MemoryStore) GetWatermark(_ context.Context, table string) (*types.WatermarkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mark, ok := m.marks[table]
	if !ok {
		return nil, nil
	}
	return &mark, nil
}

func (m *MemoryStore) ListWatermarks(_ context.Context) ([]types.WatermarkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.WatermarkRecord, 0, len(m.marks))
	for _, mark := range m.marks {
		out = append(out, mark)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out, nil
}

// AcquireLock takes the lock when it is free or its previous holder's TTL
// has lapsed.
func (m *MemoryStore) AcquireLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, held := m.locks[key]; held && time.Now().Before(expiry) {
		return false, nil
	}
	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MemoryStore) ReleaseLock(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func (m *MemoryStore) Start(context.Context) error { return nil }
func (m *MemoryStore) Stop(context.Context) error  { return nil }
func (m *MemoryStore) Ping(context.Context) error  { return nil }
