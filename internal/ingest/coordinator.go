package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/lakecraft/silversmith/internal/metrics"
	"github.com/lakecraft/silversmith/internal/state"
	"github.com/lakecraft/silversmith/internal/strategy"
	"github.com/lakecraft/silversmith/pkg/types"
)

// PartitionLocator resolves (table, logical date) to the bronze objects that
// belong to it.
type PartitionLocator interface {
	Locate(ctx context.Context, table string, day time.Time) (types.PartitionRef, error)
}

// StagingLoader materializes a partition as a transient staging relation.
type StagingLoader interface {
	Load(ctx context.Context, ref types.PartitionRef) (types.StagingRelation, error)
}

// StrategyApplier reconciles a staged partition into its silver table.
type StrategyApplier interface {
	Apply(ctx context.Context, staged types.StagingRelation, strat types.TableStrategy, day time.Time) (int64, error)
}

// StagingManager is the staging-relation surface the coordinator needs for
// cleanup and watermark reads. *warehouse.Stager satisfies it.
type StagingManager interface {
	Drop(ctx context.Context, relation string) error
	ColumnMax(ctx context.Context, relation, column string) (string, bool, error)
}

// CatalogRegistrar registers a consolidated silver table in an external
// catalog. Registration failures never fail the table.
type CatalogRegistrar interface {
	Register(ctx context.Context, table string, cols []types.Column) error
}

// Options tune a Coordinator. Zero values fall back to defaults.
type Options struct {
	Parallelism int           // concurrent tables, default 4
	StepTimeout time.Duration // per-step budget, default 5m
	LockTTL     time.Duration // state-store lock TTL, default 15m
	Logger      *slog.Logger
	Catalog     CatalogRegistrar // optional
}

// Coordinator drives one consolidation run: for every configured table it
// locates the partition, stages it, applies the table's strategy, and
// records the outcome. Tables run concurrently up to the parallelism bound;
// within a table the steps are strictly sequential. One table's failure
// never aborts the others.
type Coordinator struct {
	registry *strategy.Registry
	locator  PartitionLocator
	loader   StagingLoader
	applier  StrategyApplier
	stager   StagingManager
	store    state.Store
	catalog  CatalogRegistrar
	logger   *slog.Logger

	parallelism int64
	stepTimeout time.Duration
	lockTTL     time.Duration

	mu     sync.Mutex
	active map[string]struct{}
}

// NewCoordinator wires a Coordinator over the given collaborators.
func NewCoordinator(reg *strategy.Registry, locator PartitionLocator, loader StagingLoader,
	applier StrategyApplier, stager StagingManager, store state.Store, opts Options) *Coordinator {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 5 * time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 15 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		registry:    reg,
		locator:     locator,
		loader:      loader,
		applier:     applier,
		stager:      stager,
		store:       store,
		catalog:     opts.Catalog,
		logger:      opts.Logger,
		parallelism: int64(opts.Parallelism),
		stepTimeout: opts.StepTimeout,
		lockTTL:     opts.LockTTL,
		active:      make(map[string]struct{}),
	}
}

// Run consolidates every configured table for the logical date.
func (c *Coordinator) Run(ctx context.Context, day time.Time) (types.RunReport, error) {
	return c.RunTables(ctx, day, c.registry.Tables())
}

// RunTables consolidates the named tables for the logical date. A second
// concurrent run for the same date is rejected outright; the caller re-runs
// after the holder finishes or its lock lapses. The returned report carries
// exactly one outcome per requested table even on partial failure.
func (c *Coordinator) RunTables(ctx context.Context, day time.Time, tables []string) (types.RunReport, error) {
	date := day.Format(types.DateLayout)

	held, err := c.store.AcquireLock(ctx, state.DayLockKey(date), c.lockTTL)
	if err != nil {
		return types.RunReport{}, fmt.Errorf("acquiring run lock for %s: %w", date, err)
	}
	if !held {
		return types.RunReport{}, fmt.Errorf("a run for %s is already in progress", date)
	}
	defer func() {
		// Cleanup outlives cancellation of the run itself.
		_ = c.store.ReleaseLock(context.WithoutCancel(ctx), state.DayLockKey(date))
	}()

	runID := uuid.NewString()
	started := time.Now()
	c.logger.Info("run started", "runId", runID, "date", date, "tables", len(tables))

	outcomes := make([]types.IngestionOutcome, len(tables))
	sem := semaphore.NewWeighted(c.parallelism)
	var wg sync.WaitGroup

	for i, table := range tables {
		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = types.IngestionOutcome{
				Table:  table,
				Date:   date,
				Status: types.OutcomeFailed,
				Error:  fmt.Sprintf("run canceled before table started: %v", err),
			}
			continue
		}
		wg.Add(1)
		go func(idx int, table string) {
			defer wg.Done()
			defer sem.Release(1)
			outcomes[idx] = c.ingestTable(ctx, table, day)
		}(i, table)
	}
	wg.Wait()

	report := types.NewRunReport(runID, date, started, time.Now(), outcomes)

	metrics.RunsTotal.Add(1)
	if report.Failed > 0 {
		metrics.RunsFailed.Add(1)
	}
	if err := c.store.PutRun(context.WithoutCancel(ctx), report); err != nil {
		c.logger.Warn("storing run report failed", "runId", runID, "error", err)
	}
	c.logger.Info("run finished", "runId", runID, "date", date,
		"succeeded", report.Succeeded, "skipped", report.Skipped, "failed", report.Failed,
		"rowsAffected", report.RowsAffected)

	return report, nil
}

// ingestTable runs one table's locate -> load -> apply -> cleanup sequence
// and converts every failure into an outcome. The staging relation, once
// created, is dropped unconditionally, including on cancellation.
func (c *Coordinator) ingestTable(ctx context.Context, table string, day time.Time) types.IngestionOutcome {
	started := time.Now()
	out := types.IngestionOutcome{Table: table, Date: day.Format(types.DateLayout)}
	finish := func(o types.IngestionOutcome) types.IngestionOutcome {
		o.DurationMS = time.Since(started).Milliseconds()
		c.record(o)
		return o
	}

	strat, err := c.registry.Lookup(table)
	if err != nil {
		// An unconfigured table is a deliberate omission, not a fault.
		out.Status = types.OutcomeSkipped
		out.ErrorCode = types.CodeOf(err)
		out.Error = err.Error()
		return finish(out)
	}
	out.Strategy = strat.Strategy

	key := state.RunLockKey(table, out.Date)
	if !c.enter(key) {
		return finish(c.failed(out, fmt.Errorf("table %s is already being ingested for %s", table, out.Date)))
	}
	defer c.leave(key)

	held, err := c.store.AcquireLock(ctx, key, c.lockTTL)
	if err != nil {
		return finish(c.failed(out, fmt.Errorf("acquiring table lock: %w", err)))
	}
	if !held {
		return finish(c.failed(out, fmt.Errorf("table %s is locked by another run for %s", table, out.Date)))
	}
	defer func() { _ = c.store.ReleaseLock(context.WithoutCancel(ctx), key) }()

	var ref types.PartitionRef
	err = c.step(ctx, table, func(sctx context.Context) error {
		var err error
		ref, err = c.locator.Locate(sctx, table, day)
		return err
	})
	if err != nil {
		return finish(c.failed(out, err))
	}
	if ref.Empty() {
		out.Status = types.OutcomeSkipped
		c.logger.Info("no bronze objects for partition", "table", table, "date", out.Date)
		return finish(out)
	}
	out.Files = len(ref.Files)

	var staged types.StagingRelation
	err = c.step(ctx, table, func(sctx context.Context) error {
		var err error
		staged, err = c.loader.Load(sctx, ref)
		return err
	})
	if staged.Relation != "" {
		defer func() {
			if err := c.stager.Drop(context.WithoutCancel(ctx), staged.Relation); err != nil {
				c.logger.Warn("dropping staging relation failed", "table", table, "relation", staged.Relation, "error", err)
			}
		}()
	}
	if err != nil {
		return finish(c.failed(out, err))
	}

	var rows int64
	err = c.step(ctx, table, func(sctx context.Context) error {
		var err error
		rows, err = c.applier.Apply(sctx, staged, strat, day)
		return err
	})
	if err != nil {
		return finish(c.failed(out, err))
	}

	c.advanceWatermark(ctx, staged, strat, out.Date)
	c.registerCatalog(ctx, staged)

	out.Status = types.OutcomeSuccess
	out.RowsAffected = rows
	c.logger.Info("table consolidated", "table", table, "date", out.Date,
		"strategy", strat.Strategy, "files", out.Files, "rowsAffected", rows)
	return finish(out)
}

// step runs fn under the per-step budget. Overrunning the budget is a table
// failure; cancellation of the whole run is reported as-is.
func (c *Coordinator) step(ctx context.Context, table string, fn func(context.Context) error) error {
	sctx, cancel := context.WithTimeout(ctx, c.stepTimeout)
	defer cancel()

	err := fn(sctx)
	if err != nil && errors.Is(sctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return types.Errorf(types.CodeTimeoutExceeded, table, "step exceeded %s: %v", c.stepTimeout, err)
	}
	return err
}

func (c *Coordinator) failed(out types.IngestionOutcome, err error) types.IngestionOutcome {
	out.Status = types.OutcomeFailed
	out.ErrorCode = types.CodeOf(err)
	out.Error = err.Error()
	c.logger.Error("table failed", "table", out.Table, "date", out.Date, "code", out.ErrorCode, "error", err)
	return out
}

// advanceWatermark records the newest consolidated ordering value. Replace
// strategies watermark the snapshot date itself. A staged maximum at or below
// the stored watermark is a replay and leaves the record alone.
func (c *Coordinator) advanceWatermark(ctx context.Context, staged types.StagingRelation, strat types.TableStrategy, date string) {
	mark := types.WatermarkRecord{Table: staged.Table, Date: date, UpdatedAt: time.Now()}
	switch strat.Strategy {
	case types.ReplacePartition:
		mark.Column = strat.PartitionField
		mark.Value = date
	default:
		value, ok, err := c.stager.ColumnMax(ctx, staged.Relation, strat.OrderingColumn)
		if err != nil || !ok {
			if err != nil {
				c.logger.Warn("reading staged watermark failed", "table", staged.Table, "error", err)
			}
			return
		}
		mark.Column = strat.OrderingColumn
		mark.Value = value
	}

	prev, err := c.store.GetWatermark(ctx, staged.Table)
	if err != nil {
		c.logger.Warn("reading stored watermark failed", "table", staged.Table, "error", err)
		return
	}
	if prev != nil && prev.Column == mark.Column && !watermarkAdvances(prev.Value, mark.Value) {
		return
	}
	if err := c.store.PutWatermark(ctx, mark); err != nil {
		c.logger.Warn("storing watermark failed", "table", staged.Table, "error", err)
	}
}

// watermarkAdvances reports whether next is strictly newer than prev. The
// warehouse renders ordering maxima as VARCHAR, so numeric columns arrive as
// digit strings of varying width and must not be compared lexically.
func watermarkAdvances(prev, next string) bool {
	if pv, err := strconv.ParseFloat(prev, 64); err == nil {
		if nv, err := strconv.ParseFloat(next, 64); err == nil {
			return nv > pv
		}
	}
	return next > prev
}

func (c *Coordinator) registerCatalog(ctx context.Context, staged types.StagingRelation) {
	if c.catalog == nil {
		return
	}
	if err := c.catalog.Register(ctx, staged.Table, staged.Columns); err != nil {
		metrics.CatalogFailed.Add(1)
		c.logger.Warn("catalog registration failed", "table", staged.Table, "error", err)
		return
	}
	metrics.CatalogRegistered.Add(1)
}

func (c *Coordinator) record(out types.IngestionOutcome) {
	switch out.Status {
	case types.OutcomeSuccess:
		metrics.TablesConsolidated.Add(1)
		metrics.RowsAffectedTotal.Add(out.RowsAffected)
		metrics.FilesStagedTotal.Add(int64(out.Files))
	case types.OutcomeSkipped:
		metrics.TablesSkipped.Add(1)
	case types.OutcomeFailed:
		metrics.TablesFailed.Add(1)
	}
}

// enter claims the in-process fence for one (table, date). It backs the
// state-store lock so overlap is caught even on the memory backend.
func (c *Coordinator) enter(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.active[key]; busy {
		return false
	}
	c.active[key] = struct{}{}
	return true
}

func (c *Coordinator) leave(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, key)
}
