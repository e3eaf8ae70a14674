// Package commands implements the CLI subcommands for the silversmith binary.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/lakecraft/silversmith/internal/catalog"
	"github.com/lakecraft/silversmith/internal/config"
	"github.com/lakecraft/silversmith/internal/ingest"
	"github.com/lakecraft/silversmith/internal/lake"
	"github.com/lakecraft/silversmith/internal/state"
	ddbstate "github.com/lakecraft/silversmith/internal/state/dynamodb"
	pgstate "github.com/lakecraft/silversmith/internal/state/postgres"
	redisstate "github.com/lakecraft/silversmith/internal/state/redis"
	"github.com/lakecraft/silversmith/internal/strategy"
	"github.com/lakecraft/silversmith/internal/warehouse"
	"github.com/lakecraft/silversmith/pkg/types"
)

// newLogger builds the process logger from the configured level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// newStateStore creates the configured run-state backend.
func newStateStore(ctx context.Context, cfg *types.StateConfig) (state.Store, error) {
	switch cfg.Backend {
	case types.StateMemory:
		return state.NewMemory(cfg.Runs), nil
	case types.StatePostgres:
		if cfg.Postgres == nil {
			return nil, fmt.Errorf("postgres config is required when backend is postgres")
		}
		return pgstate.New(ctx, cfg.Postgres.DSN)
	case types.StateRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis config is required when backend is redis")
		}
		return redisstate.New(cfg.Redis, cfg.Runs), nil
	case types.StateDynamoDB:
		if cfg.DynamoDB == nil {
			return nil, fmt.Errorf("dynamodb config is required when backend is dynamodb")
		}
		return ddbstate.New(cfg.DynamoDB)
	default:
		return nil, fmt.Errorf("unsupported state backend: %s", cfg.Backend)
	}
}

// stack holds the wired engine components for one invocation.
type stack struct {
	cfg      *types.Config
	logger   *slog.Logger
	lake     *lake.Client
	db       *warehouse.DB
	registry *strategy.Registry
	store    state.Store
	coord    *ingest.Coordinator
}

// buildStack wires the lake client, warehouse, registry, state store, and
// coordinator from configuration. The returned cleanup closes everything
// and is safe to defer immediately.
func buildStack(ctx context.Context, cfg *types.Config, logger *slog.Logger) (*stack, func(), error) {
	registry, err := strategy.NewRegistry(cfg.Tables)
	if err != nil {
		return nil, nil, fmt.Errorf("loading strategy registry: %w", err)
	}

	lakeClient, err := lake.NewClient(cfg.Lake)
	if err != nil {
		return nil, nil, err
	}

	db, err := warehouse.Open(cfg.Warehouse)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = db.Close() }

	store, err := newStateStore(ctx, cfg.State)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("creating state store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connecting to state store: %w", err)
	}
	closeAll := func() {
		_ = store.Stop(context.Background())
		_ = db.Close()
	}

	opts := ingest.Options{Logger: logger}
	opts.Parallelism = cfg.Engine.Parallelism
	if d, err := time.ParseDuration(cfg.Engine.StepTimeout); err == nil {
		opts.StepTimeout = d
	}
	if d, err := time.ParseDuration(cfg.State.LockTTL); err == nil {
		opts.LockTTL = d
	}
	if cfg.Catalog != nil && cfg.Catalog.Enabled {
		registrar, err := catalog.NewRegistrar(*cfg.Catalog)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("creating catalog registrar: %w", err)
		}
		opts.Catalog = registrar
	}

	stager := warehouse.NewStager(db)
	locator := lake.NewLocator(lakeClient, cfg.SourceDatabase, cfg.Lake.Prefix)
	loader := ingest.NewLoader(lakeClient, stager)
	engine := strategy.NewEngine(db)
	coord := ingest.NewCoordinator(registry, locator, loader, engine, stager, store, opts)

	return &stack{
		cfg:      cfg,
		logger:   logger,
		lake:     lakeClient,
		db:       db,
		registry: registry,
		store:    store,
		coord:    coord,
	}, closeAll, nil
}

// parseDay parses a YYYY-MM-DD argument, defaulting to today (UTC) when
// empty.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return day, nil
}

// printReport renders a run report to the terminal.
func printReport(report types.RunReport) {
	bold := color.New(color.Bold)
	_, _ = bold.Printf("Run %s for %s\n", report.RunID, report.Date)
	for _, o := range report.Outcomes {
		switch o.Status {
		case types.OutcomeSuccess:
			color.Green("  ✓ %-30s %-20s rows=%d files=%d (%dms)",
				o.Table, o.Strategy, o.RowsAffected, o.Files, o.DurationMS)
		case types.OutcomeSkipped:
			reason := "no data"
			if o.Error != "" {
				reason = o.Error
			}
			color.Yellow("  ○ %-30s %s", o.Table, reason)
		case types.OutcomeFailed:
			color.Red("  ✗ %-30s %s: %s", o.Table, o.ErrorCode, o.Error)
		}
	}
	fmt.Printf("  %d consolidated, %d skipped, %d failed, %d rows affected\n",
		report.Succeeded, report.Skipped, report.Failed, report.RowsAffected)
}

// loadProject loads silversmith.yaml from the working directory.
func loadProject() (*types.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
