// Package config handles loading and validation of silversmith.yaml project
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lakecraft/silversmith/pkg/types"
)

// FileName is the project configuration file silversmith looks for.
const FileName = "silversmith.yaml"

// Load reads and parses silversmith.yaml from the given directory.
func Load(dir string) (*types.Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg types.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *types.Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Lake.Prefix == "" {
		cfg.Lake.Prefix = "bronze"
	}
	if cfg.Warehouse.StagingSchema == "" {
		cfg.Warehouse.StagingSchema = "staging"
	}
	if cfg.Warehouse.SilverSchema == "" {
		cfg.Warehouse.SilverSchema = "silver"
	}
	if cfg.Engine == nil {
		cfg.Engine = &types.EngineConfig{}
	}
	if cfg.Engine.Parallelism <= 0 {
		cfg.Engine.Parallelism = 4
	}
	if cfg.Engine.StepTimeout == "" {
		cfg.Engine.StepTimeout = "5m"
	}
	if cfg.State == nil {
		cfg.State = &types.StateConfig{Backend: types.StateMemory}
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = types.StateMemory
	}
	if cfg.State.LockTTL == "" {
		cfg.State.LockTTL = "15m"
	}
	if cfg.State.Runs <= 0 {
		cfg.State.Runs = 50
	}
}

func validate(cfg *types.Config) error {
	if cfg.SourceDatabase == "" {
		return fmt.Errorf("sourceDatabase is required")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logLevel: %s", cfg.LogLevel)
	}
	if cfg.Lake.Endpoint == "" {
		return fmt.Errorf("lake.endpoint is required")
	}
	if cfg.Lake.Bucket == "" {
		return fmt.Errorf("lake.bucket is required")
	}
	if cfg.Warehouse.Path == "" {
		return fmt.Errorf("warehouse.path is required")
	}
	if len(cfg.Tables) == 0 {
		return fmt.Errorf("at least one table is required")
	}
	if _, err := time.ParseDuration(cfg.Engine.StepTimeout); err != nil {
		return fmt.Errorf("engine.stepTimeout: %w", err)
	}
	if err := validateState(cfg.State); err != nil {
		return err
	}
	if cfg.Catalog != nil && cfg.Catalog.Enabled && cfg.Catalog.Database == "" {
		return fmt.Errorf("catalog.database is required when catalog is enabled")
	}
	if cfg.Server != nil && cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	for i, s := range cfg.Reports {
		if err := validateSink(s); err != nil {
			return fmt.Errorf("reports[%d]: %w", i, err)
		}
	}
	return nil
}

func validateState(st *types.StateConfig) error {
	switch st.Backend {
	case types.StateMemory:
	case types.StatePostgres:
		if st.Postgres == nil || st.Postgres.DSN == "" {
			return fmt.Errorf("state.postgres.dsn is required when backend is postgres")
		}
	case types.StateRedis:
		if st.Redis == nil || st.Redis.Addr == "" {
			return fmt.Errorf("state.redis.addr is required when backend is redis")
		}
	case types.StateDynamoDB:
		if st.DynamoDB == nil || st.DynamoDB.TableName == "" {
			return fmt.Errorf("state.dynamodb.tableName is required when backend is dynamodb")
		}
	default:
		return fmt.Errorf("unknown state backend: %s", st.Backend)
	}
	if _, err := time.ParseDuration(st.LockTTL); err != nil {
		return fmt.Errorf("state.lockTtl: %w", err)
	}
	return nil
}

func validateSink(s types.ReportSinkConfig) error {
	switch s.Type {
	case types.SinkConsole:
	case types.SinkFile:
		if s.Path == "" {
			return fmt.Errorf("path is required for file sinks")
		}
	case types.SinkWebhook:
		if s.URL == "" {
			return fmt.Errorf("url is required for webhook sinks")
		}
	case types.SinkS3:
		if s.Bucket == "" {
			return fmt.Errorf("bucket is required for s3 sinks")
		}
	case types.SinkSNS:
		if s.TopicARN == "" {
			return fmt.Errorf("topicArn is required for sns sinks")
		}
	default:
		return fmt.Errorf("unknown sink type: %s", s.Type)
	}
	return nil
}
