package types

// TableStrategy is the per-table consolidation configuration. Which fields
// are required depends on the strategy kind.
type TableStrategy struct {
	Strategy       StrategyKind `yaml:"strategy" json:"strategy"`
	KeyColumns     []string     `yaml:"keyColumns,omitempty" json:"keyColumns,omitempty"`
	OrderingColumn string       `yaml:"orderingColumn,omitempty" json:"orderingColumn,omitempty"`
	PartitionField string       `yaml:"partitionField,omitempty" json:"partitionField,omitempty"`
	ClusterColumns []string     `yaml:"clusterColumns,omitempty" json:"clusterColumns,omitempty"`
}

// LakeConfig holds object-store connection settings for the bronze lake.
type LakeConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"accessKey,omitempty" json:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty" json:"secretKey,omitempty"`
	UseSSL    bool   `yaml:"useSsl,omitempty" json:"useSsl,omitempty"`
	Region    string `yaml:"region,omitempty" json:"region,omitempty"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix,omitempty" json:"prefix,omitempty"` // default "bronze"
}

// WarehouseConfig holds warehouse settings. Path is the DuckDB database
// file; ":memory:" keeps everything in process memory.
type WarehouseConfig struct {
	Path          string `yaml:"path" json:"path"`
	StagingSchema string `yaml:"stagingSchema,omitempty" json:"stagingSchema,omitempty"` // default "staging"
	SilverSchema  string `yaml:"silverSchema,omitempty" json:"silverSchema,omitempty"`   // default "silver"
}

// EngineConfig holds coordinator-level settings.
type EngineConfig struct {
	Parallelism int    `yaml:"parallelism,omitempty" json:"parallelism,omitempty"`
	StepTimeout string `yaml:"stepTimeout,omitempty" json:"stepTimeout,omitempty"` // e.g. "5m"
}

// PostgresConfig holds Postgres state-store settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn" json:"dsn"`
}

// RedisConfig holds Redis/Valkey state-store settings.
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password,omitempty" json:"password,omitempty"`
	DB        int    `yaml:"db,omitempty" json:"db,omitempty"`
	KeyPrefix string `yaml:"keyPrefix" json:"keyPrefix"`
}

// DynamoDBConfig holds DynamoDB state-store settings. RetentionTTL bounds
// how long run reports stay queryable; the table's TTL sweeper removes them.
type DynamoDBConfig struct {
	TableName    string `yaml:"tableName" json:"tableName"`
	Region       string `yaml:"region" json:"region"`
	Endpoint     string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	CreateTable  bool   `yaml:"createTable,omitempty" json:"createTable,omitempty"`
	RetentionTTL string `yaml:"retentionTtl,omitempty" json:"retentionTtl,omitempty"` // e.g. "168h"
}

// StateConfig selects and configures the durable state backend used for run
// history, watermarks, and cross-process run locks.
type StateConfig struct {
	Backend  StateBackend    `yaml:"backend" json:"backend"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty"`
	Redis    *RedisConfig    `yaml:"redis,omitempty" json:"redis,omitempty"`
	DynamoDB *DynamoDBConfig `yaml:"dynamodb,omitempty" json:"dynamodb,omitempty"`
	LockTTL  string          `yaml:"lockTtl,omitempty" json:"lockTtl,omitempty"` // e.g. "15m"
	Runs     int             `yaml:"runs,omitempty" json:"runs,omitempty"`       // retained run reports
}

// CatalogConfig configures optional Glue catalog registration of silver tables.
type CatalogConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Database string `yaml:"database" json:"database"`
	Region   string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// ReportSinkConfig defines one run-report sink.
type ReportSinkConfig struct {
	Type     SinkType `yaml:"type" json:"type"`
	URL      string   `yaml:"url,omitempty" json:"url,omitempty"`
	Path     string   `yaml:"path,omitempty" json:"path,omitempty"`
	TopicARN string   `yaml:"topicArn,omitempty" json:"topicArn,omitempty"`
	Bucket   string   `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Prefix   string   `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Region   string   `yaml:"region,omitempty" json:"region,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Config represents the top-level silversmith.yaml configuration.
type Config struct {
	SourceDatabase string                   `yaml:"sourceDatabase" json:"sourceDatabase"`
	LogLevel       string                   `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`
	Lake           LakeConfig               `yaml:"lake" json:"lake"`
	Warehouse      WarehouseConfig          `yaml:"warehouse" json:"warehouse"`
	Engine         *EngineConfig            `yaml:"engine,omitempty" json:"engine,omitempty"`
	State          *StateConfig             `yaml:"state,omitempty" json:"state,omitempty"`
	Catalog        *CatalogConfig           `yaml:"catalog,omitempty" json:"catalog,omitempty"`
	Server         *ServerConfig            `yaml:"server,omitempty" json:"server,omitempty"`
	Reports        []ReportSinkConfig       `yaml:"reports,omitempty" json:"reports,omitempty"`
	Tables         map[string]TableStrategy `yaml:"tables" json:"tables"`
}
