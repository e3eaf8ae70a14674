package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lakecraft/silversmith/internal/lake"
	"github.com/lakecraft/silversmith/internal/warehouse"
	"github.com/lakecraft/silversmith/pkg/types"
)

const initContainerTimeout = 60 * time.Second

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var skipMinio bool

	cmd := &cobra.Command{
		Use:   "init [project-name]",
		Short: "Initialize a new silversmith project",
		Long:  "Creates project scaffolding and optionally starts a local MinIO container for the bronze lake.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0], skipMinio)
		},
	}

	cmd.Flags().BoolVar(&skipMinio, "skip-minio", false, "Skip starting MinIO container")
	return cmd
}

func runInit(projectName string, skipMinio bool) error {
	bold := color.New(color.Bold)

	_, _ = bold.Printf("Initializing silversmith project: %s\n", projectName)

	if err := os.MkdirAll(filepath.Join(projectName, "warehouse"), 0o755); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}

	configPath := filepath.Join(projectName, "silversmith.yaml")
	configContent := `sourceDatabase: app
logLevel: info

lake:
  endpoint: localhost:9000
  accessKey: minioadmin
  secretKey: minioadmin
  bucket: lake
  prefix: bronze

warehouse:
  path: ./warehouse/silversmith.duckdb

engine:
  parallelism: 4
  stepTimeout: 5m

state:
  backend: memory

server:
  addr: ":3000"

reports:
  - type: console

tables:
  events:
    strategy: incremental_merge
    keyColumns: [event_id]
    orderingColumn: event_ts
    clusterColumns: [user_id]
  inventory:
    strategy: replace_partition
    partitionField: snapshot_date
  customers:
    strategy: upsert_scd1
    keyColumns: [customer_id]
    orderingColumn: updated_at
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	color.Green("  ✓ Project scaffolded")

	db, err := warehouse.Open(types.WarehouseConfig{
		Path:          filepath.Join(projectName, "warehouse", "silversmith.duckdb"),
		StagingSchema: "staging",
		SilverSchema:  "silver",
	})
	if err != nil {
		return fmt.Errorf("provisioning warehouse: %w", err)
	}
	_ = db.Close()
	color.Green("  ✓ Warehouse zones provisioned")

	if !skipMinio {
		if err := startMinio(); err != nil {
			color.Yellow("  ⚠ MinIO setup skipped: %v", err)
			color.Yellow("    Run manually: docker run -d --name silversmith-minio -p 9000:9000 -p 9001:9001 minio/minio server /data --console-address :9001")
		} else {
			color.Green("  ✓ MinIO container started")
			if err := ensureBucket(); err != nil {
				color.Yellow("  ⚠ Bucket not created (MinIO may still be starting): %v", err)
			} else {
				color.Green("  ✓ Bucket 'lake' ready")
			}
		}
	} else {
		color.Yellow("  → MinIO setup skipped (--skip-minio)")
	}

	fmt.Println()
	_, _ = bold.Println("Next steps:")
	fmt.Printf("  cd %s\n", projectName)
	fmt.Println("  silversmith seed --table events")
	fmt.Println("  silversmith run")
	fmt.Println("  silversmith status")
	return nil
}

func ensureBucket() error {
	client, err := lake.NewClient(types.LakeConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "lake",
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return client.EnsureBucket(ctx)
}

func startMinio() error {
	// Check Docker availability
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker not found in PATH")
	}

	// Check if container already exists
	checkCmd := exec.Command("docker", "inspect", "silversmith-minio")
	if checkCmd.Run() == nil {
		// Container exists, try starting it
		startCmd := exec.Command("docker", "start", "silversmith-minio")
		if err := startCmd.Run(); err != nil {
			return fmt.Errorf("starting existing container: %w", err)
		}
		return nil
	}

	// Create and start new container
	ctx, cancel := context.WithTimeout(context.Background(), initContainerTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "run", "-d",
		"--name", "silversmith-minio",
		"-p", "9000:9000",
		"-p", "9001:9001",
		"minio/minio", "server", "/data", "--console-address", ":9001",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
