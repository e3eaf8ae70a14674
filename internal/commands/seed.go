package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lakecraft/silversmith/internal/lake"
)

// NewSeedCmd creates the seed command.
func NewSeedCmd() *cobra.Command {
	var (
		table   string
		date    string
		files   int
		rows    int
		overlap int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate synthetic bronze partitions for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(table, date, files, rows, overlap)
		},
	}
	cmd.Flags().StringVar(&table, "table", "events", "table to seed")
	cmd.Flags().StringVar(&date, "date", "", "logical date YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().IntVar(&files, "files", 2, "parquet files to generate")
	cmd.Flags().IntVar(&rows, "rows", 100, "rows per file")
	cmd.Flags().IntVar(&overlap, "overlap", 10, "rows per file re-using keys from the previous file")
	return cmd
}

func runSeed(table, date string, files, rows, overlap int) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	day, err := parseDay(date)
	if err != nil {
		return err
	}

	client, err := lake.NewClient(cfg.Lake)
	if err != nil {
		return err
	}
	locator := lake.NewLocator(client, cfg.SourceDatabase, cfg.Lake.Prefix)
	seeder := lake.NewSeeder(client, locator)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	keys, err := seeder.Seed(ctx, lake.SeedSpec{
		Table:   table,
		Files:   files,
		Rows:    rows,
		Overlap: overlap,
	}, day)
	if err != nil {
		return fmt.Errorf("seeding %s: %w", table, err)
	}

	color.Green("Seeded %d file(s) for %s on %s:", len(keys), table, day.Format("2006-01-02"))
	for _, k := range keys {
		fmt.Printf("  s3://%s/%s\n", cfg.Lake.Bucket, k)
	}
	return nil
}
