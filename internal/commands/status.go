package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lakecraft/silversmith/pkg/types"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent runs and table watermarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(limit)
		},
	}
	cmd.Flags().IntVar(&limit, "runs", 5, "number of recent runs to show")
	return cmd
}

func runStatus(limit int) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := newStateStore(ctx, cfg.State)
	if err != nil {
		return fmt.Errorf("creating state store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("connecting to state store: %w", err)
	}
	defer func() { _ = store.Stop(ctx) }()

	bold := color.New(color.Bold)

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
	} else {
		_, _ = bold.Println("Recent Runs:")
		for _, r := range runs {
			statusStr := color.GreenString("OK")
			if r.Failed > 0 {
				statusStr = color.RedString("FAILED")
			} else if r.Skipped > 0 {
				statusStr = color.YellowString("PARTIAL")
			}
			fmt.Printf("  %s  %s  %s  %d/%d/%d  rows=%d\n",
				r.RunID, r.Date, statusStr, r.Succeeded, r.Skipped, r.Failed, r.RowsAffected)
		}
		fmt.Println()
	}

	marks, err := store.ListWatermarks(ctx)
	if err != nil {
		return fmt.Errorf("listing watermarks: %w", err)
	}
	if len(marks) > 0 {
		_, _ = bold.Println("Watermarks:")
		for _, m := range marks {
			fmt.Printf("  %-30s %s = %s (as of %s)\n",
				m.Table, m.Column, m.Value, m.UpdatedAt.Format(types.DateLayout))
		}
	}
	return nil
}
