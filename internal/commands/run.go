package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lakecraft/silversmith/internal/notify"
	"github.com/lakecraft/silversmith/pkg/types"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var (
		date   string
		tables []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Consolidate bronze partitions into silver for one logical date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestion(date, tables)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "logical date YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().StringSliceVar(&tables, "table", nil, "restrict the run to specific tables (repeatable)")
	return cmd
}

func runIngestion(date string, tables []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	day, err := parseDay(date)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	ctx := context.Background()

	st, cleanup, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	dispatcher, err := notify.NewDispatcher(cfg.Reports, logger)
	if err != nil {
		return fmt.Errorf("creating report dispatcher: %w", err)
	}

	result, err := func() (types.RunReport, error) {
		if len(tables) > 0 {
			return st.coord.RunTables(ctx, day, tables)
		}
		return st.coord.Run(ctx, day)
	}()
	if err != nil {
		return err
	}

	dispatcher.Dispatch(ctx, result)
	printReport(result)

	// Whether failures fail the run is CLI policy; the coordinator itself
	// just reports outcomes.
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d table(s) failed", result.Failed, len(result.Outcomes))
	}
	return nil
}
