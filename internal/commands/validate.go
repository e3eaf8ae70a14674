package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lakecraft/silversmith/internal/strategy"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate silversmith.yaml and every table's strategy descriptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate()
		},
	}
}

func runValidate() error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	registry, err := strategy.NewRegistry(cfg.Tables)
	if err != nil {
		return fmt.Errorf("strategy validation failed: %w", err)
	}

	bold := color.New(color.Bold)
	_, _ = bold.Println("Configuration valid.")
	fmt.Printf("  source database: %s\n", cfg.SourceDatabase)
	fmt.Printf("  lake:            %s/%s (prefix %s)\n", cfg.Lake.Endpoint, cfg.Lake.Bucket, cfg.Lake.Prefix)
	fmt.Printf("  warehouse:       %s\n", cfg.Warehouse.Path)
	fmt.Printf("  state backend:   %s\n", cfg.State.Backend)
	fmt.Println()

	_, _ = bold.Println("Tables:")
	for _, name := range registry.Tables() {
		strat, err := registry.Lookup(name)
		if err != nil {
			continue
		}
		detail := ""
		switch {
		case strat.PartitionField != "":
			detail = fmt.Sprintf("partition=%s", strat.PartitionField)
		default:
			detail = fmt.Sprintf("keys=%v ordering=%s", strat.KeyColumns, strat.OrderingColumn)
		}
		fmt.Printf("  %s %-30s %-20s %s\n", color.GreenString("✓"), name, strat.Strategy, detail)
	}
	return nil
}
