package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lakecraft/silversmith/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "silversmith",
		Short: "Strategy-driven bronze-to-silver warehouse consolidation",
		Long: `Silversmith consolidates date-partitioned bronze parquet into silver
warehouse tables. Each table carries a strategy descriptor -- incremental
merge, partition replace, or SCD1 upsert -- and runs are idempotent: re-running
a date converges to the same silver state.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewValidateCmd(),
		commands.NewSeedCmd(),
		commands.NewRunCmd(),
		commands.NewStatusCmd(),
		commands.NewServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
