package notify

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/lakecraft/silversmith/pkg/types"
)

// ConsoleSink prints run reports to the terminal with color.
type ConsoleSink struct{}

// NewConsoleSink creates a new console report sink.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{}
}

// Name returns the sink identifier.
func (s *ConsoleSink) Name() string { return "console" }

// Send prints a color-coded summary line per table plus the run tallies.
func (s *ConsoleSink) Send(_ context.Context, report types.RunReport) error {
	var header string
	switch report.Level() {
	case types.ReportLevelError:
		header = color.RedString("[FAILED]")
	case types.ReportLevelWarning:
		header = color.YellowString("[PARTIAL]")
	default:
		header = color.GreenString("[OK]")
	}
	fmt.Printf("%s run %s for %s: %d consolidated, %d skipped, %d failed, %d rows\n",
		header, report.RunID, report.Date,
		report.Succeeded, report.Skipped, report.Failed, report.RowsAffected)

	for _, o := range report.Outcomes {
		switch o.Status {
		case types.OutcomeSuccess:
			fmt.Printf("  %s %-30s %-20s rows=%d files=%d\n",
				color.GreenString("✓"), o.Table, o.Strategy, o.RowsAffected, o.Files)
		case types.OutcomeSkipped:
			reason := "no data"
			if o.Error != "" {
				reason = o.Error
			}
			fmt.Printf("  %s %-30s %s\n", color.YellowString("○"), o.Table, reason)
		case types.OutcomeFailed:
			fmt.Printf("  %s %-30s %s: %s\n", color.RedString("✗"), o.Table, o.ErrorCode, o.Error)
		}
	}
	return nil
}
