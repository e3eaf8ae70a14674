// Package notify delivers run reports to configured sinks.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lakecraft/silversmith/internal/metrics"
	"github.com/lakecraft/silversmith/pkg/types"
)

// Sink is a run-report destination.
type Sink interface {
	Send(ctx context.Context, report types.RunReport) error
	Name() string
}

// Dispatcher fans a run report out to every configured sink.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher from report sink configs.
func NewDispatcher(configs []types.ReportSinkConfig, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger}
	for _, cfg := range configs {
		sink, err := newSink(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s sink: %w", cfg.Type, err)
		}
		d.sinks = append(d.sinks, sink)
	}
	return d, nil
}

// Dispatch sends the report to all sinks. A sink failure is logged and does
// not stop delivery to the remaining sinks.
func (d *Dispatcher) Dispatch(ctx context.Context, report types.RunReport) {
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, report); err != nil {
			metrics.ReportsFailed.Add(1)
			d.logger.Error("report delivery failed", "sink", sink.Name(), "runId", report.RunID, "error", err)
			continue
		}
		metrics.ReportsDispatched.Add(1)
	}
}

func newSink(cfg types.ReportSinkConfig) (Sink, error) {
	switch cfg.Type {
	case types.SinkConsole:
		return NewConsoleSink(), nil
	case types.SinkFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file path required")
		}
		return NewFileSink(cfg.Path)
	case types.SinkWebhook:
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook URL required")
		}
		return NewWebhookSink(cfg.URL), nil
	case types.SinkS3:
		return NewS3Sink(cfg.Bucket, cfg.Prefix, cfg.Region)
	case types.SinkSNS:
		return NewSNSSink(cfg.TopicARN, cfg.Region)
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}
