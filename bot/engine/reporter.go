package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"
)

// Reporter logs a stats summary every interval.
type Reporter struct {
	interval  time.Duration
	collector StatsCollector
	logger    *slog.Logger
	runID     RunID
}

func NewReporter(cfg *Config, collector StatsCollector, logger *slog.Logger, runID RunID) *Reporter {
	return &Reporter{
		interval:  cfg.LogInterval,
		collector: collector,
		logger:    logger,
		runID:     runID,
	}
}

// Run reports until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Report()
		case <-ctx.Done():
			return
		}
	}
}

// Report logs the current summary once.
func (r *Reporter) Report() {
	summary := r.collector.Snapshot().Summary()

	keyvals := []any{
		definitions.LogKeyMsg, "Traffic summary",
		definitions.LogKeySource, definitions.SourceBot,
		definitions.LogKeyRunID, string(r.runID),
	}

	level.Info(r.logger).Log(append(keyvals, summary.LogValues()...)...)
}
