package engine

import (
	"go.uber.org/fx"
)

// Module provides the fx module for the traffic engine. It expects *Config and *slog.Logger in the graph.
var Module = fx.Module("engine",
	fx.Provide(
		NewRunID,
		NewStatsCollector,
		NewAddressSourceFromConfig,
		NewWorkQueueFromConfig,
		NewMetrics,
		NewMetricsServer,
		NewTrafficClient,
		func(c *TrafficClient) Poster { return c },
		func(c *TrafficClient) Closer { return c },
		NewProducer,
		NewConsumerPool,
		NewReporter,
		NewEngine,
	),
	fx.Invoke(registerMetricsServer),
)

// NewStatsCollector provides a StatsCollector implementation.
func NewStatsCollector() StatsCollector {
	return NewDefaultStatsCollector()
}

// NewAddressSourceFromConfig provides the generator over the configured mode table.
func NewAddressSourceFromConfig(cfg *Config) AddressSource {
	return NewGenerator(cfg.ModeTable())
}

// NewWorkQueueFromConfig provides the bounded work queue.
func NewWorkQueueFromConfig(cfg *Config) *WorkQueue {
	return NewWorkQueue(cfg.QueueCapacity())
}

func registerMetricsServer(lc fx.Lifecycle, server *MetricsServer) {
	lc.Append(fx.Hook{
		OnStart: server.Start,
		OnStop:  server.Stop,
	})
}
