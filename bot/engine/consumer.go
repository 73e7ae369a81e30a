package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"

	"golang.org/x/sync/errgroup"
)

// Poster submits one address to the target.
type Poster interface {
	Post(ctx context.Context, address string) (statusCode int, latency time.Duration, err error)
}

// ConsumerPool runs a fixed set of workers that drain the WorkQueue into the target endpoint.
type ConsumerPool struct {
	size      int
	queue     *WorkQueue
	client    Poster
	collector StatsCollector
	metrics   *Metrics
	logger    *slog.Logger
}

// NewConsumerPool returns a pool of cfg.Concurrency workers.
func NewConsumerPool(cfg *Config, queue *WorkQueue, client Poster, collector StatsCollector, metrics *Metrics, logger *slog.Logger) *ConsumerPool {
	return &ConsumerPool{
		size:      cfg.Concurrency,
		queue:     queue,
		client:    client,
		collector: collector,
		metrics:   metrics,
		logger:    logger,
	}
}

// Size returns the number of workers.
func (p *ConsumerPool) Size() int {
	return p.size
}

// Run blocks until ctx is cancelled. Request failures never stop a worker.
func (p *ConsumerPool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := range p.size {
		g.Go(func() error {
			p.worker(gctx, i)

			return nil
		})
	}

	return g.Wait()
}

func (p *ConsumerPool) worker(ctx context.Context, id int) {
	for {
		item, err := p.queue.Dequeue(ctx)
		if err != nil {
			return
		}

		p.process(ctx, id, item)
		p.queue.Ack()
	}
}

// process submits one item and records exactly one sample for it, even if the request panics.
func (p *ConsumerPool) process(ctx context.Context, id int, item Item) {
	sample := Sample{Malicious: item.Malicious}
	recorded := false

	p.metrics.RequestStarted()

	defer func() {
		if r := recover(); r != nil {
			level.Error(p.logger).Log(
				definitions.LogKeyMsg, "Consumer panicked",
				definitions.LogKeyComponent, "consumer",
				definitions.LogKeyWorker, id,
				definitions.LogKeyError, fmt.Errorf("%v", r),
			)
		}

		if !recorded {
			p.collector.Record(sample)
			p.metrics.RequestDone(sample)
		}
	}()

	statusCode, latency, err := p.client.Post(ctx, item.Address)
	if err != nil {
		level.Debug(p.logger).Log(
			definitions.LogKeyMsg, "Request failed",
			definitions.LogKeyWorker, id,
			definitions.LogKeyAddress, item.Address,
			definitions.LogKeyError, err,
		)
	} else {
		sample.StatusCode = statusCode
		sample.Succeeded = Succeeded(statusCode)
		sample.HasLatency = true
		sample.Latency = latency
	}

	p.collector.Record(sample)
	p.metrics.RequestDone(sample)

	recorded = true
}
