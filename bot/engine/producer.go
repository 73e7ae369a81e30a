package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"
)

// Clock abstracts time for the producer schedule.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the part of *time.Timer the producer uses.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) Timer { return realTimer{time.NewTimer(d)} }

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

// Producer emits items at a fixed rate. The schedule is anchored at the start time and advanced by one interval per
// item, so sleep jitter does not accumulate. When the producer falls behind (e.g. a full queue blocked Enqueue), the
// schedule is re-anchored to now instead of bursting to catch up.
type Producer struct {
	source    AddressSource
	queue     *WorkQueue
	metrics   *Metrics
	logger    *slog.Logger
	clock     Clock
	mode      string
	ipv4Ratio float64
	interval  time.Duration
	emitted   atomic.Int64
}

// NewProducer returns a Producer generating cfg.RPS items per second into queue.
func NewProducer(cfg *Config, source AddressSource, queue *WorkQueue, metrics *Metrics, logger *slog.Logger) *Producer {
	return &Producer{
		source:    source,
		queue:     queue,
		metrics:   metrics,
		logger:    logger,
		clock:     realClock{},
		mode:      cfg.Mode,
		ipv4Ratio: cfg.IPv4Ratio,
		interval:  cfg.Interval(),
	}
}

// WithClock replaces the wall clock.
func (p *Producer) WithClock(c Clock) *Producer {
	if c != nil {
		p.clock = c
	}

	return p
}

// Emitted returns the number of items handed to the queue so far.
func (p *Producer) Emitted() int64 {
	return p.emitted.Load()
}

// Run produces until stop is closed or ctx is cancelled. Stop is checked once per tick before generating, so a
// stopped producer never emits another item. A closed stop channel yields a nil error.
func (p *Producer) Run(ctx context.Context, stop <-chan struct{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)

			level.Error(p.logger).Log(
				definitions.LogKeyMsg, "Producer panicked",
				definitions.LogKeyComponent, "producer",
				definitions.LogKeyError, err,
			)
		}
	}()

	next := p.clock.Now()

	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		item, err := p.source.Generate(p.mode, p.ipv4Ratio)
		if err != nil {
			return fmt.Errorf("generate address: %w", err)
		}

		if err = p.queue.Enqueue(ctx, item); err != nil {
			return err
		}

		p.emitted.Add(1)
		p.metrics.ItemProduced()

		next = next.Add(p.interval)

		now := p.clock.Now()

		wait := next.Sub(now)
		if wait <= 0 {
			next = now

			continue
		}

		timer := p.clock.NewTimer(wait)

		select {
		case <-timer.C():
		case <-stop:
			timer.Stop()

			return nil
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		}
	}
}
