package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"
)

// State is the lifecycle state of an Engine.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrAlreadyStarted is returned when Run is called a second time.
var ErrAlreadyStarted = errors.New("engine already started")

// ErrDrainAbandoned is returned when the parent context is cancelled before the queue has drained.
var ErrDrainAbandoned = errors.New("drain abandoned")

// Closer releases the resources of the HTTP client.
type Closer interface {
	Close()
}

// Engine coordinates one run: producer, consumer pool and reporter, and the graceful drain at the end.
type Engine struct {
	Config    *Config
	Collector StatsCollector
	Queue     *WorkQueue
	Producer  *Producer
	Consumers *ConsumerPool
	Reporter  *Reporter
	Client    Closer
	RunID     RunID

	logger   *slog.Logger
	state    atomic.Int32
	started  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu     sync.Mutex
	result Stats
	err    error
}

// NewEngine wires the components of a run.
func NewEngine(
	cfg *Config,
	collector StatsCollector,
	queue *WorkQueue,
	producer *Producer,
	consumers *ConsumerPool,
	reporter *Reporter,
	client Closer,
	runID RunID,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		Config:    cfg,
		Collector: collector,
		Queue:     queue,
		Producer:  producer,
		Consumers: consumers,
		Reporter:  reporter,
		Client:    client,
		RunID:     runID,
		logger:    logger,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))

	level.Debug(e.logger).Log(
		definitions.LogKeyMsg, "Engine state changed",
		definitions.LogKeyState, s.String(),
		definitions.LogKeyRunID, string(e.RunID),
	)
}

// Stop requests a graceful drain. It is safe to call at any time and more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
}

// Done is closed when Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Result returns the final statistics and error of a finished run.
func (e *Engine) Result() (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.result, e.err
}

// Run executes the run and blocks until it is stopped. It drains when the configured duration elapses, Stop is
// called or the producer fails. Cancelling ctx abandons the drain.
func (e *Engine) Run(ctx context.Context) (Stats, error) {
	if !e.started.CompareAndSwap(false, true) {
		return Stats{}, ErrAlreadyStarted
	}

	defer close(e.done)

	if r, ok := e.Collector.(interface{ Restart() }); ok {
		r.Restart()
	}

	e.Collector.SetTargetRPS(float64(e.Config.RPS))
	e.Collector.SetConcurrency(int64(e.Consumers.Size()))

	e.setState(StateRunning)

	level.Info(e.logger).Log(
		definitions.LogKeyMsg, "Traffic engine started",
		definitions.LogKeyRunID, string(e.RunID),
		definitions.LogKeyMode, e.Config.Mode,
		"endpoint", e.Config.Endpoint,
		"rps", e.Config.RPS,
		"concurrency", e.Consumers.Size(),
		"duration", e.Config.Duration,
		"queue_capacity", e.Queue.Cap(),
	)

	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	var workers sync.WaitGroup

	workers.Go(func() {
		_ = e.guard("consumer_pool", func() error { return e.Consumers.Run(workCtx) })
	})

	if e.Reporter != nil {
		workers.Go(func() {
			_ = e.guard("reporter", func() error {
				e.Reporter.Run(workCtx)

				return nil
			})
		})
	}

	producerErr := make(chan error, 1)

	go func() {
		producerErr <- e.Producer.Run(ctx, e.stopCh)
	}()

	var deadline <-chan time.Time

	if e.Config.Duration > 0 {
		timer := time.NewTimer(e.Config.Duration)
		defer timer.Stop()

		deadline = timer.C
	}

	var (
		runErr         error
		reason         string
		producerExited bool
	)

	select {
	case <-deadline:
		reason = "duration elapsed"
	case <-e.stopCh:
		reason = "stop requested"
	case err := <-producerErr:
		producerExited = true
		reason = "producer exited"

		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err

			level.Error(e.logger).Log(
				definitions.LogKeyMsg, "Producer failed",
				definitions.LogKeyRunID, string(e.RunID),
				definitions.LogKeyError, err,
			)
		}
	case <-ctx.Done():
		reason = "context cancelled"
	}

	e.setState(StateDraining)
	e.Stop()

	level.Info(e.logger).Log(
		definitions.LogKeyMsg, "Draining work queue",
		definitions.LogKeyRunID, string(e.RunID),
		"reason", reason,
		"pending", e.Queue.Pending(),
	)

	if !producerExited {
		if err := <-producerErr; err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}

	if err := e.Queue.Join(ctx); err != nil {
		level.Warn(e.logger).Log(
			definitions.LogKeyMsg, "Drain abandoned",
			definitions.LogKeyRunID, string(e.RunID),
			"pending", e.Queue.Pending(),
			definitions.LogKeyError, err,
		)

		if runErr == nil {
			runErr = fmt.Errorf("%w: %w", ErrDrainAbandoned, err)
		}
	}

	cancelWork()
	workers.Wait()

	if e.Client != nil {
		e.Client.Close()
	}

	stats := e.Collector.Snapshot()

	e.setState(StateStopped)
	e.logFinal(stats)

	e.mu.Lock()
	e.result, e.err = stats, runErr
	e.mu.Unlock()

	return stats, runErr
}

// guard runs fn and turns a panic into a logged error. A panicking component requests a drain.
func (e *Engine) guard(component string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panic: %v", component, r)

			level.Error(e.logger).Log(
				definitions.LogKeyMsg, "Component panicked",
				definitions.LogKeyComponent, component,
				definitions.LogKeyError, err,
			)

			e.Stop()
		}
	}()

	return fn()
}

func (e *Engine) logFinal(stats Stats) {
	keyvals := []any{
		definitions.LogKeyMsg, "Traffic engine stopped",
		definitions.LogKeySource, definitions.SourceBot,
		definitions.LogKeyRunID, string(e.RunID),
		"elapsed", stats.Elapsed.Round(time.Millisecond),
		"throughput_rps", fmt.Sprintf("%.2f", stats.Throughput()),
		"p50", stats.P50,
		"p90", stats.P90,
		"p99", stats.P99,
		"min_latency", stats.Min,
		"max_latency", stats.Max,
	}

	level.Info(e.logger).Log(append(keyvals, stats.Summary().LogValues()...)...)
}

// WriteReport prints a human-readable final report.
func WriteReport(w io.Writer, stats Stats) {
	s := stats.Summary()

	fmt.Fprintf(w, "Done in %s\n", stats.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "sent=%d succeeded=%d failed=%d malicious_sent=%d normal_sent=%d\n",
		s.Sent, s.Succeeded, s.Failed, s.MaliciousSent, s.NormalSent)

	if stats.Elapsed > 0 {
		fmt.Fprintf(w, "throughput=%.2f req/s\n", stats.Throughput())
	}

	if stats.Samples == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "avg_latency_ms=%.2f\n", s.AvgLatencyMs)
	fmt.Fprintf(w, "min_latency=%s\n", stats.Min)
	fmt.Fprintf(w, "max_latency=%s\n", stats.Max)
	fmt.Fprintf(w, "p50=%s p90=%s p99=%s\n", stats.P50, stats.P90, stats.P99)

	if len(stats.StatusCounts) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "http_status_counts:")

	codes := make([]int, 0, len(stats.StatusCounts))
	for code := range stats.StatusCounts {
		codes = append(codes, code)
	}

	slices.Sort(codes)

	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, stats.StatusCounts[code])
	}
}
