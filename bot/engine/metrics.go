package engine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "trafficbot"

// Metrics exports the engine counters to Prometheus. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  prometheus.Histogram
	produced prometheus.Counter
	inFlight prometheus.Gauge
}

// NewMetrics registers the engine collectors on a private registry. The queue depth is read on scrape.
func NewMetrics(queue *WorkQueue) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Submitted requests by outcome and address kind",
			},
			[]string{"outcome", "kind"},
		),
		latency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "Latency of answered requests",
				Buckets:   prometheus.ExponentialBuckets(0.001, 1.7, 18),
			},
		),
		produced: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "items_produced_total",
				Help:      "Items handed from the producer to the work queue",
			},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "requests_in_flight",
				Help:      "Requests currently awaiting a response",
			},
		),
	}

	if queue != nil {
		factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "queue_depth",
				Help:      "Items waiting in the work queue",
			},
			func() float64 { return float64(queue.Len()) },
		)
	}

	return m
}

// Registry returns the registry holding the engine collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

func (m *Metrics) ItemProduced() {
	if m == nil {
		return
	}

	m.produced.Inc()
}

func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}

	m.inFlight.Inc()
}

// RequestDone records the finished request and its outcome.
func (m *Metrics) RequestDone(s Sample) {
	if m == nil {
		return
	}

	m.inFlight.Dec()

	outcome := "succeeded"
	if !s.Succeeded {
		outcome = "failed"
	}

	kind := "normal"
	if s.Malicious {
		kind = "malicious"
	}

	m.requests.WithLabelValues(outcome, kind).Inc()

	if s.HasLatency {
		m.latency.Observe(s.Latency.Seconds())
	}
}

// MetricsServer serves /metrics for the engine registry when an address is configured.
type MetricsServer struct {
	address string
	logger  *slog.Logger
	server  *http.Server
	bound   net.Addr
}

// NewMetricsServer returns a server for metrics on cfg.MetricsAddress. It is inert when the address is empty.
func NewMetricsServer(cfg *Config, metrics *Metrics, logger *slog.Logger) *MetricsServer {
	s := &MetricsServer{
		address: cfg.MetricsAddress,
		logger:  logger,
	}

	if s.address == "" || metrics == nil {
		return s
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{DisableCompression: true}))

	s.server = &http.Server{
		Addr:              s.address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start binds the listener and serves in the background.
func (s *MetricsServer) Start(_ context.Context) error {
	if s.server == nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.bound = ln.Addr()

	level.Info(s.logger).Log(definitions.LogKeyMsg, "Metrics server listening", "address", s.bound.String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(s.logger).Log(definitions.LogKeyMsg, "Metrics server failed", definitions.LogKeyError, err)
		}
	}()

	return nil
}

// Addr returns the bound listen address once started, nil otherwise.
func (s *MetricsServer) Addr() net.Addr {
	return s.bound
}

// Stop shuts the server down.
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}
