// Package monitoring owns the OpenTelemetry tracing lifecycle shared by both binaries.
package monitoring

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"

	b3prop "go.opentelemetry.io/contrib/propagators/b3"
	jaegerprop "go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/fx"
)

// TracingConfig is the `tracing` block of both configuration files.
type TracingConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Endpoint     string   `mapstructure:"endpoint"`
	ServiceName  string   `mapstructure:"service_name"`
	SamplerRatio float64  `mapstructure:"sampler_ratio" validate:"gte=0,lte=1"`
	Propagators  []string `mapstructure:"propagators"`
	Insecure     bool     `mapstructure:"insecure"`
}

// Telemetry starts and stops a TracerProvider according to TracingConfig.
type Telemetry struct {
	cfg    TracingConfig
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	tp      *sdktrace.TracerProvider
}

// NewTelemetry returns an unstarted Telemetry.
func NewTelemetry(cfg TracingConfig, logger *slog.Logger) *Telemetry {
	return &Telemetry{cfg: cfg, logger: logger}
}

// isStarted reports whether a TracerProvider is installed.
func (t *Telemetry) isStarted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.started
}

// Start installs the global TracerProvider and propagators. It is a no-op when tracing is disabled
// or already started. An exporter failure leaves tracing enabled without export.
func (t *Telemetry) Start(ctx context.Context, serviceVersion string) {
	if !t.cfg.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return
	}

	svcName := strings.TrimSpace(t.cfg.ServiceName)
	if svcName == "" {
		svcName = "ddos-simulation"
	}

	res, _ := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(svcName),
		semconv.ServiceVersionKey.String(serviceVersion),
		attribute.String("component", svcName),
	))

	ratio := min(max(t.cfg.SamplerRatio, 0), 1)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(res),
	}

	var opts []otlptracehttp.Option
	if t.cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(t.cfg.Endpoint))
	}

	if t.cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		level.Warn(t.logger).Log(definitions.LogKeyMsg, "Failed to initialize OTLP/HTTP exporter", definitions.LogKeyError, err)
	} else {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}

	t.tp = sdktrace.NewTracerProvider(tpOpts...)
	t.started = true

	otel.SetTextMapPropagator(BuildPropagators(t.cfg.Propagators))
	otel.SetTracerProvider(t.tp)

	level.Info(t.logger).Log(definitions.LogKeyMsg, "OpenTelemetry tracing enabled", "service", svcName, "endpoint", t.cfg.Endpoint)
}

// Shutdown flushes pending spans and uninstalls the provider.
func (t *Telemetry) Shutdown(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started || t.tp == nil {
		return
	}

	if err := t.tp.Shutdown(ctx); err != nil {
		level.Warn(t.logger).Log(definitions.LogKeyMsg, "OpenTelemetry shutdown failed", definitions.LogKeyError, err)
	}

	t.started = false
	t.tp = nil
}

// BuildPropagators maps propagator names to a composite propagator. Unknown names are ignored;
// an empty result falls back to W3C tracecontext and baggage.
func BuildPropagators(names []string) propagation.TextMapPropagator {
	var list []propagation.TextMapPropagator

	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "tracecontext":
			list = append(list, propagation.TraceContext{})
		case "baggage":
			list = append(list, propagation.Baggage{})
		case "b3":
			list = append(list, b3prop.New())
		case "b3multi":
			list = append(list, b3prop.New(b3prop.WithInjectEncoding(b3prop.B3MultipleHeader)))
		case "jaeger":
			list = append(list, jaegerprop.Jaeger{})
		}
	}

	if len(list) == 0 {
		list = append(list, propagation.TraceContext{}, propagation.Baggage{})
	}

	return propagation.NewCompositeTextMapPropagator(list...)
}

// Version is filled by the binaries at link time.
var Version = "dev"

// Module starts Telemetry with the app and flushes it on stop. It expects TracingConfig and *slog.Logger.
var Module = fx.Module("monitoring",
	fx.Provide(NewTelemetry),
	fx.Invoke(func(lc fx.Lifecycle, t *Telemetry) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				t.Start(ctx, Version)

				return nil
			},
			OnStop: func(ctx context.Context) error {
				t.Shutdown(ctx)

				return nil
			},
		})
	}),
)
