package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TracerName is the instrumentation scope of spans started by the frontend
const TracerName = "github.com/alchemorsel/kitchen"

// OpenTelemetryProvider owns the process tracer provider. Page requests get
// server spans and backend calls get client spans linked to them.
type OpenTelemetryProvider struct {
	tp         *sdktrace.TracerProvider
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	probes     map[string]bool
	logger     *zap.Logger
}

// newExporter returns nil when spans should not leave the process
func newExporter(cfg *config.Config) (sdktrace.SpanExporter, error) {
	mon := cfg.Monitoring
	if !mon.EnableTracing || mon.OTLPEndpoint == "" {
		return nil, nil
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(mon.OTLPEndpoint)}
	if !cfg.IsProduction() {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(context.Background(), opts...)
}

// NewOpenTelemetryProvider installs a global tracer provider sampling
// monitoring.sampling_rate of new traces and honoring the caller's choice
// for propagated ones
func NewOpenTelemetryProvider(cfg *config.Config, logger *zap.Logger) (*OpenTelemetryProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.App.Name),
		semconv.ServiceVersion(cfg.App.Version),
		semconv.DeploymentEnvironment(cfg.App.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Monitoring.SamplingRate))),
	}
	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Info("Exporting traces", zap.String("endpoint", cfg.Monitoring.OTLPEndpoint))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	prop := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(prop)

	mon := cfg.Monitoring
	return &OpenTelemetryProvider{
		tp:         tp,
		tracer:     tp.Tracer(TracerName),
		propagator: prop,
		probes: map[string]bool{
			mon.HealthCheckPath: true,
			mon.ReadinessPath:   true,
			mon.MetricsPath:     true,
			"/live":             true,
		},
		logger: logger,
	}, nil
}

func (o *OpenTelemetryProvider) Tracer() trace.Tracer { return o.tracer }

// StartSpan starts an internal span, e.g. around template rendering
func (o *OpenTelemetryProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// InstrumentHTTPHandler adds server spans named "METHOD /path", skipping
// health and metrics probes
func (o *OpenTelemetryProvider) InstrumentHTTPHandler(handler http.Handler, operation string) http.Handler {
	return otelhttp.NewHandler(handler, operation,
		otelhttp.WithTracerProvider(o.tp),
		otelhttp.WithPropagators(o.propagator),
		otelhttp.WithFilter(func(r *http.Request) bool { return !o.probes[r.URL.Path] }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// InstrumentTransport adds client spans to calls against the recipe backend
// and injects the trace context into their headers
func (o *OpenTelemetryProvider) InstrumentTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base,
		otelhttp.WithTracerProvider(o.tp),
		otelhttp.WithPropagators(o.propagator),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "backend " + r.Method + " " + r.URL.Path
		}),
	)
}

// Shutdown flushes buffered spans
func (o *OpenTelemetryProvider) Shutdown(ctx context.Context) error {
	if err := o.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer shutdown: %w", err)
	}
	o.logger.Debug("Tracer provider stopped")
	return nil
}
