// Package telemetry provides the per-request tracing, counting and logging
// hooks used by the dispatcher.
//
// A Provider is built once at startup and injected where it is needed; it
// never installs process-wide OpenTelemetry providers. Spans go to an OTLP
// gRPC collector through a batch processor, the request counter is exported
// through the Prometheus registry, and log records are handed to a
// non-blocking logrecord.Emitter. Every emission is best-effort: failures are
// logged and swallowed so they cannot affect a response.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-service/internal/config"
	"github.com/JakeFAU/catalog-service/internal/logrecord"
)

// ServiceNameKey is the span attribute carrying the configured service name.
const ServiceNameKey = attribute.Key("otel.service.name")

const requestCounterName = "http_requests"

// Provider owns the tracer and meter providers for one process.
type Provider struct {
	serviceName string
	tracer      trace.Tracer
	requests    metric.Int64Counter
	records     logrecord.Emitter
	logger      *zap.Logger
	now         func() time.Time

	shutdowns []func(context.Context) error
}

type options struct {
	registerer     prometheus.Registerer
	spanProcessors []sdktrace.SpanProcessor
	records        logrecord.Emitter
	logger         *zap.Logger
}

// Option customizes New.
type Option func(*options)

// WithRegisterer sets the Prometheus registry the request counter is
// exported through. Defaults to prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithSpanProcessor adds a span processor next to the configured exporter.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessors = append(o.spanProcessors, sp) }
}

// WithRecords sets where log records are emitted.
func WithRecords(e logrecord.Emitter) Option {
	return func(o *options) { o.records = e }
}

// WithLogger sets the logger used to report telemetry failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds a Provider from cfg. Call Shutdown to flush pending spans.
func New(ctx context.Context, cfg config.TelemetryConfig, opts ...Option) (*Provider, error) {
	o := options{registerer: prometheus.DefaultRegisterer, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if cfg.Exporter == config.ExporterOTLP {
		exporter, expErr := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
		if expErr != nil {
			return nil, fmt.Errorf("failed to create otlp trace exporter: %w", expErr)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, sp := range o.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	promExporter, err := otelprom.New(otelprom.WithRegisterer(o.registerer))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)

	counter, err := mp.Meter(cfg.TracerName).Int64Counter(
		requestCounterName,
		metric.WithDescription("Total number of HTTP requests received, labeled by path."),
	)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	return &Provider{
		serviceName: cfg.ServiceName,
		tracer:      tp.Tracer(cfg.TracerName),
		requests:    counter,
		records:     o.records,
		logger:      o.logger,
		now:         time.Now,
		shutdowns:   []func(context.Context) error{tp.Shutdown, mp.Shutdown},
	}, nil
}

// Nop returns a Provider that records nothing.
func Nop() *Provider {
	counter, _ := metricnoop.NewMeterProvider().Meter("").Int64Counter(requestCounterName)
	return &Provider{
		tracer:   tracenoop.NewTracerProvider().Tracer(""),
		requests: counter,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
}

// StartRequest opens a server span named after the request path. The span
// is returned explicitly and must be passed to EndRequest.
func (p *Provider) StartRequest(ctx context.Context, path string) (outCtx context.Context, span trace.Span) {
	outCtx, span = ctx, trace.SpanFromContext(ctx)
	defer p.guard("start span")
	return p.tracer.Start(ctx, path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(ServiceNameKey.String(p.serviceName)),
	)
}

// EndRequest closes a span returned by StartRequest.
func (p *Provider) EndRequest(span trace.Span) {
	if span == nil {
		return
	}
	defer p.guard("end span")
	span.End()
}

// CountRequest increments the request counter for path.
func (p *Provider) CountRequest(ctx context.Context, path string) {
	defer p.guard("count request")
	p.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// Log emits a log record for the request in ctx.
func (p *Provider) Log(ctx context.Context, level logrecord.Level, path, msg string) {
	if p.records == nil {
		return
	}
	defer p.guard("emit log record")
	rec := logrecord.Record{
		TS:        p.now().UTC(),
		Level:     level,
		Message:   msg,
		Path:      path,
		RequestID: RequestIDFromContext(ctx),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		rec.TraceID = sc.TraceID().String()
	}
	p.records.Emit(rec)
}

// Shutdown flushes and stops the tracer and meter providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdowns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	return nil
}

func (p *Provider) guard(op string) {
	if r := recover(); r != nil {
		p.logger.Warn("telemetry emission failed", zap.String("op", op), zap.Any("panic", r))
	}
}
