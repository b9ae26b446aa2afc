// Package observability provides distributed tracing for Quasar built on
// OpenTelemetry. Decode and query operations emit spans so a slow dump
// conversion can be broken down into fetch, decompress, decode, and
// handoff phases. Structured logging lives in pkg/logger and Prometheus
// metrics in pkg/metrics; this package only owns traces.
package observability

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	// Global tracer instance
	tracer trace.Tracer

	// Initialization lock
	initOnce sync.Once
)

// Config contains tracing configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRate   float64
	ExporterType   string // "stdout"
	BatchTimeout   time.Duration
	MaxExportBatch int
	MaxQueueSize   int
}

// DefaultConfig returns a default tracing configuration. A one-shot
// conversion samples everything; long-running callers should lower
// SamplingRate.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "quasar",
		ServiceVersion: "1.0.0",
		Environment:    getEnv("ENVIRONMENT", "development"),
		SamplingRate:   1.0,
		ExporterType:   getEnv("TRACING_EXPORTER", "stdout"),
		BatchTimeout:   5 * time.Second,
		MaxExportBatch: 512,
		MaxQueueSize:   2048,
	}
}

// Initialize sets up the tracing provider. Safe to call multiple times;
// only the first call takes effect.
func Initialize(config Config) error {
	var err error

	initOnce.Do(func() {
		err = initTracing(config)
		if err != nil {
			return
		}

		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})

	return err
}

func initTracing(config Config) error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	// Only stdout export for now; a collector endpoint can slot in here.
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	if config.SamplingRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else if config.SamplingRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(config.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(config.MaxExportBatch),
			sdktrace.WithMaxQueueSize(config.MaxQueueSize),
		),
	)

	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(config.ServiceName)

	return nil
}

// GetTracer returns the global tracer. Before Initialize it falls back
// to the ambient otel provider, so spans become no-ops instead of nil
// dereferences.
func GetTracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer("quasar")
	}
	return tracer
}

// Shutdown flushes pending spans and shuts down the tracer provider.
func Shutdown(ctx context.Context) error {
	if tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); ok {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown tracer: %w", err)
		}
	}
	return nil
}

// Span wraps an OpenTelemetry span and batches attribute writes until End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// NewSpan starts a span under the global tracer.
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := GetTracer().Start(ctx, operationName)

	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute to the span (batched for performance)
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// SetStatus sets the span status
func (s *Span) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

// End flushes batched attributes and ends the span.
func (s *Span) End() {
	s.attributes = append(s.attributes,
		attribute.Int64("duration_ns", time.Since(s.startTime).Nanoseconds()))
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}

// DecodeTracer provides tracing for decode pipelines fed from one dump
// source (typically "file" or "query").
type DecodeTracer struct {
	source string
}

// NewDecodeTracer creates a tracer for a dump source.
func NewDecodeTracer(source string) *DecodeTracer {
	return &DecodeTracer{source: source}
}

// StartSpan starts a span named after the source and operation,
// e.g. "quasar.file.decode".
func (dt *DecodeTracer) StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	ctx, span := NewSpan(ctx, fmt.Sprintf("quasar.%s.%s", dt.source, operation))

	span.SetAttribute("dump.source", dt.source)
	span.SetAttribute("dump.operation", operation)

	return ctx, span
}

// TraceDecode traces one decode phase over a payload of byteSize bytes.
// The error from fn is recorded on the span and returned unchanged.
func (dt *DecodeTracer) TraceDecode(ctx context.Context, byteSize int, operation string, fn func() error) error {
	ctx, span := dt.StartSpan(ctx, operation)
	defer span.End()

	span.SetAttribute("dump.bytes", byteSize)

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttribute("error", true)
		span.SetAttribute("error.message", err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		if seconds := duration.Seconds(); seconds > 0 {
			span.SetAttribute("dump.bytes_per_second", float64(byteSize)/seconds)
		}
	}

	return err
}

// getEnv gets environment variable with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
