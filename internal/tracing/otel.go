// Package tracing wires OpenTelemetry spans around tool calls and ES|QL
// requests.
package tracing

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
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// OpaqueIDHeader is the Elasticsearch request correlation header.
const OpaqueIDHeader = "X-Opaque-Id"

const flushTimeout = 5 * time.Second

// OTelConfig selects the service identity stamped on exported spans.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
}

var (
	mu     sync.RWMutex
	tracer trace.Tracer
)

func setTracer(t trace.Tracer) {
	mu.Lock()
	tracer = t
	mu.Unlock()
}

// GetTracer returns the tracer installed by InitOTel, or the global no-op
// tracer when tracing is off.
func GetTracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	if tracer == nil {
		return otel.Tracer("noop")
	}
	return tracer
}

// InitOTel installs a tracer provider exporting to stderr. The returned
// function flushes pending spans and must run before exit.
func InitOTel(cfg OTelConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	// stdout carries the MCP protocol
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stderr),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create span exporter: %w", err)
	}

	tp, err := newProvider(cfg, sdktrace.WithBatcher(exporter))
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	setTracer(tp.Tracer(cfg.ServiceName))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

func newProvider(cfg OTelConfig, processor sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

// ToolSpan opens the span covering one dispatched tool call.
func ToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "mcp.tool."+toolName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("mcp.tool.name", toolName)),
	)
}

// QuerySpan opens a client span for one _query request.
func QuerySpan(ctx context.Context, queryKind, dataset string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "esql."+queryKind,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemElasticsearch,
			attribute.String("esql.query.kind", queryKind),
			attribute.String("esql.index", dataset),
		),
	)
}

// AddToolAttributes copies scalar tool arguments onto the span. Other
// value types are skipped.
func AddToolAttributes(span trace.Span, args map[string]interface{}) {
	attrs := make([]attribute.KeyValue, 0, len(args))
	for k, v := range args {
		key := attribute.Key("mcp.tool.arg." + k)
		switch val := v.(type) {
		case string:
			attrs = append(attrs, key.String(val))
		case bool:
			attrs = append(attrs, key.Bool(val))
		case int:
			attrs = append(attrs, key.Int(val))
		case float64:
			attrs = append(attrs, key.Float64(val))
		}
	}
	span.SetAttributes(attrs...)
}

// RecordError marks the span failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordErrorMessage marks the span failed with a backend error text.
// Query failures travel inside results, not as Go errors.
func RecordErrorMessage(span trace.Span, msg string) {
	if msg == "" {
		return
	}
	span.SetStatus(codes.Error, msg)
}

// SetResultRows records how many rows a query returned.
func SetResultRows(span trace.Span, rows int) {
	span.SetAttributes(attribute.Int("esql.result.rows", rows))
}

// TraceInfo carries the IDs used for audit entries and X-Opaque-Id.
type TraceInfo struct {
	TraceID string
	SpanID  string
}

// FromContext reads the active span's IDs. Both are empty without a
// recording span.
func FromContext(ctx context.Context) *TraceInfo {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &TraceInfo{}
	}
	return &TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}
