// Package tracing wraps the OpenTelemetry tracer used around the
// discovery and topic phases.  Spans are only recorded after Setup(true).
package tracing

import (
	"context"
	"io"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/brendoncarroll/go-topicdisc"

var enabled atomic.Bool

// Setup installs a global tracer provider exporting to w when enable is true.
// It returns a shutdown function which should be deferred.
func Setup(enable bool, w io.Writer) (func(context.Context) error, error) {
	enabled.Store(enable)
	if !enable {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Span is a started span; End records err, if any, and ends it.
type Span struct {
	span trace.Span
}

func (s Span) End(err error) {
	if s.span == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

// SetInt attaches an integer attribute to the span.
func (s Span) SetInt(key string, v int) {
	if s.span == nil {
		return
	}
	s.span.SetAttributes(attribute.Int(key, v))
}

// Start starts a span named name if tracing is enabled.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span) {
	if !enabled.Load() {
		return ctx, Span{}
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, Span{span: span}
}
