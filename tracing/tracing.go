// Package tracing records cotask executions as OpenTelemetry spans.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/b97tsk/cotask"
)

const scope = "github.com/b97tsk/cotask"

// SpanName is the name of the span started for every execution.
const SpanName = "cotask.execution"

// Observer is a [cotask.Observer] that starts a span for every top-level
// execution of an Engine and ends it when the execution completes.
//
// Spans are children of whatever span the context.Context of the
// execution carries.
type Observer struct {
	tracer trace.Tracer
}

// New returns an [Observer] that uses tp.
// If tp is nil, the global TracerProvider is used.
func New(tp trace.TracerProvider) *Observer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Observer{tracer: tp.Tracer(scope)}
}

// Begin implements [cotask.Observer].
func (o *Observer) Begin(ec *cotask.ExecutionContext) func(c cotask.Completion) {
	_, span := o.tracer.Start(ec.Context(), SpanName,
		trace.WithAttributes(attribute.String("cotask.execution.id", ec.ID().String())),
	)

	return func(c cotask.Completion) {
		span.SetAttributes(attribute.String("cotask.outcome", c.Outcome()))
		if err := c.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
