package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/b97tsk/cotask"
	"github.com/b97tsk/cotask/tracing"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider()
	tp.RegisterSpanProcessor(sr)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func attr(s sdktrace.ReadOnlySpan, key attribute.Key) attribute.Value {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestObserver(t *testing.T) {
	sr, tp := newRecorder(t)

	var e cotask.Engine
	e.Observe(tracing.New(tp))

	ctx := context.Background()
	ec := cotask.NewExecutionContext(ctx)

	_, err := e.RunTask(cotask.Nop(), ec).Wait(ctx)
	require.NoError(t, err)
	_, err = e.RunTask(cotask.Fail(errors.New("boom")), nil).Wait(ctx)
	require.Error(t, err)
	_, err = e.RunTask(cotask.Cancel(), nil).Wait(ctx)
	require.ErrorIs(t, err, cotask.ErrCancelled)

	spans := sr.Ended()
	require.Len(t, spans, 3)

	for _, s := range spans {
		assert.Equal(t, tracing.SpanName, s.Name())
	}

	ok, faulted, cancelled := spans[0], spans[1], spans[2]

	assert.Equal(t, ec.ID().String(), attr(ok, "cotask.execution.id").AsString())
	assert.Equal(t, "succeeded", attr(ok, "cotask.outcome").AsString())
	assert.Equal(t, codes.Unset, ok.Status().Code)

	assert.Equal(t, "faulted", attr(faulted, "cotask.outcome").AsString())
	assert.Equal(t, codes.Error, faulted.Status().Code)
	assert.Equal(t, "boom", faulted.Status().Description)
	require.Len(t, faulted.Events(), 1)
	assert.Equal(t, "exception", faulted.Events()[0].Name)

	assert.Equal(t, "cancelled", attr(cancelled, "cotask.outcome").AsString())
	assert.Equal(t, codes.Unset, cancelled.Status().Code)
}

func TestObserverParentSpan(t *testing.T) {
	sr, tp := newRecorder(t)

	var e cotask.Engine
	e.Observe(tracing.New(tp))

	ctx, parent := tp.Tracer("test").Start(context.Background(), "parent")

	_, err := e.RunTask(cotask.Nop(), cotask.NewExecutionContext(ctx)).Wait(ctx)
	require.NoError(t, err)
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	child := spans[0]
	assert.Equal(t, tracing.SpanName, child.Name())
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent().SpanID())
	assert.Equal(t, parent.SpanContext().TraceID(), child.SpanContext().TraceID())
}
