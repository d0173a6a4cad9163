package extensions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	derivable "github.com/pumped-fn/derivable-go"
)

func newTracedRuntime(t *testing.T) (*derivable.Runtime, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return derivable.NewRuntime(derivable.WithExtension(NewTracingExtension(tp))), sr
}

func spansNamed(spans []sdktrace.ReadOnlySpan, name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

func TestTracingExtension_NestsReactionsInTransactions(t *testing.T) {
	rt, sr := newTracedRuntime(t)
	a := derivable.NewAtom(rt, 1, derivable.Named("counter"))

	_, err := derivable.React(a, func(int, func()) error { return nil })
	require.NoError(t, err)
	require.NoError(t, rt.Transact(func() error { return a.Set(2) }))

	spans := sr.Ended()
	txns := spansNamed(spans, "derivable.transaction")
	reactions := spansNamed(spans, "derivable.reaction")
	require.Len(t, txns, 1)
	require.Len(t, reactions, 2)

	assert.False(t, reactions[0].Parent().IsValid(), "the initial reaction is a root span")
	assert.Equal(t, txns[0].SpanContext().SpanID(), reactions[1].Parent().SpanID())
	assert.Equal(t, txns[0].SpanContext().TraceID(), reactions[1].SpanContext().TraceID())

	var name string
	for _, kv := range reactions[1].Attributes() {
		if kv.Key == "derivable.node.name" {
			name = kv.Value.AsString()
		}
	}
	assert.Equal(t, "counter", name)
}

func TestTracingExtension_RecordsErrors(t *testing.T) {
	rt, sr := newTracedRuntime(t)

	err := rt.Transact(func() error { return errors.New("abort") })
	require.Error(t, err)

	txns := spansNamed(sr.Ended(), "derivable.transaction")
	require.Len(t, txns, 1)
	assert.Equal(t, codes.Error, txns[0].Status().Code)
	assert.Equal(t, "abort", txns[0].Status().Description)
	require.NotEmpty(t, txns[0].Events())
	assert.Equal(t, "exception", txns[0].Events()[0].Name)
}

func TestTracingExtension_HandledErrorEvent(t *testing.T) {
	rt, sr := newTracedRuntime(t)
	a := derivable.NewAtom(rt, 0)

	_, err := derivable.React(a, func(v int, _ func()) error {
		if v > 0 {
			return errors.New("boom")
		}
		return nil
	}, derivable.OnError(func(error, func()) {}))
	require.NoError(t, err)
	require.NoError(t, rt.Transact(func() error { return a.Set(1) }))

	txns := spansNamed(sr.Ended(), "derivable.transaction")
	require.Len(t, txns, 1)
	assert.Equal(t, codes.Unset, txns[0].Status().Code)

	var found bool
	for _, ev := range txns[0].Events() {
		if ev.Name == "handled reaction error" {
			found = true
		}
	}
	assert.True(t, found)
}
