package extensions

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	derivable "github.com/pumped-fn/derivable-go"
)

const tracerName = "github.com/pumped-fn/derivable-go"

// TracingExtension opens an OpenTelemetry span for every transaction and
// reaction. Operations started while another one runs become its children.
type TracingExtension struct {
	derivable.BaseExtension

	tracer trace.Tracer
	stack  []context.Context
	rtID   string
}

// NewTracingExtension traces through tp, or the global provider when tp
// is nil
func NewTracingExtension(tp trace.TracerProvider) *TracingExtension {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracingExtension{
		BaseExtension: derivable.NewBaseExtension("tracing"),
		tracer:        tp.Tracer(tracerName),
	}
}

func (e *TracingExtension) Init(rt *derivable.Runtime) error {
	e.rtID = rt.ID().String()
	return nil
}

func (e *TracingExtension) Wrap(ctx context.Context, next func() error, op *derivable.Operation) error {
	if n := len(e.stack); n > 0 {
		ctx = e.stack[n-1]
	}

	attrs := []attribute.KeyValue{
		attribute.String("derivable.runtime", e.rtID),
		attribute.Int("derivable.depth", op.Depth),
	}
	if op.Kind == derivable.OpReaction {
		attrs = append(attrs, attribute.Int64("derivable.reactor", int64(op.ReactorID)))
		if op.Node != nil {
			attrs = append(attrs,
				attribute.Int64("derivable.node.id", int64(op.Node.ID())),
				attribute.String("derivable.node.name", op.Node.Name()),
			)
		}
	}

	ctx, span := e.tracer.Start(ctx, "derivable."+string(op.Kind), trace.WithAttributes(attrs...))
	e.stack = append(e.stack, ctx)
	defer func() {
		e.stack = e.stack[:len(e.stack)-1]
		span.End()
	}()

	err := next()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var rerr *derivable.ReactionError
		if errors.As(err, &rerr) {
			span.SetAttributes(attribute.Int64("derivable.failed_reactor", int64(rerr.ReactorID)))
		}
	}
	return err
}

// OnError annotates the current span with handled reactor errors, which
// never reach Wrap as errors
func (e *TracingExtension) OnError(err error, op *derivable.Operation, rt *derivable.Runtime) {
	if len(e.stack) == 0 || !op.Handled {
		return
	}
	span := trace.SpanFromContext(e.stack[len(e.stack)-1])
	span.AddEvent("handled reaction error", trace.WithAttributes(
		attribute.String("error", err.Error()),
		attribute.Int64("derivable.reactor", int64(op.ReactorID)),
	))
}
