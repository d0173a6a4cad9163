package extensions

import (
	"context"
	"log/slog"
	"time"

	derivable "github.com/pumped-fn/derivable-go"
)

// LoggingExtension logs every transaction and reaction
type LoggingExtension struct {
	derivable.BaseExtension

	logger *slog.Logger
}

// NewLoggingExtension creates a new logging extension. A nil logger logs
// through slog.Default().
func NewLoggingExtension(logger *slog.Logger) *LoggingExtension {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExtension{
		BaseExtension: derivable.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) Init(rt *derivable.Runtime) error {
	e.logger = e.logger.With("runtime", rt.ID().String())
	return nil
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() error, op *derivable.Operation) error {
	attrs := operationAttrs(op)
	start := time.Now()
	e.logger.DebugContext(ctx, string(op.Kind)+" starting", attrs...)

	err := next()

	attrs = append(attrs, "duration", time.Since(start))
	if err != nil {
		e.logger.WarnContext(ctx, string(op.Kind)+" failed", append(attrs, "error", err)...)
	} else {
		e.logger.DebugContext(ctx, string(op.Kind)+" completed", attrs...)
	}
	return err
}

func (e *LoggingExtension) OnError(err error, op *derivable.Operation, rt *derivable.Runtime) {
	attrs := append(operationAttrs(op), "error", err, "handled", op.Handled)
	e.logger.Error(string(op.Kind)+" error", attrs...)
}

func operationAttrs(op *derivable.Operation) []any {
	attrs := []any{"depth", op.Depth}
	if op.Kind == derivable.OpReaction {
		attrs = append(attrs, "reactor", op.ReactorID)
		if op.Node != nil {
			attrs = append(attrs, "node", op.Node.ID(), "name", op.Node.Name())
		}
	}
	return attrs
}
