package extensions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/m1gwings/treedrawer/tree"

	derivable "github.com/pumped-fn/derivable-go"
)

// GraphDebugExtension logs the dependency tree of a reactor's parent when
// the reactor fails.
//
// Usage:
//
//	// Human-readable formatted output (with line breaks)
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewGraphDebugExtension(handler)
//
//	// Structured JSON logging (compact, machine-readable)
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	ext := extensions.NewGraphDebugExtension(handler)
//
// Handled errors (consumed by an OnError reactor option) are logged at WARN,
// unhandled ones at ERROR. Transaction rollbacks are not graphed.
type GraphDebugExtension struct {
	derivable.BaseExtension

	logger *slog.Logger
}

// NewGraphDebugExtension creates a new graph debug extension.
// logHandler: slog.Handler for logging (use HumanHandler for formatted output, or any other slog.Handler)
func NewGraphDebugExtension(logHandler slog.Handler) *GraphDebugExtension {
	return &GraphDebugExtension{
		BaseExtension: derivable.NewBaseExtension("graph-debug"),
		logger:        slog.New(logHandler),
	}
}

// OnError logs the dependency tree when a reaction fails
func (e *GraphDebugExtension) OnError(err error, op *derivable.Operation, rt *derivable.Runtime) {
	if op.Kind != derivable.OpReaction || op.Node == nil {
		return
	}

	level := slog.LevelError
	if op.Handled {
		level = slog.LevelWarn
	}

	attrs := []any{
		"reactor", op.ReactorID,
		"node", derivable.DependencyTree(op.Node).Label(),
		"error", err.Error(),
		"operation", string(op.Kind),
		"dependency_graph", RenderTree(op.Node),
	}
	var panicErr *derivable.PanicError
	if errors.As(err, &panicErr) {
		attrs = append(attrs, "stack_trace", string(panicErr.Stack))
	}

	e.logger.Log(context.Background(), level, "Reaction Error", attrs...)
}

// RenderTree draws the dependency tree of n
func RenderTree(n derivable.Observable) string {
	root := derivable.DependencyTree(n)
	t := tree.NewTree(tree.NodeString(nodeText(root)))
	addChildren(t, root, map[uint64]bool{root.ID: true})
	return t.String()
}

func addChildren(t *tree.Tree, g *derivable.GraphNode, path map[uint64]bool) {
	for _, dep := range g.Dependencies {
		child := t.AddChild(tree.NodeString(nodeText(dep)))
		if path[dep.ID] {
			continue
		}
		path[dep.ID] = true
		addChildren(child, dep, path)
		delete(path, dep.ID)
	}
}

func nodeText(g *derivable.GraphNode) string {
	status := "○"
	if g.Connected {
		status = "●"
	}
	return fmt.Sprintf("%s %s v%d %s", status, g.Label(), g.Version, g.State)
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (h *SilentHandler) Handle(context.Context, slog.Record) error { return nil }
func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler  { return h }
func (h *SilentHandler) WithGroup(name string) slog.Handler        { return h }

// HumanHandler is a slog.Handler that formats logs for human readability,
// printing dependency graphs on their own lines
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
	attrs  []slog.Attr
}

// NewHumanHandler creates a new human-readable log handler
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{
		writer: writer,
		level:  level,
	}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Message == "Reaction Error" {
		return h.handleReactionError(record)
	}

	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	write := func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	}
	for _, a := range h.attrs {
		if !write(a) {
			return writeErr
		}
	}
	record.Attrs(write)
	return writeErr
}

func (h *HumanHandler) handleReactionError(record slog.Record) error {
	var reactor, node, errorMsg, graph, stack string

	record.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "reactor":
			reactor = a.Value.String()
		case "node":
			node = a.Value.String()
		case "error":
			errorMsg = a.Value.String()
		case "dependency_graph":
			graph = a.Value.String()
		case "stack_trace":
			stack = a.Value.String()
		}
		return true
	})

	var sb strings.Builder
	rule := strings.Repeat("=", 70)
	sb.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&sb, "[GraphDebug] Reaction Error (%s)\n", record.Level)
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "\nReactor: %s\n", reactor)
	fmt.Fprintf(&sb, "Node: %s\n", node)
	fmt.Fprintf(&sb, "Error: %s\n", errorMsg)
	fmt.Fprintf(&sb, "\nDependency Graph:\n%s\n", graph)
	if stack != "" {
		fmt.Fprintf(&sb, "\nStack Trace:\n%s\n", stack)
	}
	sb.WriteString(rule + "\n\n")

	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &HumanHandler{
		writer: h.writer,
		level:  h.level,
		attrs:  append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
	}
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	// Groups are flattened.
	return h
}
