package derivable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
)

// DefaultMaxReactionDepth is the reentrancy limit of a single reactor
const DefaultMaxReactionDepth = 100

// Runtime owns the ambient state of a reactive graph: the recording stack,
// the current transaction and the deferred auto-cache checks. Nodes created
// on different runtimes must not be mixed.
//
// A Runtime is single-threaded: all nodes of a runtime must be used from one
// goroutine at a time.
type Runtime struct {
	id               uuid.UUID
	ids              uint64
	tracker          tracker
	txn              *transaction
	maxDepth         int
	autoCacheDefault bool
	logger           *slog.Logger
	ctx              context.Context
	extensions       []Extension
	scheduler        Scheduler
	deferred         []func()
	reactors         map[uint64]*Reactor
}

// Option is a modifier for runtimes
type Option func(*Runtime)

// WithLogger sets the logger used for runtime diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithMaxReactionDepth overrides DefaultMaxReactionDepth
func WithMaxReactionDepth(depth int) Option {
	return func(rt *Runtime) {
		if depth > 0 {
			rt.maxDepth = depth
		}
	}
}

// WithExtension returns an option that registers an extension to a runtime
func WithExtension(ext Extension) Option {
	return func(rt *Runtime) {
		if err := rt.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// WithScheduler hands deferred auto-cache checks to s instead of the
// runtime's own turn queue
func WithScheduler(s Scheduler) Option {
	return func(rt *Runtime) {
		rt.scheduler = s
	}
}

// WithContext sets the context passed to extension hooks
func WithContext(ctx context.Context) Option {
	return func(rt *Runtime) {
		if ctx != nil {
			rt.ctx = ctx
		}
	}
}

// WithAutoCacheByDefault makes every derivation, mapping and data source
// created on the runtime auto-cached
func WithAutoCacheByDefault() Option {
	return func(rt *Runtime) {
		rt.autoCacheDefault = true
	}
}

// NewRuntime creates a new runtime with optional configuration
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		id:         uuid.New(),
		maxDepth:   DefaultMaxReactionDepth,
		logger:     slog.New(slog.DiscardHandler),
		ctx:        context.Background(),
		extensions: []Extension{},
		reactors:   make(map[uint64]*Reactor),
	}

	for _, opt := range opts {
		opt(rt)
	}

	rt.logger = rt.logger.With("runtime", rt.id.String())
	return rt
}

// ID returns the unique id of the runtime
func (rt *Runtime) ID() uuid.UUID { return rt.id }

// Logger returns the runtime logger
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Context returns the context handed to extensions
func (rt *Runtime) Context() context.Context { return rt.ctx }

// MaxReactionDepth returns the reentrancy limit of a single reactor
func (rt *Runtime) MaxReactionDepth() int { return rt.maxDepth }

// Independent runs fn without recording any of its reads as dependencies
// of the computation currently running
func (rt *Runtime) Independent(fn func()) {
	rt.tracker.suspend()
	defer rt.tracker.pop()
	fn()
}

// Recording reports whether a derivation is currently collecting dependencies
func (rt *Runtime) Recording() bool {
	return rt.tracker.recording()
}

func (rt *Runtime) nextID() uint64 {
	rt.ids++
	return rt.ids
}

// UseExtension registers an extension to the runtime
func (rt *Runtime) UseExtension(ext Extension) error {
	rt.extensions = append(rt.extensions, ext)
	sort.SliceStable(rt.extensions, func(i, j int) bool {
		return rt.extensions[i].Order() < rt.extensions[j].Order()
	})

	return ext.Init(rt)
}

// wrap runs next through the extension chain (last registered wraps first)
func (rt *Runtime) wrap(op *Operation, next func() error) error {
	for i := len(rt.extensions) - 1; i >= 0; i-- {
		ext := rt.extensions[i]
		currentNext := next
		next = func() error {
			return ext.Wrap(rt.ctx, currentNext, op)
		}
	}
	return next()
}

func (rt *Runtime) notifyError(err error, op *Operation) {
	for _, ext := range rt.extensions {
		ext.OnError(err, op, rt)
	}
}

// ActiveReactors returns the number of reactors currently started
func (rt *Runtime) ActiveReactors() int {
	return len(rt.reactors)
}

// Dispose stops every live reactor, runs pending deferred checks and
// disposes the extensions
func (rt *Runtime) Dispose() error {
	live := make([]*Reactor, 0, len(rt.reactors))
	for _, r := range rt.reactors {
		live = append(live, r)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].id < live[j].id })
	for _, r := range live {
		r.Stop()
	}

	rt.EndTurn()

	var errs []error
	for _, ext := range rt.extensions {
		if err := ext.Dispose(rt); err != nil {
			errs = append(errs, fmt.Errorf("disposing extension %s: %w", ext.Name(), err))
		}
	}
	return errors.Join(errs...)
}
