package derivable

import "context"

// Extension provides hooks into transactions and reactions
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a runtime
	Init(rt *Runtime) error

	// Wrap intercepts operations (transactions, reactions)
	Wrap(ctx context.Context, next func() error, op *Operation) error

	// OnError is called for rollbacks and reactor errors, handled or not
	OnError(err error, op *Operation, rt *Runtime)

	// Dispose is called when the runtime is disposed
	Dispose(rt *Runtime) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(rt *Runtime) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() error, op *Operation) error {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, rt *Runtime) {
}

func (e *BaseExtension) Dispose(rt *Runtime) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind OperationKind
	// Node is the reactor's parent for reactions; nil for transactions
	Node Observable
	// ReactorID identifies the reactor for reactions
	ReactorID uint64
	// Depth is the transaction nesting depth (1 = outermost), or the
	// reactor's reentrancy depth for reactions
	Depth   int
	Runtime *Runtime
	// Handled is set on reaction errors consumed by an OnError handler
	Handled bool
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpTransaction indicates a transaction scope
	OpTransaction OperationKind = "transaction"
	// OpReaction indicates a reactor invoking its reaction
	OpReaction OperationKind = "reaction"
)
