package derivable

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrUnresolved is returned by Get on an unresolved node. A deriver
	// returning it (or an error wrapping it) produces an unresolved state
	// instead of an errored one.
	ErrUnresolved = errors.New("derivable: not yet resolved")

	// ErrFinalized is returned when mutating a node whose state is final
	ErrFinalized = errors.New("derivable: cannot change a final node")

	// ErrNotSettable is returned by Set on a node without a setter
	ErrNotSettable = errors.New("derivable: node is not settable")

	// ErrCyclicalReactions is returned when a reactor re-enters itself
	// synchronously more often than the configured maximum depth
	ErrCyclicalReactions = errors.New("derivable: too deeply nested synchronous cyclical reactions")

	// ErrNilError stands in for a nil error passed to SetError or ErrorOf
	ErrNilError = errors.New("derivable: nil error")
)

func isUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolved)
}

// ReactionError reports an error that stopped (or was handed to the
// OnError handler of) a reactor
type ReactionError struct {
	ReactorID uint64
	Parent    Observable
	Cause     error

	owner *Reactor
}

func (e *ReactionError) Error() string {
	if e.Parent != nil {
		return fmt.Sprintf("reactor %d on %s: %v", e.ReactorID, describe(e.Parent), e.Cause)
	}
	return fmt.Sprintf("reactor %d: %v", e.ReactorID, e.Cause)
}

func (e *ReactionError) Unwrap() error {
	return e.Cause
}

// CreateReactionError wraps cause for the given reactor
func CreateReactionError(r *Reactor, cause error) *ReactionError {
	re := &ReactionError{
		Cause: cause,
		owner: r,
	}
	if r != nil {
		re.ReactorID = r.id
		re.Parent = r.parent
	}
	return re
}

// PanicError carries a value recovered from a panicking deriver or reaction
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func newPanicError(recovered any) *PanicError {
	return &PanicError{
		Value: recovered,
		Stack: debug.Stack(),
	}
}

// SafeTypeAssertion performs safe type assertion with proper error
func SafeTypeAssertion[T any](value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("type assertion error: expected %T, got %T (value: %v)", zero, value, value)
	}

	return typed, nil
}

func describe(n Observable) string {
	if name := n.Name(); name != "" {
		return fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf("node %d", n.ID())
}
