package derivable

import "fmt"

// StateKind is the tag of a State
type StateKind uint8

const (
	// KindUnresolved means no value is available yet. It is not an error.
	KindUnresolved StateKind = iota
	// KindValue means the state holds a resolved value.
	KindValue
	// KindError means the state holds an error.
	KindError
)

func (k StateKind) String() string {
	switch k {
	case KindUnresolved:
		return "unresolved"
	case KindValue:
		return "value"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("StateKind(%d)", uint8(k))
	}
}

// State is the tagged state of a node: exactly one of value, error or
// unresolved, optionally marked final.
//
// The tag is authoritative. A State[error] of kind KindValue holds an error
// value, not a failure.
type State[T any] struct {
	kind  StateKind
	value T
	err   error
	final bool
}

// ValueOf returns a resolved state holding v
func ValueOf[T any](v T) State[T] {
	return State[T]{kind: KindValue, value: v}
}

// ErrorOf returns an errored state. A nil err is replaced by ErrNilError.
func ErrorOf[T any](err error) State[T] {
	if err == nil {
		err = ErrNilError
	}
	return State[T]{kind: KindError, err: err}
}

// UnresolvedOf returns the unresolved state
func UnresolvedOf[T any]() State[T] {
	return State[T]{kind: KindUnresolved}
}

// Finalize marks s as final
func Finalize[T any](s State[T]) State[T] {
	s.final = true
	return s
}

// Kind returns the tag
func (s State[T]) Kind() StateKind { return s.kind }

// Resolved reports whether the state is not unresolved
func (s State[T]) Resolved() bool { return s.kind != KindUnresolved }

// Errored reports whether the state holds an error
func (s State[T]) Errored() bool { return s.kind == KindError }

// IsFinal reports whether the state can never change again
func (s State[T]) IsFinal() bool { return s.final }

// Err returns the held error, or nil unless the kind is KindError
func (s State[T]) Err() error {
	if s.kind == KindError {
		return s.err
	}
	return nil
}

// Value returns the held value, or the zero value unless the kind is KindValue
func (s State[T]) Value() T {
	if s.kind == KindValue {
		return s.value
	}
	var zero T
	return zero
}

// Get returns the value, the held error, or ErrUnresolved
func (s State[T]) Get() (T, error) {
	var zero T
	switch s.kind {
	case KindValue:
		return s.value, nil
	case KindError:
		return zero, s.err
	default:
		return zero, ErrUnresolved
	}
}

// GetOr is Get with fallback substituted for an unresolved state.
// Errors are still returned.
func (s State[T]) GetOr(fallback T) (T, error) {
	if s.kind == KindUnresolved {
		return fallback, nil
	}
	return s.Get()
}

func (s State[T]) String() string {
	prefix := ""
	if s.final {
		prefix = "final "
	}
	switch s.kind {
	case KindValue:
		return fmt.Sprintf("%svalue(%v)", prefix, s.value)
	case KindError:
		return fmt.Sprintf("%serror(%v)", prefix, s.err)
	default:
		return prefix + "unresolved"
	}
}

// stateFromResult converts a deriver result into a state
func stateFromResult[T any](v T, err error) State[T] {
	if err == nil {
		return ValueOf(v)
	}
	if isUnresolved(err) {
		return UnresolvedOf[T]()
	}
	return ErrorOf[T](err)
}

func statesEqual[T any](a, b State[T], eq func(a, b T) bool) bool {
	if a.kind != b.kind || a.final != b.final {
		return false
	}
	switch a.kind {
	case KindValue:
		return eq(a.value, b.value)
	case KindError:
		return sameError(a.err, b.err)
	default:
		return true
	}
}
