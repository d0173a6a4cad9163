package derivable

import "reflect"

// Equaler is implemented by values that define their own equality
type Equaler[T any] interface {
	Equal(other T) bool
}

// DefaultEquals is the equality used when no WithEquals option is given:
// identity first, then an Equal method, then reflect.DeepEqual for
// types that have no identity comparison.
func DefaultEquals[T any](a, b T) bool {
	va, vb := any(a), any(b)
	if identical(va, vb) {
		return true
	}
	if e, ok := va.(Equaler[T]); ok {
		return e.Equal(b)
	}
	if va == nil || vb == nil {
		return false
	}
	if reflect.ValueOf(va).Comparable() {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

// identical compares with == when both dynamic values are comparable
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.ValueOf(a).Comparable() {
		return false
	}
	return a == b
}

// sameError treats errors as equal when they are identical, or deeply equal
// values of a type that has no identity comparison
func sameError(a, b error) bool {
	if identical(a, b) {
		return true
	}
	if a == nil || b == nil || reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if reflect.ValueOf(a).Comparable() {
		return false
	}
	return reflect.DeepEqual(a, b)
}
