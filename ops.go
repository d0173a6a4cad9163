package derivable

import "maps"

// Pluck derives the entry of key in a map node. A missing key is
// unresolved.
func Pluck[K comparable, V any](base Derivable[map[K]V], key K, opts ...NodeOption) *Mapping[map[K]V, V] {
	return Map(base, func(m map[K]V) (V, error) {
		v, ok := m[key]
		if !ok {
			return v, ErrUnresolved
		}
		return v, nil
	}, opts...)
}

// PluckSettable is Pluck writing back through a copy of the map
func PluckSettable[K comparable, V any](base SettableDerivable[map[K]V], key K, opts ...NodeOption) *BiMapping[map[K]V, V] {
	return BiMap(base, func(m map[K]V) (V, error) {
		v, ok := m[key]
		if !ok {
			return v, ErrUnresolved
		}
		return v, nil
	}, func(v V, current map[K]V) (map[K]V, error) {
		next := maps.Clone(current)
		if next == nil {
			next = make(map[K]V, 1)
		}
		next[key] = v
		return next, nil
	}, opts...)
}

// And is true when every operand is. Operands are read left to right and
// reading stops at the first false one, so later operands are only
// dependencies while the earlier ones are true.
func And(first Derivable[bool], rest ...Derivable[bool]) *Derivation[bool] {
	all := append([]Derivable[bool]{first}, rest...)
	return Derive(first.Runtime(), func() (bool, error) {
		for _, d := range all {
			v, err := d.Get()
			if err != nil || !v {
				return false, err
			}
		}
		return true, nil
	})
}

// Or is true as soon as one operand is, reading left to right
func Or(first Derivable[bool], rest ...Derivable[bool]) *Derivation[bool] {
	all := append([]Derivable[bool]{first}, rest...)
	return Derive(first.Runtime(), func() (bool, error) {
		for _, d := range all {
			v, err := d.Get()
			if err != nil || v {
				return v, err
			}
		}
		return false, nil
	})
}

// Not negates d
func Not(d Derivable[bool]) *Mapping[bool, bool] {
	return Map(d, func(v bool) (bool, error) { return !v, nil })
}

// Is compares two nodes with the equality of a
func Is[T any](a, b Derivable[T]) *Derivation[bool] {
	eq := a.equalsFunc()
	return Derive(a.Runtime(), func() (bool, error) {
		av, err := a.Get()
		if err != nil {
			return false, err
		}
		bv, err := b.Get()
		if err != nil {
			return false, err
		}
		return eq(av, bv), nil
	})
}

// Swap sets target to fn applied to its current value and the given
// argument, in one transaction
func Swap[T, A any](target SettableDerivable[T], fn func(current T, arg A) (T, error), arg A) error {
	return target.Runtime().Atomically(func() error {
		cur, err := independent(&target.Runtime().tracker, target.State).Get()
		if err != nil {
			return err
		}
		next, err := fn(cur, arg)
		if err != nil {
			return err
		}
		return target.Set(next)
	})
}
