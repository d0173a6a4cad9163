package derivable

//go:generate go run ./codegen -w

// Derive1 derives from 1 input(s). The first input that is errored
// or unresolved short-circuits fn.
func Derive1[T any, D1 any](
	d1 Derivable[D1],
	fn func(D1) (T, error),
	opts ...NodeOption,
) *Derivation[T] {
	return Derive(d1.Runtime(), func() (T, error) {
		v1, err := d1.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(v1)
	}, opts...)
}

// Derive2 derives from 2 input(s). The first input that is errored
// or unresolved short-circuits fn.
func Derive2[T any, D1 any, D2 any](
	d1 Derivable[D1],
	d2 Derivable[D2],
	fn func(D1, D2) (T, error),
	opts ...NodeOption,
) *Derivation[T] {
	return Derive(d1.Runtime(), func() (T, error) {
		v1, err := d1.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		v2, err := d2.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(v1, v2)
	}, opts...)
}

// Derive3 derives from 3 input(s). The first input that is errored
// or unresolved short-circuits fn.
func Derive3[T any, D1 any, D2 any, D3 any](
	d1 Derivable[D1],
	d2 Derivable[D2],
	d3 Derivable[D3],
	fn func(D1, D2, D3) (T, error),
	opts ...NodeOption,
) *Derivation[T] {
	return Derive(d1.Runtime(), func() (T, error) {
		v1, err := d1.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		v2, err := d2.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		v3, err := d3.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(v1, v2, v3)
	}, opts...)
}

// Derive4 derives from 4 input(s). The first input that is errored
// or unresolved short-circuits fn.
func Derive4[T any, D1 any, D2 any, D3 any, D4 any](
	d1 Derivable[D1],
	d2 Derivable[D2],
	d3 Derivable[D3],
	d4 Derivable[D4],
	fn func(D1, D2, D3, D4) (T, error),
	opts ...NodeOption,
) *Derivation[T] {
	return Derive(d1.Runtime(), func() (T, error) {
		v1, err := d1.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		v2, err := d2.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		v3, err := d3.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		v4, err := d4.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(v1, v2, v3, v4)
	}, opts...)
}
