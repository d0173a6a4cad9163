package derivable

import (
	"errors"
	"testing"
)

func TestAtomSetAndGet(t *testing.T) {
	rt := NewRuntime()
	a := NewAtom(rt, 1)

	val, err := a.Get()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if val != 1 {
		t.Errorf("expected 1, got %d", val)
	}

	if err := a.Set(2); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if a.Value() != 2 {
		t.Errorf("expected 2, got %d", a.Value())
	}
}

func TestAtomIdempotentSet(t *testing.T) {
	rt := NewRuntime()
	a := NewAtom(rt, []string{"x", "y"})

	fired := 0
	if _, err := React(a, func(v []string, _ func()) error {
		fired++
		return nil
	}); err != nil {
		t.Fatalf("react failed: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected initial reaction, got %d", fired)
	}

	version := a.Version()
	if err := a.Set([]string{"x", "y"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if a.Version() != version {
		t.Errorf("expected version %d to be unchanged, got %d", version, a.Version())
	}
	if fired != 1 {
		t.Errorf("expected no firing for an equal value, got %d firings", fired)
	}
}

func TestAtomVersionMonotonic(t *testing.T) {
	rt := NewRuntime()
	a := NewAtom(rt, 0)

	start := a.Version()
	for i := 1; i <= 5; i++ {
		if err := a.Set(i); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		if a.Version() != start+uint64(i) {
			t.Fatalf("expected version %d, got %d", start+uint64(i), a.Version())
		}
		if err := a.Set(i); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		if a.Version() != start+uint64(i) {
			t.Fatalf("equal set bumped the version to %d", a.Version())
		}
	}
}

func TestAtomStates(t *testing.T) {
	rt := NewRuntime()
	a := NewUnresolvedAtom[string](rt)

	if a.Resolved() {
		t.Fatal("expected unresolved atom")
	}
	if _, err := a.Get(); !errors.Is(err, ErrUnresolved) {
		t.Errorf("expected ErrUnresolved, got %v", err)
	}
	if v, err := a.GetOr("fallback"); err != nil || v != "fallback" {
		t.Errorf("expected fallback, got %q, %v", v, err)
	}

	boom := errors.New("boom")
	if err := a.SetError(boom); err != nil {
		t.Fatalf("set error failed: %v", err)
	}
	if !a.Errored() {
		t.Fatal("expected errored atom")
	}
	if _, err := a.GetOr("fallback"); !errors.Is(err, boom) {
		t.Errorf("expected boom from GetOr, got %v", err)
	}
	if a.Value() != "" {
		t.Errorf("expected zero value, got %q", a.Value())
	}

	if err := a.SetError(nil); err != nil {
		t.Fatalf("set error failed: %v", err)
	}
	if !errors.Is(a.Err(), ErrNilError) {
		t.Errorf("expected ErrNilError, got %v", a.Err())
	}

	if err := a.Set("ok"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := a.Unset(); err != nil {
		t.Fatalf("unset failed: %v", err)
	}
	if a.Resolved() || a.Errored() {
		t.Error("expected unresolved after Unset")
	}
}

func TestAtomSetFinal(t *testing.T) {
	rt := NewRuntime()
	a := NewAtom(rt, 1)

	if err := a.SetFinal(2); err != nil {
		t.Fatalf("set final failed: %v", err)
	}
	if !a.Final() {
		t.Fatal("expected final atom")
	}
	if err := a.Set(3); !errors.Is(err, ErrFinalized) {
		t.Errorf("expected ErrFinalized, got %v", err)
	}
	if err := a.Set(2); err != nil {
		t.Errorf("setting the same value should be a no-op, got %v", err)
	}
}

func TestAtomSwap(t *testing.T) {
	rt := NewRuntime()
	a := NewAtom(rt, 10)

	if err := a.Swap(func(v int) int { return v * 3 }); err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	if a.Value() != 30 {
		t.Errorf("expected 30, got %d", a.Value())
	}

	if err := Swap(SettableDerivable[int](a), func(cur, by int) (int, error) { return cur + by, nil }, 5); err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	if a.Value() != 35 {
		t.Errorf("expected 35, got %d", a.Value())
	}
}

func TestConstant(t *testing.T) {
	rt := NewRuntime()
	c := Constant(rt, "fixed")

	if !c.Final() {
		t.Error("expected constant to be final")
	}
	if c.Capability() != ReadOnly {
		t.Errorf("expected read-only, got %s", c.Capability())
	}
	if _, ok := AsSettable(c); ok {
		t.Error("constant must not narrow to settable")
	}
	if _, ok := AsAtom(c); ok {
		t.Error("constant must not narrow to atom")
	}
}

func TestCapabilityNarrowing(t *testing.T) {
	rt := NewRuntime()
	a := NewAtom(rt, 1)
	d := Derive(rt, func() (int, error) { return a.Get() })

	var node Derivable[int] = a
	if got, ok := AsAtom(node); !ok || got != a {
		t.Error("expected atom to narrow to itself")
	}
	if _, ok := AsSettable(node); !ok {
		t.Error("expected atom to narrow to settable")
	}
	if _, ok := AsSettable[int](d); ok {
		t.Error("derivation must not narrow to settable")
	}
}

func TestWithEquals(t *testing.T) {
	rt := NewRuntime()
	type point struct{ X, Y int }
	a := NewAtom(rt, point{1, 2}, WithEquals(func(a, b point) bool { return a.X == b.X }))

	v := a.Version()
	if err := a.Set(point{1, 99}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if a.Version() != v {
		t.Error("custom equality should make the set a no-op")
	}
	if a.Value().Y != 2 {
		t.Errorf("expected the old value to stay, got %+v", a.Value())
	}
}
