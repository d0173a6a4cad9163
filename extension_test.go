package derivable

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type recordingExtension struct {
	BaseExtension
	order  int
	events *[]string
	fail   error
}

func (e *recordingExtension) Order() int { return e.order }

func (e *recordingExtension) Wrap(ctx context.Context, next func() error, op *Operation) error {
	*e.events = append(*e.events, fmt.Sprintf("%s>%s", e.Name(), op.Kind))
	err := next()
	*e.events = append(*e.events, fmt.Sprintf("%s<%s", e.Name(), op.Kind))
	return err
}

func (e *recordingExtension) OnError(err error, op *Operation, rt *Runtime) {
	*e.events = append(*e.events, fmt.Sprintf("%s!%s handled=%t", e.Name(), op.Kind, op.Handled))
}

func (e *recordingExtension) Dispose(rt *Runtime) error { return e.fail }

func TestExtensionOrdering(t *testing.T) {
	var events []string
	rt := NewRuntime(
		WithExtension(&recordingExtension{BaseExtension: NewBaseExtension("late"), order: 200, events: &events}),
		WithExtension(&recordingExtension{BaseExtension: NewBaseExtension("early"), order: 10, events: &events}),
	)

	if err := rt.Transact(func() error { return nil }); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	want := "[early>transaction late>transaction late<transaction early<transaction]"
	if fmt.Sprint(events) != want {
		t.Errorf("expected %s, got %v", want, events)
	}
}

func TestExtensionSeesNestedOperations(t *testing.T) {
	var events []string
	rt := NewRuntime(WithExtension(&recordingExtension{BaseExtension: NewBaseExtension("ext"), events: &events}))
	a := NewAtom(rt, 1)

	if _, err := React(a, func(int, func()) error { return nil }); err != nil {
		t.Fatalf("react failed: %v", err)
	}
	events = nil

	if err := rt.Transact(func() error {
		return rt.Transact(func() error { return a.Set(2) })
	}); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	want := "[ext>transaction ext>transaction ext<transaction ext>reaction ext<reaction ext<transaction]"
	if fmt.Sprint(events) != want {
		t.Errorf("expected %s, got %v", want, events)
	}
}

func TestExtensionOnError(t *testing.T) {
	var events []string
	rt := NewRuntime(WithExtension(&recordingExtension{BaseExtension: NewBaseExtension("ext"), events: &events}))

	a := NewAtom(rt, 0)
	b := NewAtom(rt, 0)
	fails := func(v int, _ func()) error {
		if v > 0 {
			return errors.New("boom")
		}
		return nil
	}
	if _, err := React(a, fails, OnError(func(error, func()) {})); err != nil {
		t.Fatalf("react failed: %v", err)
	}
	if _, err := React(b, fails); err != nil {
		t.Fatalf("react failed: %v", err)
	}
	events = nil

	a.Set(1)
	b.Set(1)
	rt.Transact(func() error { return errors.New("abort") })

	want := "[ext>reaction ext<reaction ext!reaction handled=true " +
		"ext>reaction ext<reaction ext!reaction handled=false " +
		"ext>transaction ext!transaction handled=false ext<transaction]"
	if fmt.Sprint(events) != want {
		t.Errorf("expected %s, got %v", want, events)
	}
}

func TestExtensionWrapCanReplaceErrors(t *testing.T) {
	sentinel := errors.New("replaced")
	rt := NewRuntime(WithExtension(&replacingExtension{BaseExtension: NewBaseExtension("replace"), err: sentinel}))

	err := rt.Transact(func() error { return errors.New("original") })
	if !errors.Is(err, sentinel) {
		t.Errorf("expected the replaced error, got %v", err)
	}
}

type replacingExtension struct {
	BaseExtension
	err error
}

func (e *replacingExtension) Wrap(ctx context.Context, next func() error, op *Operation) error {
	if err := next(); err != nil {
		return e.err
	}
	return nil
}

func TestRuntimeDispose(t *testing.T) {
	var events []string
	failing := errors.New("dispose failed")
	rt := NewRuntime(
		WithExtension(&recordingExtension{BaseExtension: NewBaseExtension("ok"), events: &events}),
		WithExtension(&recordingExtension{BaseExtension: NewBaseExtension("broken"), events: &events, fail: failing}),
	)

	a := NewAtom(rt, 1)
	d := Derive(rt, func() (int, error) { return a.Value() * 2, nil })
	for i := 0; i < 3; i++ {
		if _, err := React(d, func(int, func()) error { return nil }); err != nil {
			t.Fatalf("react failed: %v", err)
		}
	}
	if rt.ActiveReactors() != 3 {
		t.Fatalf("expected 3 live reactors, got %d", rt.ActiveReactors())
	}

	err := rt.Dispose()
	if !errors.Is(err, failing) {
		t.Errorf("expected the extension error, got %v", err)
	}
	if rt.ActiveReactors() != 0 || d.Connected() || a.Connected() {
		t.Error("dispose must stop every reactor and disconnect the graph")
	}
}
