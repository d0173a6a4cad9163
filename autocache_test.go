package derivable

import "testing"

func TestAutoCacheWithinTurn(t *testing.T) {
	rt := NewRuntime()
	a := NewAtom(rt, 2)

	calls := 0
	d := AutoCache[int](Derive(rt, func() (int, error) {
		calls++
		v, err := a.Get()
		return v * v, err
	}))

	d.Value()
	d.Value()
	if calls != 1 {
		t.Errorf("expected one computation within the turn, got %d", calls)
	}
	if !d.Connected() {
		t.Error("expected the auto-cached node to stay connected until the end of the turn")
	}
	if rt.PendingChecks() != 1 {
		t.Errorf("expected one pending check, got %d", rt.PendingChecks())
	}

	a.Set(3)
	if d.Value() != 9 || calls != 2 {
		t.Errorf("expected a recompute after a change, got %d (calls=%d)", d.Value(), calls)
	}

	rt.EndTurn()
	if d.Connected() || a.Connected() {
		t.Error("expected the node to disconnect at the end of the turn")
	}

	d.Value()
	if calls != 3 {
		t.Errorf("expected a new computation in the next turn, got %d", calls)
	}
	rt.EndTurn()
}

func TestAutoCacheKeptWhileObserved(t *testing.T) {
	rt := NewRuntime()
	a := NewAtom(rt, 1)
	d := Derive(rt, func() (int, error) { return a.Get() }).AutoCache()

	err := rt.Turn(func() error {
		d.Value()
		_, err := React(d, func(int, func()) error { return nil })
		return err
	})
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if !d.Connected() {
		t.Error("an observed node must survive the end of the turn")
	}
}

func TestAutoCacheScheduler(t *testing.T) {
	var queued []func()
	rt := NewRuntime(WithScheduler(SchedulerFunc(func(task func()) {
		queued = append(queued, task)
	})))

	m := Map(NewAtom(rt, "x"), func(v string) (string, error) { return v + v, nil }, WithAutoCache())
	m.Value()
	if len(queued) != 1 || rt.PendingChecks() != 0 {
		t.Fatalf("expected the check to go to the scheduler, got %d queued", len(queued))
	}
	if !m.Connected() {
		t.Fatal("expected the mapping to be held")
	}
	queued[0]()
	if m.Connected() {
		t.Error("expected the mapping to be released by the scheduled check")
	}
}

func TestAutoCacheByDefault(t *testing.T) {
	rt := NewRuntime(WithAutoCacheByDefault())
	calls := 0
	d := Derive(rt, func() (int, error) {
		calls++
		return 1, nil
	})
	d.Value()
	d.Value()
	if calls != 1 {
		t.Errorf("expected the runtime default to auto-cache, got %d calls", calls)
	}
	rt.EndTurn()
}
