package derivable

// Derivation is a memoized computation over the nodes its deriver reads.
// Dependencies are discovered on every run. While connected the result is
// cached and only recomputed when a dependency's version moved; while
// disconnected every read runs the deriver afresh.
type Derivation[T any] struct {
	observable
	deriver func() (T, error)
	eq      func(a, b T) bool

	deps     []dependency
	versions []uint64
	cache    State[T]

	cached    bool
	upToDate  bool
	forced    bool // recompute even though no dependency moved
	connected bool
	autoCache bool
	held      bool
	finalized bool
}

// Derive creates a derivation. Reads performed by fn through Get, State
// and friends become its dependencies.
func Derive[T any](rt *Runtime, fn func() (T, error), opts ...NodeOption) *Derivation[T] {
	cfg, eq := buildNodeConfig[T](rt, opts)
	return &Derivation[T]{
		observable: newObservable(rt, cfg.name),
		deriver:    fn,
		eq:         eq,
		autoCache:  cfg.autoCache,
	}
}

func (d *Derivation[T]) node() dependency              { return d }
func (d *Derivation[T]) equalsFunc() func(a, b T) bool { return d.eq }

// Capability reports ReadOnly
func (d *Derivation[T]) Capability() Capability { return ReadOnly }

// Connected reports whether the derivation currently caches its result
func (d *Derivation[T]) Connected() bool { return d.connected }

// Final reports whether the derivation can never change again
func (d *Derivation[T]) Final() bool { return d.finalized }

func (d *Derivation[T]) State() State[T]             { return d.getState() }
func (d *Derivation[T]) Get() (T, error)             { return d.getState().Get() }
func (d *Derivation[T]) GetOr(fallback T) (T, error) { return d.getState().GetOr(fallback) }
func (d *Derivation[T]) Value() T                    { return d.getState().Value() }
func (d *Derivation[T]) Resolved() bool              { return d.getState().Resolved() }
func (d *Derivation[T]) Errored() bool               { return d.getState().Errored() }
func (d *Derivation[T]) Err() error                  { return d.getState().Err() }

// AutoCache opts the derivation into turn-scoped caching
func (d *Derivation[T]) AutoCache() *Derivation[T] {
	d.autoCache = true
	return d
}

func (d *Derivation[T]) enableAutoCache() { d.autoCache = true }

func (d *Derivation[T]) getState() State[T] {
	rt := d.rt
	if d.finalized {
		rt.tracker.record(d)
		return d.cache
	}

	if !d.connected {
		if rt.tracker.recording() {
			d.connect()
		} else if d.autoCache {
			d.connect()
			d.hold()
		}
	}

	if !d.connected && !d.finalized {
		return independent(&rt.tracker, d.compute)
	}

	d.update()
	st := d.cache
	switch {
	case d.finalized || len(d.deps) > 0:
		rt.tracker.record(d)
	case len(d.observers) == 0 && !d.held:
		// Nothing to track and nobody to serve.
		d.disconnect()
	}
	return st
}

// compute runs the deriver, turning errors and panics into states
func (d *Derivation[T]) compute() (st State[T]) {
	defer func() {
		if r := recover(); r != nil {
			st = ErrorOf[T](newPanicError(r))
		}
	}()
	return stateFromResult(d.deriver())
}

func (d *Derivation[T]) connect() {
	if d.connected || d.finalized {
		return
	}
	d.connected = true
	d.upToDate = false
	d.cached = false
	d.update()
}

func (d *Derivation[T]) disconnect() {
	if !d.connected {
		return
	}
	deps := d.deps
	d.connected = false
	d.deps = nil
	d.versions = nil
	d.cache = State[T]{}
	d.cached = false
	d.upToDate = false
	d.forced = false

	for _, dep := range deps {
		dep.removeObserver(d)
	}
}

func (d *Derivation[T]) update() {
	if d.finalized || !d.connected {
		return
	}
	if !d.shouldUpdate() {
		d.upToDate = true
		return
	}
	d.recompute()
}

func (d *Derivation[T]) shouldUpdate() bool {
	if d.upToDate {
		return false
	}
	if !d.cached || d.forced {
		return true
	}
	for i, dep := range d.deps {
		dep.refresh()
		if dep.base().version != d.versions[i] {
			return true
		}
	}
	return false
}

func (d *Derivation[T]) recompute() {
	var st State[T]
	rec := d.rt.tracker.track(func() {
		st = d.compute()
	})

	old := d.deps
	for _, dep := range rec.deps {
		if !dep.isFinal() && !containsElement(old, dep) {
			dep.addObserver(d)
		}
	}
	for _, dep := range old {
		if !containsElement(rec.deps, dep) {
			dep.removeObserver(d)
		}
	}
	d.deps = rec.deps
	d.versions = rec.versions

	allFinal := len(d.deps) > 0
	for _, dep := range d.deps {
		if !dep.isFinal() {
			allFinal = false
			break
		}
	}
	if allFinal {
		st = Finalize(st)
	}

	if !d.cached || !statesEqual(d.cache, st, d.eq) {
		d.cache = st
		d.cached = true
		d.version++
	}
	d.upToDate = true
	d.forced = false

	if allFinal {
		d.becomeFinal()
	}
}

// becomeFinal freezes the cached state and lets go of the dependencies
func (d *Derivation[T]) becomeFinal() {
	deps := d.deps
	d.finalized = true
	d.connected = false
	d.deps = nil
	d.versions = nil
	for _, dep := range deps {
		dep.removeObserver(d)
	}
}

func (d *Derivation[T]) hold() {
	if d.held {
		return
	}
	d.held = true
	d.rt.deferCheck(d.releaseHold)
}

func (d *Derivation[T]) releaseHold() {
	d.held = false
	if len(d.observers) == 0 {
		d.disconnect()
		d.rt.logger.Debug("auto-cache released", "node", d.id, "name", d.name)
	}
}

func (d *Derivation[T]) mark(s *sink) {
	if !d.upToDate {
		return
	}
	d.upToDate = false
	markObservers(&d.observable, s)
}

func (d *Derivation[T]) invalidate(s *sink, seen map[observer]struct{}) {
	if _, ok := seen[d]; ok {
		return
	}
	seen[d] = struct{}{}
	d.upToDate = false
	d.forced = true
	invalidateObservers(&d.observable, s, seen)
}

func (d *Derivation[T]) refresh() {
	d.update()
}

func (d *Derivation[T]) addObserver(o observer) {
	if d.finalized {
		return
	}
	d.attach(o)
	if !d.connected {
		d.connect()
	}
}

func (d *Derivation[T]) removeObserver(o observer) {
	if d.detach(o) && !d.held {
		d.disconnect()
	}
}

func (d *Derivation[T]) isFinal() bool    { return d.finalized }
func (d *Derivation[T]) kindName() string { return "derivation" }

func (d *Derivation[T]) stateText() string {
	if !d.cached {
		return "(not cached)"
	}
	return d.cache.String()
}

func (d *Derivation[T]) dependencies() []dependency { return d.deps }
