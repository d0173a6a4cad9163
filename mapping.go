package derivable

// Mapping is a derived node over exactly one base. Unlike a Derivation its
// dependency is fixed, so nothing the mapping function reads is tracked.
type Mapping[B, T any] struct {
	observable
	parent Derivable[B]
	get    func(State[B]) State[T]
	eq     func(a, b T) bool

	baseVersion uint64
	cache       State[T]

	cached    bool
	upToDate  bool
	forced    bool // recompute even though no dependency moved
	connected bool
	autoCache bool
	held      bool
	finalized bool
}

func newMapping[B, T any](base Derivable[B], get func(State[B]) State[T], opts []NodeOption) *Mapping[B, T] {
	rt := base.Runtime()
	cfg, eq := buildNodeConfig[T](rt, opts)
	return &Mapping[B, T]{
		observable: newObservable(rt, cfg.name),
		parent:     base,
		get:        get,
		eq:         eq,
		autoCache:  cfg.autoCache,
	}
}

// Map derives a node by applying fn to the value of base. Errors and the
// unresolved state of base pass through untouched.
func Map[B, T any](base Derivable[B], fn func(B) (T, error), opts ...NodeOption) *Mapping[B, T] {
	return newMapping(base, mapValue(fn), opts)
}

// MapState derives a node from the full state of base
func MapState[B, T any](base Derivable[B], fn func(State[B]) State[T], opts ...NodeOption) *Mapping[B, T] {
	return newMapping(base, fn, opts)
}

func mapValue[B, T any](fn func(B) (T, error)) func(State[B]) State[T] {
	return func(s State[B]) State[T] {
		switch s.kind {
		case KindValue:
			return stateFromResult(fn(s.value))
		case KindError:
			return ErrorOf[T](s.err)
		default:
			return UnresolvedOf[T]()
		}
	}
}

func (m *Mapping[B, T]) node() dependency              { return m }
func (m *Mapping[B, T]) equalsFunc() func(a, b T) bool { return m.eq }

func (m *Mapping[B, T]) Capability() Capability { return ReadOnly }
func (m *Mapping[B, T]) Connected() bool        { return m.connected }
func (m *Mapping[B, T]) Final() bool            { return m.finalized }

func (m *Mapping[B, T]) State() State[T]             { return m.getState() }
func (m *Mapping[B, T]) Get() (T, error)             { return m.getState().Get() }
func (m *Mapping[B, T]) GetOr(fallback T) (T, error) { return m.getState().GetOr(fallback) }
func (m *Mapping[B, T]) Value() T                    { return m.getState().Value() }
func (m *Mapping[B, T]) Resolved() bool              { return m.getState().Resolved() }
func (m *Mapping[B, T]) Errored() bool               { return m.getState().Errored() }
func (m *Mapping[B, T]) Err() error                  { return m.getState().Err() }

// AutoCache opts the mapping into turn-scoped caching
func (m *Mapping[B, T]) AutoCache() *Mapping[B, T] {
	m.autoCache = true
	return m
}

func (m *Mapping[B, T]) enableAutoCache() { m.autoCache = true }

func (m *Mapping[B, T]) getState() State[T] {
	rt := m.rt
	if !m.connected && !m.finalized {
		if rt.tracker.recording() {
			m.connect()
		} else if m.autoCache {
			m.connect()
			m.hold()
		}
	}

	if !m.connected && !m.finalized {
		return independent(&rt.tracker, func() State[T] {
			return m.compute(m.parent.State())
		})
	}

	m.update()
	rt.tracker.record(m)
	return m.cache
}

func (m *Mapping[B, T]) compute(bs State[B]) (st State[T]) {
	defer func() {
		if r := recover(); r != nil {
			st = ErrorOf[T](newPanicError(r))
		}
	}()
	st = m.get(bs)
	if bs.final {
		st = Finalize(st)
	}
	return st
}

func (m *Mapping[B, T]) connect() {
	if m.connected || m.finalized {
		return
	}
	m.connected = true
	m.upToDate = false
	m.cached = false
	m.parent.node().addObserver(m)
	m.update()
}

func (m *Mapping[B, T]) disconnect() {
	if !m.connected {
		return
	}
	m.connected = false
	m.cache = State[T]{}
	m.cached = false
	m.upToDate = false
	m.forced = false
	m.parent.node().removeObserver(m)
}

func (m *Mapping[B, T]) update() {
	if m.finalized || !m.connected || m.upToDate {
		return
	}
	base := m.parent.node()
	base.refresh()
	if m.cached && !m.forced && base.base().version == m.baseVersion {
		m.upToDate = true
		return
	}

	bs := independent(&m.rt.tracker, m.parent.State)
	m.baseVersion = base.base().version
	st := independent(&m.rt.tracker, func() State[T] { return m.compute(bs) })

	if !m.cached || !statesEqual(m.cache, st, m.eq) {
		m.cache = st
		m.cached = true
		m.version++
	}
	m.upToDate = true
	m.forced = false

	if st.final {
		m.finalized = true
		m.connected = false
		base.removeObserver(m)
	}
}

func (m *Mapping[B, T]) hold() {
	if m.held {
		return
	}
	m.held = true
	m.rt.deferCheck(m.releaseHold)
}

func (m *Mapping[B, T]) releaseHold() {
	m.held = false
	if len(m.observers) == 0 {
		m.disconnect()
	}
}

func (m *Mapping[B, T]) mark(s *sink) {
	if !m.upToDate {
		return
	}
	m.upToDate = false
	markObservers(&m.observable, s)
}

func (m *Mapping[B, T]) invalidate(s *sink, seen map[observer]struct{}) {
	if _, ok := seen[m]; ok {
		return
	}
	seen[m] = struct{}{}
	m.upToDate = false
	m.forced = true
	invalidateObservers(&m.observable, s, seen)
}

func (m *Mapping[B, T]) refresh() { m.update() }

func (m *Mapping[B, T]) addObserver(o observer) {
	if m.finalized {
		return
	}
	m.attach(o)
	if !m.connected {
		m.connect()
	}
}

func (m *Mapping[B, T]) removeObserver(o observer) {
	if m.detach(o) && !m.held {
		m.disconnect()
	}
}

func (m *Mapping[B, T]) isFinal() bool    { return m.finalized }
func (m *Mapping[B, T]) kindName() string { return "mapping" }

func (m *Mapping[B, T]) stateText() string {
	if !m.cached {
		return "(not cached)"
	}
	return m.cache.String()
}

func (m *Mapping[B, T]) dependencies() []dependency {
	if !m.connected {
		return nil
	}
	return []dependency{m.parent.node()}
}

// BiMapping is a settable Mapping: setting it writes the inverse image
// back into the base.
type BiMapping[B, T any] struct {
	*Mapping[B, T]
	set func(T) error
}

func (m *BiMapping[B, T]) Capability() Capability { return Settable }

// Set converts v with the inverse function and stores it in the base, in
// a single transaction.
func (m *BiMapping[B, T]) Set(v T) error {
	return m.rt.Atomically(func() error {
		return m.set(v)
	})
}

// StateSetter is a node whose full state can be replaced, like an Atom
type StateSetter[T any] interface {
	SettableDerivable[T]
	SetState(st State[T]) error
}

// BiMap is Map with an inverse. inverse receives the new value and the
// current base value (the zero value when the base has none) and returns
// the base value to store.
func BiMap[B, T any](base SettableDerivable[B], fn func(B) (T, error), inverse func(v T, current B) (B, error), opts ...NodeOption) *BiMapping[B, T] {
	m := newMapping(base, mapValue(fn), opts)
	return &BiMapping[B, T]{
		Mapping: m,
		set: func(v T) error {
			cur := independent(&m.rt.tracker, base.State).Value()
			next, err := inverse(v, cur)
			if err != nil {
				return err
			}
			return base.Set(next)
		},
	}
}

// BiMapState is MapState with an inverse over full states
func BiMapState[B, T any](base StateSetter[B], fn func(State[B]) State[T], inverse func(v State[T], current State[B]) State[B], opts ...NodeOption) *BiMapping[B, T] {
	m := newMapping(base, fn, opts)
	return &BiMapping[B, T]{
		Mapping: m,
		set: func(v T) error {
			cur := independent(&m.rt.tracker, base.State)
			return base.SetState(inverse(ValueOf(v), cur))
		},
	}
}
