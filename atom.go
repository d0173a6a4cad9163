package derivable

// Atom is a settable leaf node
type Atom[T any] struct {
	observable
	state State[T]
	eq    func(a, b T) bool
}

// NewAtom creates an atom holding v
func NewAtom[T any](rt *Runtime, v T, opts ...NodeOption) *Atom[T] {
	return newAtom(rt, ValueOf(v), opts)
}

// NewUnresolvedAtom creates an atom that has no value yet
func NewUnresolvedAtom[T any](rt *Runtime, opts ...NodeOption) *Atom[T] {
	return newAtom(rt, UnresolvedOf[T](), opts)
}

// NewAtomFromState creates an atom holding an arbitrary state
func NewAtomFromState[T any](rt *Runtime, st State[T], opts ...NodeOption) *Atom[T] {
	return newAtom(rt, st, opts)
}

func newAtom[T any](rt *Runtime, st State[T], opts []NodeOption) *Atom[T] {
	cfg, eq := buildNodeConfig[T](rt, opts)
	return &Atom[T]{
		observable: newObservable(rt, cfg.name),
		state:      st,
		eq:         eq,
	}
}

type constant[T any] struct {
	*Atom[T]
}

func (c constant[T]) Capability() Capability { return ReadOnly }

// Constant returns a read-only node whose value is final from the start
func Constant[T any](rt *Runtime, v T, opts ...NodeOption) Derivable[T] {
	return constant[T]{Atom: newAtom(rt, Finalize(ValueOf(v)), opts)}
}

func (a *Atom[T]) node() dependency              { return a }
func (a *Atom[T]) equalsFunc() func(a, b T) bool { return a.eq }

// Capability reports AtomCapability
func (a *Atom[T]) Capability() Capability { return AtomCapability }

// Connected reports whether anything observes the atom
func (a *Atom[T]) Connected() bool { return len(a.observers) > 0 }

// State returns the current state and records the read
func (a *Atom[T]) State() State[T] {
	a.rt.tracker.record(a)
	return a.state
}

func (a *Atom[T]) Get() (T, error)             { return a.State().Get() }
func (a *Atom[T]) GetOr(fallback T) (T, error) { return a.State().GetOr(fallback) }
func (a *Atom[T]) Value() T                    { return a.State().Value() }
func (a *Atom[T]) Resolved() bool              { return a.State().Resolved() }
func (a *Atom[T]) Errored() bool               { return a.State().Errored() }
func (a *Atom[T]) Err() error                  { return a.State().Err() }
func (a *Atom[T]) Final() bool                 { return a.state.final }

// Set stores v. Reactors reached by the change fire before Set returns
// (or at the outermost commit inside a transaction) and their unhandled
// errors are returned.
func (a *Atom[T]) Set(v T) error {
	return a.SetState(ValueOf(v))
}

// Unset makes the atom unresolved
func (a *Atom[T]) Unset() error {
	return a.SetState(UnresolvedOf[T]())
}

// SetError puts the atom in the errored state
func (a *Atom[T]) SetError(err error) error {
	return a.SetState(ErrorOf[T](err))
}

// SetFinal stores v and freezes the atom
func (a *Atom[T]) SetFinal(v T) error {
	return a.SetState(Finalize(ValueOf(v)))
}

// SetState replaces the state. Equal states are a no-op, also on a final
// atom; any other change of a final atom fails with ErrFinalized.
func (a *Atom[T]) SetState(st State[T]) error {
	if a.state.final {
		if statesEqual(a.state, Finalize(st), a.eq) {
			return nil
		}
		return ErrFinalized
	}
	if statesEqual(a.state, st, a.eq) {
		return nil
	}

	if txn := a.rt.txn; txn != nil {
		txn.touch(&a.observable, a.snapshot)
	}
	a.state = st
	a.version++
	return a.rt.processChangedState(a, st.final)
}

// Swap sets the atom to fn applied to its current value
func (a *Atom[T]) Swap(fn func(T) T) error {
	return a.rt.Atomically(func() error {
		v, err := a.Get()
		if err != nil {
			return err
		}
		return a.Set(fn(v))
	})
}

func (a *Atom[T]) snapshot() func() {
	state, version := a.state, a.version
	return func() {
		a.state = state
		a.version = version
	}
}

func (a *Atom[T]) refresh() {}

func (a *Atom[T]) addObserver(o observer) {
	if a.state.final {
		return
	}
	a.attach(o)
}

func (a *Atom[T]) removeObserver(o observer) {
	a.detach(o)
}

func (a *Atom[T]) isFinal() bool              { return a.state.final }
func (a *Atom[T]) kindName() string           { return "atom" }
func (a *Atom[T]) stateText() string          { return a.state.String() }
func (a *Atom[T]) dependencies() []dependency { return nil }

func (a *Atom[T]) finalizeNode() {
	a.observers = nil
}
