package derivable

// Capability tells what a node allows beyond reading
type Capability uint8

const (
	// ReadOnly nodes can only be read and reacted to
	ReadOnly Capability = iota
	// Settable nodes accept Set (bi-mappings, data sources with an acceptor)
	Settable
	// AtomCapability nodes are atoms: Set, Unset, SetError, SetFinal
	AtomCapability
)

func (c Capability) String() string {
	switch c {
	case Settable:
		return "settable"
	case AtomCapability:
		return "atom"
	default:
		return "read-only"
	}
}

// Observable is the type-erased view of any node
type Observable interface {
	ID() uint64
	Name() string
	Version() uint64
	Connected() bool
	Capability() Capability
	Runtime() *Runtime

	node() dependency
}

// Derivable is a readable node producing values of type T
type Derivable[T any] interface {
	Observable

	// Get returns the value, the node's error, or ErrUnresolved
	Get() (T, error)
	// GetOr substitutes fallback for an unresolved state
	GetOr(fallback T) (T, error)
	// State returns the full tagged state
	State() State[T]
	// Value returns the value, or the zero value when errored or unresolved
	Value() T
	Resolved() bool
	Errored() bool
	Err() error
	Final() bool

	equalsFunc() func(a, b T) bool
}

// SettableDerivable is a Derivable that accepts new values
type SettableDerivable[T any] interface {
	Derivable[T]
	Set(v T) error
}

// AsSettable narrows d to a SettableDerivable when its capability allows it
func AsSettable[T any](d Derivable[T]) (SettableDerivable[T], bool) {
	if d.Capability() == ReadOnly {
		return nil, false
	}
	s, ok := d.(SettableDerivable[T])
	return s, ok
}

// AsAtom narrows d to an *Atom
func AsAtom[T any](d Derivable[T]) (*Atom[T], bool) {
	if d.Capability() != AtomCapability {
		return nil, false
	}
	a, ok := d.(*Atom[T])
	return a, ok
}

// observer is anything registered on a node's observer list
type observer interface {
	mark(s *sink)
	invalidate(s *sink, seen map[observer]struct{})
}

// dependency is the internal contract every node fulfils
type dependency interface {
	base() *observable
	refresh()
	addObserver(o observer)
	removeObserver(o observer)
	isFinal() bool

	kindName() string
	stateText() string
	dependencies() []dependency
}

type observable struct {
	rt        *Runtime
	id        uint64
	name      string
	version   uint64
	observers []observer
}

func newObservable(rt *Runtime, name string) observable {
	return observable{
		rt:   rt,
		id:   rt.nextID(),
		name: name,
	}
}

func (o *observable) ID() uint64         { return o.id }
func (o *observable) Name() string       { return o.name }
func (o *observable) Version() uint64    { return o.version }
func (o *observable) Runtime() *Runtime  { return o.rt }
func (o *observable) base() *observable  { return o }
func (o *observable) observerCount() int { return len(o.observers) }

// attach reports whether obs is the first observer
func (o *observable) attach(obs observer) bool {
	o.observers = appendUnique(o.observers, obs)
	return len(o.observers) == 1
}

// detach reports whether the list became empty
func (o *observable) detach(obs observer) bool {
	before := len(o.observers)
	o.observers = removeElement(o.observers, obs)
	return before > 0 && len(o.observers) == 0
}

// NodeOption configures a node at construction
type NodeOption func(*nodeConfig)

type nodeConfig struct {
	name      string
	equals    any
	autoCache bool
}

// Named attaches a debug name used in errors, logs and graph dumps
func Named(name string) NodeOption {
	return func(c *nodeConfig) {
		c.name = name
	}
}

// WithEquals replaces DefaultEquals for the node. The function type must
// match the node's value type.
func WithEquals[T any](eq func(a, b T) bool) NodeOption {
	return func(c *nodeConfig) {
		c.equals = eq
	}
}

// WithAutoCache opts the node into turn-scoped caching at construction
func WithAutoCache() NodeOption {
	return func(c *nodeConfig) {
		c.autoCache = true
	}
}

func buildNodeConfig[T any](rt *Runtime, opts []NodeOption) (nodeConfig, func(a, b T) bool) {
	cfg := nodeConfig{autoCache: rt.autoCacheDefault}
	for _, opt := range opts {
		opt(&cfg)
	}

	eq := DefaultEquals[T]
	if cfg.equals != nil {
		typed, err := SafeTypeAssertion[func(a, b T) bool](cfg.equals)
		if err != nil {
			panic(err)
		}
		eq = typed
	}
	return cfg, eq
}
