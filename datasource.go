package derivable

// Source describes how a DataSource talks to the outside world
type Source[T any] struct {
	// Calculate reads the current external value. Required.
	Calculate func() (T, error)
	// Accept handles Set. Without it the data source is read-only.
	Accept func(v T) error
	// Connect and Disconnect are called when the first observer arrives and
	// when the last one leaves, so the source can subscribe to whatever
	// feeds it and call CheckForChanges.
	Connect    func()
	Disconnect func()
}

// DataSource adapts an external, non-reactive value. Changes are not
// discovered automatically: the owner calls CheckForChanges.
//
// Changes made by a DataSource are not undone when a surrounding
// transaction rolls back; the external value is the source of truth.
type DataSource[T any] struct {
	observable
	src Source[T]
	eq  func(a, b T) bool

	cache     State[T]
	connected bool
	autoCache bool
	held      bool
}

// NewDataSource creates a data source over src
func NewDataSource[T any](rt *Runtime, src Source[T], opts ...NodeOption) *DataSource[T] {
	cfg, eq := buildNodeConfig[T](rt, opts)
	return &DataSource[T]{
		observable: newObservable(rt, cfg.name),
		src:        src,
		eq:         eq,
		autoCache:  cfg.autoCache,
	}
}

func (ds *DataSource[T]) node() dependency              { return ds }
func (ds *DataSource[T]) equalsFunc() func(a, b T) bool { return ds.eq }

// Capability reports Settable when the source has an Accept function
func (ds *DataSource[T]) Capability() Capability {
	if ds.src.Accept != nil {
		return Settable
	}
	return ReadOnly
}

func (ds *DataSource[T]) Connected() bool { return ds.connected }
func (ds *DataSource[T]) Final() bool     { return ds.cache.final }

func (ds *DataSource[T]) State() State[T]             { return ds.getState() }
func (ds *DataSource[T]) Get() (T, error)             { return ds.getState().Get() }
func (ds *DataSource[T]) GetOr(fallback T) (T, error) { return ds.getState().GetOr(fallback) }
func (ds *DataSource[T]) Value() T                    { return ds.getState().Value() }
func (ds *DataSource[T]) Resolved() bool              { return ds.getState().Resolved() }
func (ds *DataSource[T]) Errored() bool               { return ds.getState().Errored() }
func (ds *DataSource[T]) Err() error                  { return ds.getState().Err() }

func (ds *DataSource[T]) enableAutoCache() { ds.autoCache = true }

// Set hands v to the Accept function inside a transaction
func (ds *DataSource[T]) Set(v T) error {
	if ds.src.Accept == nil {
		return ErrNotSettable
	}
	return ds.rt.Atomically(func() error {
		return ds.src.Accept(v)
	})
}

// CheckForChanges recalculates the external value. When it differs from
// the cached one, the version is bumped and observers are notified. It is
// a no-op while disconnected, as reads are not cached then.
func (ds *DataSource[T]) CheckForChanges() error {
	if !ds.connected || ds.cache.final {
		return nil
	}
	st := ds.calculate()
	if statesEqual(ds.cache, st, ds.eq) {
		return nil
	}
	ds.cache = st
	ds.version++
	return ds.rt.processChangedState(ds, st.final)
}

func (ds *DataSource[T]) getState() State[T] {
	rt := ds.rt
	if !ds.connected && !ds.cache.final {
		if rt.tracker.recording() {
			ds.connect()
		} else if ds.autoCache {
			ds.connect()
			ds.hold()
		}
	}

	if !ds.connected && !ds.cache.final {
		return independent(&rt.tracker, ds.calculate)
	}
	rt.tracker.record(ds)
	return ds.cache
}

func (ds *DataSource[T]) calculate() (st State[T]) {
	defer func() {
		if r := recover(); r != nil {
			st = ErrorOf[T](newPanicError(r))
		}
	}()
	return stateFromResult(ds.src.Calculate())
}

func (ds *DataSource[T]) connect() {
	if ds.connected {
		return
	}
	ds.connected = true
	ds.cache = independent(&ds.rt.tracker, ds.calculate)
	if ds.src.Connect != nil {
		ds.rt.Independent(ds.src.Connect)
	}
}

func (ds *DataSource[T]) disconnect() {
	if !ds.connected || ds.cache.final {
		return
	}
	ds.connected = false
	ds.cache = State[T]{}
	if ds.src.Disconnect != nil {
		ds.rt.Independent(ds.src.Disconnect)
	}
}

func (ds *DataSource[T]) hold() {
	if ds.held {
		return
	}
	ds.held = true
	ds.rt.deferCheck(ds.releaseHold)
}

func (ds *DataSource[T]) releaseHold() {
	ds.held = false
	if len(ds.observers) == 0 {
		ds.disconnect()
	}
}

func (ds *DataSource[T]) refresh() {}

func (ds *DataSource[T]) addObserver(o observer) {
	if ds.cache.final {
		return
	}
	ds.attach(o)
	ds.connect()
}

func (ds *DataSource[T]) removeObserver(o observer) {
	if ds.detach(o) && !ds.held {
		ds.disconnect()
	}
}

func (ds *DataSource[T]) isFinal() bool    { return ds.cache.final }
func (ds *DataSource[T]) kindName() string { return "data source" }

func (ds *DataSource[T]) stateText() string {
	if !ds.connected {
		return "(not cached)"
	}
	return ds.cache.String()
}

func (ds *DataSource[T]) dependencies() []dependency { return nil }

func (ds *DataSource[T]) finalizeNode() {
	ds.observers = nil
	if ds.src.Disconnect != nil {
		ds.rt.Independent(ds.src.Disconnect)
	}
}
