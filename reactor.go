package derivable

import "errors"

// lifecycle is one of the observers a Reactor is made of
type lifecycle interface {
	start() error
	stop()
	isActive() bool
}

// subReactor observes a single parent and runs react with every new
// qualifying value
type subReactor[T any] struct {
	owner   *Reactor
	parent  Derivable[T]
	react   func(v T) error
	onFinal func()
	// gate reacts first; a stop or pause it decides wins over the pending value
	gate    reactable

	active  bool
	last    State[T]
	hasLast bool
	depth   int
}

func (s *subReactor[T]) isActive() bool { return s.active }

// start begins observing and reacts to the current value. A restarted
// sub-reactor forgets what it saw before. Inside a transaction the first
// reaction waits for the outermost commit or rollback.
func (s *subReactor[T]) start() error {
	if s.active || s.owner.stopped {
		return nil
	}
	s.active = true
	s.hasLast = false
	s.parent.node().addObserver(s)
	if txn := s.owner.rt.txn; txn != nil {
		txn.reactors.add(s)
		return nil
	}
	return s.reactIfNeeded()
}

func (s *subReactor[T]) stop() {
	if !s.active {
		return
	}
	s.active = false
	s.parent.node().removeObserver(s)
}

func (s *subReactor[T]) mark(sk *sink) {
	if s.active {
		sk.add(s)
	}
}

func (s *subReactor[T]) invalidate(sk *sink, _ map[observer]struct{}) {
	if s.active {
		sk.add(s)
	}
}

func (s *subReactor[T]) reactIfNeeded() error {
	if !s.active {
		return nil
	}
	if s.gate != nil {
		if err := s.gate.reactIfNeeded(); err != nil {
			return err
		}
		if !s.active {
			return nil
		}
	}
	rt := s.owner.rt

	s.depth++
	defer func() { s.depth-- }()
	if s.depth > rt.maxDepth {
		return s.owner.fail(ErrCyclicalReactions)
	}

	st := independent(&rt.tracker, s.parent.State)
	if s.hasLast && statesEqual(s.last, st, s.parent.equalsFunc()) {
		return nil
	}
	s.last, s.hasLast = st, true

	switch st.kind {
	case KindError:
		if err := s.owner.fail(st.err); err != nil {
			return err
		}
	case KindValue:
		if err := s.react(st.value); err != nil {
			return s.owner.fail(err)
		}
	}

	if st.final && s.active {
		s.onFinal()
	}
	return nil
}

// Reactor runs a side effect every time its parent takes a new value,
// subject to its from, until and when conditions.
type Reactor struct {
	rt     *Runtime
	id     uint64
	name   string
	parent Observable

	starter    lifecycle
	controller lifecycle
	main       lifecycle

	once      bool
	skipFirst bool
	skipped   bool
	onError   func(err error, stop func())

	stopped bool
}

type controlState struct {
	until bool
	when  bool
}

// React starts a reactor on d. reaction receives every new value of d and
// a function stopping the reactor. The error returned is the unhandled
// error of the initial reaction, if any; the reactor is stopped then.
// Called inside a transaction, the initial reaction runs when the
// transaction ends and its error is returned from there.
func React[T any](d Derivable[T], reaction func(v T, stop func()) error, opts ...ReactorOption) (*Reactor, error) {
	cfg := reactorConfig{
		from:  Literal(true),
		until: Literal(false),
		when:  Literal(true),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := d.Runtime()
	r := &Reactor{
		rt:        rt,
		id:        rt.nextID(),
		name:      cfg.name,
		parent:    d,
		once:      cfg.once,
		skipFirst: cfg.skipFirst,
		onError:   cfg.onError,
	}

	main := &subReactor[T]{
		owner:   r,
		parent:  d,
		react:   func(v T) error { return runReaction(r, v, reaction) },
		onFinal: r.Stop,
	}
	r.main = main

	untilLit, untilFixed := cfg.until.literal()
	whenLit, whenFixed := cfg.when.literal()
	if untilFixed && whenFixed {
		switch {
		case untilLit, !whenLit:
			// Never reacts.
			r.stopped = true
			return r, nil
		}
	} else {
		until := cfg.until.resolve(rt, d)
		when := cfg.when.resolve(rt, d)
		ctrl := Derive(rt, func() (controlState, error) {
			u, err := until.Get()
			if err != nil {
				return controlState{}, err
			}
			if u {
				return controlState{until: true}, nil
			}
			w, err := when.Get()
			if err != nil {
				return controlState{}, err
			}
			return controlState{when: w}, nil
		})
		sub := &subReactor[controlState]{owner: r, parent: ctrl}
		sub.react = func(c controlState) error {
			switch {
			case c.until:
				r.Stop()
				return nil
			case c.when:
				return r.main.start()
			default:
				r.main.stop()
				return nil
			}
		}
		sub.onFinal = func() {
			if !r.main.isActive() {
				r.Stop()
				return
			}
			sub.stop()
		}
		r.controller = sub
		main.gate = sub
	}

	if fromLit, fromFixed := cfg.from.literal(); !fromFixed || !fromLit {
		from := cfg.from.resolve(rt, d)
		sub := &subReactor[bool]{owner: r, parent: from}
		sub.react = func(ok bool) error {
			if !ok {
				return nil
			}
			sub.stop()
			return r.startLifecycle()
		}
		sub.onFinal = r.Stop
		r.starter = sub
	}

	rt.reactors[r.id] = r
	rt.logger.Debug("reactor created", "reactor", r.id, "name", r.name, "parent", describe(d))

	if r.starter != nil {
		return r, r.starter.start()
	}
	return r, r.startLifecycle()
}

func (r *Reactor) startLifecycle() error {
	if r.controller != nil {
		return r.controller.start()
	}
	return r.main.start()
}

// ID returns the reactor's runtime-unique id
func (r *Reactor) ID() uint64 { return r.id }

// Name returns the name given with ReactorName
func (r *Reactor) Name() string { return r.name }

// Parent returns the observed node
func (r *Reactor) Parent() Observable { return r.parent }

// Active reports whether the reaction is currently observing its parent
func (r *Reactor) Active() bool { return !r.stopped && r.main.isActive() }

// Stopped reports whether the reactor was stopped for good
func (r *Reactor) Stopped() bool { return r.stopped }

// Stop stops the reactor for good. Nodes kept connected only by it
// disconnect before Stop returns.
func (r *Reactor) Stop() {
	if r.stopped {
		return
	}
	r.stopped = true
	if r.starter != nil {
		r.starter.stop()
	}
	if r.controller != nil {
		r.controller.stop()
	}
	r.main.stop()
	delete(r.rt.reactors, r.id)
	r.rt.logger.Debug("reactor stopped", "reactor", r.id, "name", r.name)
}

// fail routes err through the error handler, or stops the reactor and
// returns a *ReactionError. Reaction errors pass through unchanged when
// this reactor produced them or is already stopped.
func (r *Reactor) fail(cause error) error {
	var re *ReactionError
	if errors.As(cause, &re) && (re.owner == r || r.stopped) {
		return cause
	}

	rerr := CreateReactionError(r, cause)
	op := &Operation{
		Kind:      OpReaction,
		Node:      r.parent,
		ReactorID: r.id,
		Runtime:   r.rt,
		Handled:   r.onError != nil,
	}
	r.rt.notifyError(rerr, op)

	if r.onError != nil {
		r.onError(cause, r.Stop)
		return nil
	}

	r.Stop()
	r.rt.logger.Debug("reactor stopped by unhandled error", "reactor", r.id, "error", cause)
	return rerr
}

// runReaction applies skipFirst and once around the user reaction, which
// runs through the extension chain
func runReaction[T any](r *Reactor, v T, reaction func(v T, stop func()) error) error {
	if r.skipFirst && !r.skipped {
		r.skipped = true
		return nil
	}

	op := &Operation{
		Kind:      OpReaction,
		Node:      r.parent,
		ReactorID: r.id,
		Depth:     r.reactionDepth(),
		Runtime:   r.rt,
	}
	err := r.rt.wrap(op, func() error {
		return callReaction(reaction, v, r.Stop)
	})
	if err != nil {
		return err
	}
	if r.once {
		r.Stop()
	}
	return nil
}

func callReaction[T any](fn func(v T, stop func()) error, v T, stop func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = newPanicError(rec)
		}
	}()
	return fn(v, stop)
}

// reactionDepth is the current nesting of the main reaction
func (r *Reactor) reactionDepth() int {
	if d, ok := r.main.(interface{ currentDepth() int }); ok {
		return d.currentDepth()
	}
	return 0
}

func (s *subReactor[T]) currentDepth() int { return s.depth }
