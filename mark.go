package derivable

import "errors"

// reactable is an observer that may fire once the mark phase is over
type reactable interface {
	observer
	reactIfNeeded() error
}

// sink is an ordered set of reactors reached by a mark phase
type sink struct {
	order []reactable
	seen  map[reactable]struct{}
}

func (s *sink) add(r reactable) {
	if s.seen == nil {
		s.seen = make(map[reactable]struct{})
	}
	if _, ok := s.seen[r]; ok {
		return
	}
	s.seen[r] = struct{}{}
	s.order = append(s.order, r)
}

func (s *sink) merge(other *sink) {
	for _, r := range other.order {
		s.add(r)
	}
}

func (s *sink) len() int { return len(s.order) }

// finalizer is implemented by nodes that drop their observers once final
type finalizer interface {
	finalizeNode()
}

// processChangedState runs after a leaf node changed state. Inside a
// transaction the reached reactors and finalization are deferred to the
// outermost commit; otherwise reactors fire before it returns.
func (rt *Runtime) processChangedState(n dependency, final bool) error {
	b := n.base()
	if txn := rt.txn; txn != nil {
		markObservers(b, &txn.reactors)
		if final {
			txn.recordFinal(n)
		}
		return nil
	}

	var s sink
	markObservers(b, &s)
	if final {
		finalizeNode(n)
	}
	return rt.fire(&s)
}

func markObservers(b *observable, s *sink) {
	for _, o := range b.observers {
		o.mark(s)
	}
}

// invalidateObservers forces every cache reachable from b to recompute,
// whether or not it was considered up to date
func invalidateObservers(b *observable, s *sink, seen map[observer]struct{}) {
	for _, o := range b.observers {
		o.invalidate(s, seen)
	}
}

func finalizeNode(n dependency) {
	if f, ok := n.(finalizer); ok {
		f.finalizeNode()
	}
}

// fire asks every collected reactor to react, in collection order. Every
// reactor gets its turn even when an earlier one fails.
func (rt *Runtime) fire(s *sink) error {
	if s.len() == 0 {
		return nil
	}

	var errs []error
	for _, r := range s.order {
		if err := r.reactIfNeeded(); err != nil {
			errs = append(errs, err)
		}
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}
