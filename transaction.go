package derivable

import (
	"errors"
	"fmt"
)

type touchedAtom struct {
	node    *observable
	restore func()
}

// transaction records what a transact scope changed so it can be merged
// into its parent on commit or undone on rollback
type transaction struct {
	parent *transaction
	depth  int
	done   bool

	touched    []touchedAtom
	touchedIdx map[uint64]struct{}
	reactors   sink
	finalized  []dependency
	finalIdx   map[uint64]struct{}
}

// touch records the pre-transaction state of an atom. The first touch wins.
func (t *transaction) touch(n *observable, snapshot func() func()) {
	if t.touchedIdx == nil {
		t.touchedIdx = make(map[uint64]struct{})
	}
	if _, ok := t.touchedIdx[n.id]; ok {
		return
	}
	t.touchedIdx[n.id] = struct{}{}
	t.touched = append(t.touched, touchedAtom{node: n, restore: snapshot()})
}

func (t *transaction) recordFinal(n dependency) {
	if t.finalIdx == nil {
		t.finalIdx = make(map[uint64]struct{})
	}
	id := n.base().id
	if _, ok := t.finalIdx[id]; ok {
		return
	}
	t.finalIdx[id] = struct{}{}
	t.finalized = append(t.finalized, n)
}

// absorb merges a committed child into t
func (t *transaction) absorb(child *transaction) {
	for _, ta := range child.touched {
		if t.touchedIdx == nil {
			t.touchedIdx = make(map[uint64]struct{})
		}
		if _, ok := t.touchedIdx[ta.node.id]; ok {
			continue
		}
		t.touchedIdx[ta.node.id] = struct{}{}
		t.touched = append(t.touched, ta)
	}
	t.reactors.merge(&child.reactors)
	for _, n := range child.finalized {
		t.recordFinal(n)
	}
}

// InTransaction reports whether a transaction is active
func (rt *Runtime) InTransaction() bool {
	return rt.txn != nil
}

// Transact runs fn in a new (possibly nested) transaction. When fn returns
// an error or panics, every atom it changed is restored to its
// pre-transaction state and version; a panic is re-raised after the
// rollback. On success, the outermost commit fires each reached reactor
// once with the final values.
func (rt *Runtime) Transact(fn func() error) error {
	depth := 1
	if rt.txn != nil {
		depth = rt.txn.depth + 1
	}
	op := &Operation{
		Kind:    OpTransaction,
		Depth:   depth,
		Runtime: rt,
	}
	return rt.wrap(op, func() error {
		return rt.runTransaction(fn, op)
	})
}

// Atomically runs fn in the current transaction, or in a new one when none
// is active
func (rt *Runtime) Atomically(fn func() error) error {
	if rt.txn != nil {
		return fn()
	}
	return rt.Transact(fn)
}

// TransactValue is Transact for functions producing a value
func TransactValue[T any](rt *Runtime, fn func() (T, error)) (T, error) {
	var result T
	err := rt.Transact(func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// WrapAtomic returns fn made to always run atomically
func WrapAtomic(rt *Runtime, fn func() error) func() error {
	return func() error {
		return rt.Atomically(fn)
	}
}

// WrapTransaction returns fn made to always run in its own transaction
func WrapTransaction(rt *Runtime, fn func() error) func() error {
	return func() error {
		return rt.Transact(fn)
	}
}

// AtomicFunc is WrapAtomic for functions with an argument and a result
func AtomicFunc[A, R any](rt *Runtime, fn func(A) (R, error)) func(A) (R, error) {
	return func(arg A) (R, error) {
		var result R
		err := rt.Atomically(func() error {
			var err error
			result, err = fn(arg)
			return err
		})
		return result, err
	}
}

// TransactionFunc is WrapTransaction for functions with an argument and a result
func TransactionFunc[A, R any](rt *Runtime, fn func(A) (R, error)) func(A) (R, error) {
	return func(arg A) (R, error) {
		return TransactValue(rt, func() (R, error) {
			return fn(arg)
		})
	}
}

func (rt *Runtime) runTransaction(fn func() error, op *Operation) error {
	txn := &transaction{parent: rt.txn, depth: op.Depth}
	rt.txn = txn

	defer func() {
		if r := recover(); r != nil {
			if !txn.done {
				if err := rt.rollback(txn, op); err != nil {
					rt.logger.Error("reaction failed while rolling back a panicking transaction",
						"error", err,
					)
				}
			}
			panic(r)
		}
	}()

	if err := fn(); err != nil {
		rt.notifyError(err, op)
		if rbErr := rt.rollback(txn, op); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return rt.commit(txn)
}

func (rt *Runtime) commit(txn *transaction) error {
	txn.done = true
	rt.txn = txn.parent

	if p := txn.parent; p != nil {
		p.absorb(txn)
		return nil
	}

	for _, n := range txn.finalized {
		finalizeNode(n)
	}
	return rt.fire(&txn.reactors)
}

// rollback restores the atoms touched by txn. Caches reachable from them are
// invalidated and the reached reactors re-checked at the outermost level;
// they only fire when their value really differs from what they last saw.
func (rt *Runtime) rollback(txn *transaction, op *Operation) error {
	txn.done = true
	rt.txn = txn.parent

	for i := len(txn.touched) - 1; i >= 0; i-- {
		txn.touched[i].restore()
	}

	var s sink
	seen := make(map[observer]struct{})
	for _, ta := range txn.touched {
		invalidateObservers(ta.node, &s, seen)
	}
	s.merge(&txn.reactors)

	rt.logger.Debug("transaction rolled back",
		"depth", op.Depth,
		"atoms", len(txn.touched),
		"reactors", s.len(),
	)

	if p := txn.parent; p != nil {
		p.reactors.merge(&s)
		return nil
	}
	if err := rt.fire(&s); err != nil {
		return fmt.Errorf("after rollback: %w", err)
	}
	return nil
}
