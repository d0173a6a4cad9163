// Package derivable provides an in-process reactive dataflow runtime: mutable
// atoms, memoized derivations that discover their dependencies while they
// run, transactions with rollback, and reactors that run side effects when
// a value changes.
//
// # Overview
//
// Everything lives on a Runtime:
//
//  1. Atoms: settable leaf nodes
//  2. Derivations and mappings: computed nodes, cached while observed
//  3. Data sources: adapters for values owned by something else
//  4. Reactors: side effects observing one node
//
// # Basic Usage
//
//	rt := derivable.NewRuntime()
//
//	a := derivable.NewAtom(rt, 10)
//	b := derivable.NewAtom(rt, 20)
//
//	sum := derivable.Derive2(a, b, func(x, y int) (int, error) {
//	    return x + y, nil
//	})
//
//	r, err := derivable.React(sum, func(v int, stop func()) error {
//	    fmt.Println("sum is", v)
//	    return nil
//	})
//
// Derive accepts any function; every node it reads becomes a dependency,
// and the set is recomputed on every run:
//
//	label := derivable.Derive(rt, func() (string, error) {
//	    if !on.Value() {
//	        return "off", nil
//	    }
//	    n, err := count.Get() // a dependency only while on is true
//	    return strconv.Itoa(n), err
//	})
//
// # States
//
// A node is unresolved, holds a value or holds an error (see State). Get
// returns ErrUnresolved for unresolved nodes; returning ErrUnresolved from a
// deriver makes the derivation unresolved instead of errored. Reactors only
// react to values; errors go to the OnError handler or stop the reactor.
//
// # Connection
//
// A derived node caches its result only while something observes it (a
// reactor, directly or transitively). Unobserved reads recompute. AutoCache
// keeps an unobserved node cached until the end of the current turn:
//
//	expensive := derivable.AutoCache(derivable.Derive(rt, compute))
//	rt.Turn(func() error {
//	    expensive.Value() // computes
//	    expensive.Value() // cached
//	    return nil
//	})
//
// # Transactions
//
// Changes made inside Transact are applied at once: reactors fire at the
// outermost commit, each at most once, and only see consistent values.
// Returning an error (or panicking) rolls every touched atom back:
//
//	err := rt.Transact(func() error {
//	    if err := from.Set(from.Value() - 10); err != nil {
//	        return err
//	    }
//	    return to.Set(to.Value() + 10)
//	})
//
// # Reactors
//
// React accepts options controlling the lifecycle:
//
//	derivable.React(temperature, alarm,
//	    derivable.From(derivable.Watch(armed)),    // start once armed
//	    derivable.When(derivable.Watch(awake)),    // pause while asleep
//	    derivable.Until(derivable.Watch(shutdown)), // stop for good
//	    derivable.SkipFirst(),
//	    derivable.OnError(func(err error, stop func()) { log.Print(err) }),
//	)
//
// A reactor that keeps re-triggering itself synchronously is stopped with
// ErrCyclicalReactions once it reaches the runtime's maximum depth.
//
// # Extensions
//
// Extensions wrap transactions and reactions and observe reactor errors.
// See the extensions package for logging, metrics, tracing and dependency
// graph dumps.
//
// # Concurrency
//
// A Runtime and its nodes are not safe for concurrent use. Use one runtime
// per goroutine, or serialize access.
package derivable
