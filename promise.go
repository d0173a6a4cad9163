package derivable

import "context"

// Promise receives the first qualifying value of a node, or the error that
// prevented it
type Promise[T any] struct {
	done    chan struct{}
	value   T
	err     error
	reactor *Reactor
}

// ToPromise settles with the next value of d that passes the reactor
// options (From, Until, When, SkipFirst). An errored d rejects the promise.
// If the reactor stops before any value arrives the promise never settles.
func ToPromise[T any](d Derivable[T], opts ...ReactorOption) *Promise[T] {
	p := &Promise[T]{done: make(chan struct{})}

	opts = append(opts[:len(opts):len(opts)],
		Once(),
		OnError(func(err error, stop func()) {
			stop()
			var zero T
			p.settle(zero, err)
		}),
	)
	r, err := React(d, func(v T, _ func()) error {
		p.settle(v, nil)
		return nil
	}, opts...)
	p.reactor = r
	if err != nil {
		var zero T
		p.settle(zero, err)
	}
	return p
}

func (p *Promise[T]) settle(v T, err error) {
	select {
	case <-p.done:
		return
	default:
	}
	p.value, p.err = v, err
	close(p.done)
}

// Done is closed once the promise settled
func (p *Promise[T]) Done() <-chan struct{} { return p.done }

// Result returns the outcome and whether the promise settled
func (p *Promise[T]) Result() (T, error, bool) {
	select {
	case <-p.done:
		return p.value, p.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Wait blocks until the promise settles or ctx is done. Whatever settles
// the promise must run on another goroutine, serialized with every other
// use of the runtime.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel stops waiting for a value
func (p *Promise[T]) Cancel() {
	if p.reactor != nil {
		p.reactor.Stop()
	}
}
