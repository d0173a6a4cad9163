package derivable

// Scheduler runs the deferred auto-cache checks. Without one, the runtime
// queues them until EndTurn.
type Scheduler interface {
	Schedule(task func())
}

// SchedulerFunc adapts a function to Scheduler
type SchedulerFunc func(task func())

func (f SchedulerFunc) Schedule(task func()) { f(task) }

type autoCacher interface {
	enableAutoCache()
}

// AutoCache makes d keep its cached value for the rest of the current turn
// after an unobserved read, so repeated reads in the same turn compute
// once. It returns d for chaining. Atoms are returned unchanged.
func AutoCache[T any](d Derivable[T]) Derivable[T] {
	if ac, ok := d.node().(autoCacher); ok {
		ac.enableAutoCache()
	}
	return d
}

func (rt *Runtime) deferCheck(task func()) {
	if rt.scheduler != nil {
		rt.scheduler.Schedule(task)
		return
	}
	rt.deferred = append(rt.deferred, task)
}

// EndTurn ends the current turn: auto-cached nodes that nothing observes
// drop their cache and disconnect. Checks queued while running are run too.
func (rt *Runtime) EndTurn() {
	for len(rt.deferred) > 0 {
		tasks := rt.deferred
		rt.deferred = nil
		for _, task := range tasks {
			task()
		}
	}
}

// Turn runs fn as one turn and ends it afterwards
func (rt *Runtime) Turn(fn func() error) error {
	defer rt.EndTurn()
	return fn()
}

// PendingChecks returns the number of auto-cache checks waiting for EndTurn
func (rt *Runtime) PendingChecks() int {
	return len(rt.deferred)
}
