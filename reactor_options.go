package derivable

// Condition decides when a reactor starts, stops or pauses. It is either a
// literal or resolved into a boolean node over the reactor's parent.
type Condition interface {
	resolve(rt *Runtime, parent Observable) Derivable[bool]
	literal() (value bool, ok bool)
}

type literalCondition bool

func (c literalCondition) resolve(rt *Runtime, _ Observable) Derivable[bool] {
	return Constant(rt, bool(c))
}

func (c literalCondition) literal() (bool, bool) { return bool(c), true }

// Literal is a fixed condition
func Literal(b bool) Condition { return literalCondition(b) }

type watchCondition struct {
	d Derivable[bool]
}

func (c watchCondition) resolve(*Runtime, Observable) Derivable[bool] { return c.d }
func (c watchCondition) literal() (bool, bool)                       { return false, false }

// Watch uses the value of a boolean node as the condition
func Watch(d Derivable[bool]) Condition { return watchCondition{d: d} }

type predicateCondition func(parent Observable) (bool, error)

func (c predicateCondition) resolve(rt *Runtime, parent Observable) Derivable[bool] {
	return Derive(rt, func() (bool, error) { return c(parent) })
}

func (c predicateCondition) literal() (bool, bool) { return false, false }

// Predicate evaluates fn against the reactor's parent. Nodes read by fn
// are tracked like in any derivation.
func Predicate(fn func(parent Observable) (bool, error)) Condition {
	return predicateCondition(fn)
}

type selectCondition func(parent Observable) Derivable[bool]

func (c selectCondition) resolve(rt *Runtime, parent Observable) Derivable[bool] {
	return Derive(rt, func() (bool, error) { return c(parent).Get() })
}

func (c selectCondition) literal() (bool, bool) { return false, false }

// Select picks, possibly depending on other nodes, the boolean node used as
// the condition
func Select(fn func(parent Observable) Derivable[bool]) Condition {
	return selectCondition(fn)
}

type reactorConfig struct {
	name      string
	from      Condition
	until     Condition
	when      Condition
	once      bool
	skipFirst bool
	onError   func(err error, stop func())
}

// ReactorOption configures a reactor
type ReactorOption func(*reactorConfig)

// From delays the start of the reactor until c is true for the first time
func From(c Condition) ReactorOption {
	return func(cfg *reactorConfig) { cfg.from = c }
}

// Until stops the reactor for good the first time c is true
func Until(c Condition) ReactorOption {
	return func(cfg *reactorConfig) { cfg.until = c }
}

// When pauses the reactor while c is false. Each time it turns true again
// the reaction runs with the current value.
func When(c Condition) ReactorOption {
	return func(cfg *reactorConfig) { cfg.when = c }
}

// Once stops the reactor after the first reaction
func Once() ReactorOption {
	return func(cfg *reactorConfig) { cfg.once = true }
}

// SkipFirst ignores the first value the reactor sees
func SkipFirst() ReactorOption {
	return func(cfg *reactorConfig) { cfg.skipFirst = true }
}

// OnError handles errored parent states and reaction errors instead of
// stopping the reactor. stop stops it.
func OnError(fn func(err error, stop func())) ReactorOption {
	return func(cfg *reactorConfig) { cfg.onError = fn }
}

// ReactorName labels the reactor in logs and traces
func ReactorName(name string) ReactorOption {
	return func(cfg *reactorConfig) { cfg.name = name }
}
