package extensions

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	derivable "github.com/pumped-fn/derivable-go"
)

// MetricsExtension exports Prometheus metrics about transactions and
// reactions
type MetricsExtension struct {
	derivable.BaseExtension

	transactions     *prometheus.CounterVec
	rollbacks        prometheus.Counter
	reactions        *prometheus.CounterVec
	reactionErrors   *prometheus.CounterVec
	reactionDuration prometheus.Histogram
	activeReactors   prometheus.GaugeFunc

	reg prometheus.Registerer
	rt  *derivable.Runtime
}

// NewMetricsExtension registers its collectors on reg, or on the default
// registerer when reg is nil
func NewMetricsExtension(namespace string, reg prometheus.Registerer) *MetricsExtension {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	e := &MetricsExtension{
		BaseExtension: derivable.NewBaseExtension("metrics"),
		reg:           reg,
	}
	e.transactions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_total",
		Help:      "Transactions by outcome (ok, error)",
	}, []string{"outcome"})
	e.rollbacks = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rollbacks_total",
		Help:      "Transactions rolled back because their function failed",
	})
	e.reactions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reactions_total",
		Help:      "Reactions run, by outcome (ok, error)",
	}, []string{"outcome"})
	e.reactionErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reaction_errors_total",
		Help:      "Reactor errors, by whether an OnError handler consumed them",
	}, []string{"handled"})
	e.reactionDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reaction_duration_seconds",
		Help:      "Time spent in reactions, including nested propagation",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	})
	e.activeReactors = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_reactors",
		Help:      "Reactors currently started",
	}, func() float64 {
		if e.rt == nil {
			return 0
		}
		return float64(e.rt.ActiveReactors())
	})
	return e
}

func (e *MetricsExtension) Init(rt *derivable.Runtime) error {
	e.rt = rt
	return nil
}

func (e *MetricsExtension) Wrap(ctx context.Context, next func() error, op *derivable.Operation) error {
	switch op.Kind {
	case derivable.OpTransaction:
		err := next()
		if err != nil {
			e.transactions.WithLabelValues("error").Inc()
		} else {
			e.transactions.WithLabelValues("ok").Inc()
		}
		return err

	case derivable.OpReaction:
		start := time.Now()
		err := next()
		e.reactionDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			e.reactions.WithLabelValues("error").Inc()
		} else {
			e.reactions.WithLabelValues("ok").Inc()
		}
		return err
	}
	return next()
}

func (e *MetricsExtension) OnError(err error, op *derivable.Operation, rt *derivable.Runtime) {
	if op.Kind == derivable.OpTransaction {
		e.rollbacks.Inc()
		return
	}
	handled := "false"
	if op.Handled {
		handled = "true"
	}
	e.reactionErrors.WithLabelValues(handled).Inc()
}

// Dispose unregisters the collectors
func (e *MetricsExtension) Dispose(rt *derivable.Runtime) error {
	var errs []error
	for _, c := range []prometheus.Collector{e.transactions, e.rollbacks, e.reactions, e.reactionErrors, e.reactionDuration, e.activeReactors} {
		if !e.reg.Unregister(c) {
			errs = append(errs, errors.New("collector was not registered"))
		}
	}
	return errors.Join(errs...)
}
