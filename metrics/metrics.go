// Package metrics reports cotask executions to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/b97tsk/cotask"
)

// Observer is a [cotask.Observer] that exposes Prometheus collectors about
// the top-level executions of an Engine.
type Observer struct {
	started   prometheus.Counter
	completed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	active    prometheus.Gauge
}

// New creates an [Observer] and registers its collectors with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
// Collectors that are already registered with the same descriptors are
// reused, so that several Engines can share them.
func New(reg prometheus.Registerer, namespace string) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cotask",
			Name:      "executions_started_total",
			Help:      "Number of coroutine executions started.",
		}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cotask",
			Name:      "executions_completed_total",
			Help:      "Number of coroutine executions completed, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cotask",
			Name:      "execution_duration_seconds",
			Help:      "Time from start to completion of coroutine executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cotask",
			Name:      "executions_active",
			Help:      "Number of coroutine executions not yet completed.",
		}),
	}

	var err error
	o.started, err = register(reg, o.started)
	if err != nil {
		return nil, err
	}
	o.completed, err = register(reg, o.completed)
	if err != nil {
		return nil, err
	}
	o.duration, err = register(reg, o.duration)
	if err != nil {
		return nil, err
	}
	o.active, err = register(reg, o.active)
	if err != nil {
		return nil, err
	}

	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Begin implements [cotask.Observer].
func (o *Observer) Begin(*cotask.ExecutionContext) func(c cotask.Completion) {
	start := time.Now()

	o.started.Inc()
	o.active.Inc()

	return func(c cotask.Completion) {
		outcome := c.Outcome()
		o.active.Dec()
		o.completed.WithLabelValues(outcome).Inc()
		o.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}
