package cotask

import (
	"errors"
	"iter"
)

// WhenCancelled returns a [Task] that starts t and, if t is cancelled,
// runs the coroutine body returned by fallback and completes with the
// [Completion] of that body instead.
// If t succeeds or faults, the Task completes the same way.
//
// fallback is only called if t is cancelled.
func WhenCancelled(t Task, fallback func() iter.Seq[Task]) Task {
	if fallback == nil {
		panic("cotask: WhenCancelled(t, nil)")
	}
	return &fallbackTask{inner: t, fallback: fallback}
}

type fallbackTask struct {
	Completer
	inner    Task
	fallback func() iter.Seq[Task]
}

func (d *fallbackTask) Start(ec *ExecutionContext, done func(Completion)) {
	if !d.start(done) {
		return
	}
	ec.start(d.inner, func(c Completion) {
		if !c.WasCancelled() {
			d.Complete(c)
			return
		}
		d.run(ec, d.fallback)
	})
}

// OverrideCancel returns a [Task] that starts t and succeeds if t is
// cancelled.
// If t succeeds or faults, the Task completes the same way.
//
// OverrideCancel marks a point in a coroutine body where cancellation is an
// expected outcome: the body keeps going after it.
func OverrideCancel(t Task) Task {
	return &overrideCancelTask{inner: t}
}

type overrideCancelTask struct {
	Completer
	inner Task
}

func (d *overrideCancelTask) Start(ec *ExecutionContext, done func(Completion)) {
	if !d.start(done) {
		return
	}
	ec.start(d.inner, func(c Completion) {
		if c.WasCancelled() {
			c = Succeeded()
		}
		d.Complete(c)
	})
}

// A RescueOption configures [Rescue] and [RescueAny].
type RescueOption func(*rescueTask)

// CancelAfterRescue makes a rescue report cancellation, instead of success,
// after the rescue body succeeds.
// The coroutine body containing the rescued Task then stops without
// a fault.
func CancelAfterRescue() RescueOption {
	return func(d *rescueTask) { d.cancelAfter = true }
}

// Rescue returns a [Task] that starts t and, if t faults with an error that
// matches E (see [errors.As]), runs the coroutine body returned by rescue
// and completes with the [Completion] of that body instead.
// Faults that do not match E, successes and cancellations pass through
// unchanged, and rescue is never called for them.
//
// If rescue panics, or the rescue body faults, the Task faults with that
// new error.
func Rescue[E error](t Task, rescue func(err E) iter.Seq[Task], opts ...RescueOption) Task {
	if rescue == nil {
		panic("cotask: Rescue(t, nil)")
	}
	return newRescueTask(t, func(err error) (func() iter.Seq[Task], bool) {
		var target E
		if !errors.As(err, &target) {
			return nil, false
		}
		return func() iter.Seq[Task] { return rescue(target) }, true
	}, opts)
}

// RescueAny is like [Rescue] but rescues any fault.
func RescueAny(t Task, rescue func(err error) iter.Seq[Task], opts ...RescueOption) Task {
	if rescue == nil {
		panic("cotask: RescueAny(t, nil)")
	}
	return newRescueTask(t, func(err error) (func() iter.Seq[Task], bool) {
		return func() iter.Seq[Task] { return rescue(err) }, true
	}, opts)
}

type rescueTask struct {
	Completer
	inner       Task
	match       func(err error) (func() iter.Seq[Task], bool)
	cancelAfter bool
}

func newRescueTask(t Task, match func(err error) (func() iter.Seq[Task], bool), opts []RescueOption) *rescueTask {
	d := &rescueTask{inner: t, match: match}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *rescueTask) Start(ec *ExecutionContext, done func(Completion)) {
	if !d.start(done) {
		return
	}
	ec.start(d.inner, func(c Completion) {
		err := c.Err()
		if err == nil {
			d.Complete(c)
			return
		}

		body, ok := d.match(err)
		if !ok {
			d.Complete(c)
			return
		}

		next, perr := ec.sequence(body)
		if perr != nil {
			d.Complete(Faulted(perr))
			return
		}

		ec.start(next, func(c Completion) {
			if c.OK() && d.cancelAfter {
				c = Cancelled()
			}
			d.Complete(c)
		})
	})
}

// run completes c with the outcome of the coroutine body returned by body.
func (c *Completer) run(ec *ExecutionContext, body func() iter.Seq[Task]) {
	next, err := ec.sequence(body)
	if err != nil {
		c.Complete(Faulted(err))
		return
	}
	ec.start(next, func(r Completion) { c.Complete(r) })
}
