package cotask

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// Retry returns a [Task] that starts a Task created by factory and, each time
// that Task faults, waits for the next interval of b and starts a new one.
//
// Retrying stops when:
//   - a Task succeeds or is cancelled, and the Task completes the same way;
//   - b returns backoff.Stop, and the Task faults with the last error;
//   - a Task faults with a *backoff.PermanentError, and the Task faults with
//     the wrapped error;
//   - the context.Context of the execution is done (cancelled or past its
//     deadline) before the next attempt, and the Task is cancelled.
//
// b is reset when the Task starts.
// b must not be shared with other Tasks running at the same time.
func Retry(factory func() Task, b backoff.BackOff) Task {
	if factory == nil || b == nil {
		panic("cotask: Retry with nil factory or backoff")
	}
	return &retryTask{factory: factory, b: b}
}

type retryTask struct {
	Completer
	factory func() Task
	b       backoff.BackOff
	attempt int
}

func (d *retryTask) Start(ec *ExecutionContext, done func(Completion)) {
	if !d.start(done) {
		return
	}
	d.b.Reset()
	d.try(ec)
}

func (d *retryTask) try(ec *ExecutionContext) {
	var t Task

	if err := try(func() { t = d.factory() }); err != nil {
		d.Complete(Faulted(err))
		return
	}

	d.attempt++

	ec.start(t, func(c Completion) {
		err := c.Err()
		if err == nil {
			d.Complete(c)
			return
		}

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			if permanent.Err != nil {
				err = permanent.Err
			}
			d.Complete(Faulted(err))
			return
		}

		next := d.b.NextBackOff()
		if next == backoff.Stop {
			d.Complete(c)
			return
		}

		ctx := ec.Context()
		if ctx.Err() != nil {
			d.Complete(Cancelled())
			return
		}

		e := ec.Engine()
		e.log().Debug("cotask: retrying",
			"execution", ec.logID(),
			"attempt", d.attempt,
			"delay", next,
			"error", err,
		)

		go func() {
			tm := time.NewTimer(next)
			defer tm.Stop()

			select {
			case <-tm.C:
				e.dispatch(func() { d.try(ec) })
			case <-ctx.Done():
				d.Complete(Cancelled())
			}
		}()
	})
}

// Breaker returns a [Task] that asks cb for permission before starting t.
//
// If cb refuses (gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests),
// t is never started and the Task faults with that error.
// Otherwise the outcome of t is reported to cb and the Task completes the
// same way as t.
// Cancellation is reported to cb as a success.
func Breaker(t Task, cb *gobreaker.TwoStepCircuitBreaker) Task {
	if cb == nil {
		panic("cotask: Breaker(t, nil)")
	}
	return &breakerTask{inner: t, cb: cb}
}

type breakerTask struct {
	Completer
	inner Task
	cb    *gobreaker.TwoStepCircuitBreaker
}

func (d *breakerTask) Start(ec *ExecutionContext, done func(Completion)) {
	if !d.start(done) {
		return
	}

	report, err := d.cb.Allow()
	if err != nil {
		d.Complete(Faulted(err))
		return
	}

	ec.start(d.inner, func(c Completion) {
		report(c.Err() == nil)
		d.Complete(c)
	})
}
