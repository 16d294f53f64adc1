package cotask

import (
	"context"
	"iter"
	"sync/atomic"
)

// Sequence returns a [Task] that runs the Tasks yielded by body one after
// another, in yield order, never two at a time.
//
// The first Task that faults or is cancelled stops the sequence; the Task
// then completes with that same [Completion], and no further Task is pulled
// from body.
// When body is exhausted, the Task succeeds.
// In any case, body is stopped before the Task completes, so that deferred
// calls in body get run.
//
// body is pulled lazily with [iter.Pull].
// A panic in body, or a nil Task yielded by body, faults the sequence.
//
// A Task that completes during its own Start call does not grow the stack:
// the sequence loops instead of recursing.
// A Task that completes later resumes the sequence through the [Dispatcher]
// of the [Engine], if any.
func Sequence(body iter.Seq[Task]) Task {
	if body == nil {
		panic("cotask: Sequence(nil)")
	}
	return &sequenceTask{body: body}
}

type sequenceTask struct {
	Completer
	body iter.Seq[Task]
	ec   *ExecutionContext
	next func() (Task, bool)
	stop func()
}

const (
	stepStarting int32 = iota
	stepDoneEarly
	stepPending
)

type step struct {
	state atomic.Int32
	c     Completion
}

func (s *sequenceTask) Start(ec *ExecutionContext, done func(Completion)) {
	if !s.start(done) {
		return
	}

	if ec == nil {
		ec = NewExecutionContext(context.Background())
	}

	s.ec = ec
	s.next, s.stop = iter.Pull(s.body)
	s.body = nil

	s.resume(Succeeded())
}

func (s *sequenceTask) resume(c Completion) {
	for {
		if !c.OK() {
			s.finish(c)
			return
		}

		var t Task
		var ok bool

		if err := try(func() { t, ok = s.next() }); err != nil {
			s.finish(Faulted(err))
			return
		}

		if !ok {
			s.finish(Succeeded())
			return
		}

		if t == nil {
			s.finish(Faulted(ErrNilTask))
			return
		}

		ec, st := s.ec, new(step)

		ec.start(t, func(c Completion) {
			st.c = c
			if st.state.CompareAndSwap(stepStarting, stepDoneEarly) {
				return
			}
			ec.Engine().dispatch(func() { s.resume(c) })
		})

		if st.state.CompareAndSwap(stepStarting, stepPending) {
			return
		}

		c = st.c
	}
}

func (s *sequenceTask) finish(c Completion) {
	if err := try(s.stop); err != nil && c.Err() == nil {
		c = Faulted(err)
	}

	s.ec, s.next, s.stop = nil, nil, nil

	s.Complete(c)
}
