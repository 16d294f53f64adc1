package cotask

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrStarted is reported to the caller of a second Start on a Task that
	// can only be started once.
	ErrStarted = errors.New("cotask: task already started")

	// ErrNilTask is reported when a coroutine body yields a nil Task, or when
	// a nil Task is started by an [Engine].
	ErrNilTask = errors.New("cotask: nil task")
)

// A Task is a unit of work that is started once and completes once.
//
// Start begins the work.
// The done function is the only subscriber of the Task's completion and must
// be called exactly once, either before Start returns or later from any
// goroutine.
// Panics raised by Start are recovered by whoever starts the Task within
// this package and reported as faults.
//
// Tasks provided by this package report [ErrStarted] to the second caller of
// Start, leaving the first execution untouched.
type Task interface {
	Start(ec *ExecutionContext, done func(Completion))
}

// A ResultTask is a [Task] that produces a value.
// Result is only meaningful after the Task succeeded.
type ResultTask[T any] interface {
	Task
	Result() T
}

// A Completer is a single-shot completion cell, designed to be embedded in
// [Task] implementations.
//
// Bind attaches the subscriber when the Task starts.
// Complete delivers a [Completion] to it, at most once, no matter how many
// times or from how many goroutines Complete is called.
// After delivery the subscriber is dropped.
type Completer struct {
	started atomic.Bool
	fired   atomic.Bool
	done    atomic.Pointer[func(Completion)]
}

// Bind attaches done as the subscriber of c.
// Bind returns [ErrStarted] if it has already been called.
func (c *Completer) Bind(done func(Completion)) error {
	if done == nil {
		panic("cotask: Bind(nil)")
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	c.done.Store(&done)
	return nil
}

// Complete delivers r to the subscriber attached by Bind.
// It reports whether r was delivered; a repeated completion is dropped.
func (c *Completer) Complete(r Completion) bool {
	p := c.done.Swap(nil)
	if p == nil {
		return false
	}
	c.fired.Store(true)
	(*p)(r)
	return true
}

// Started reports whether Bind has been called.
func (c *Completer) Started() bool {
	return c.started.Load()
}

// Completed reports whether a [Completion] has been delivered.
func (c *Completer) Completed() bool {
	return c.fired.Load()
}

// start binds done to c, reporting ErrStarted to done if c is already bound.
func (c *Completer) start(done func(Completion)) bool {
	if err := c.Bind(done); err != nil {
		done(Faulted(err))
		return false
	}
	return true
}

// startTask starts t with a done function that is called at most once,
// converting a panic raised by Start into a fault.
//
// A panic that happens after done has been called cannot be reported to
// done anymore, and is raised again to the caller of startTask.
func startTask(t Task, ec *ExecutionContext, done func(Completion)) {
	if t == nil {
		done(Faulted(ErrNilTask))
		return
	}

	var fired atomic.Bool

	once := func(c Completion) {
		if fired.CompareAndSwap(false, true) {
			done(c)
		}
	}

	if err := try(func() { t.Start(ec, once) }); err != nil {
		if fired.Load() {
			panic(err)
		}
		once(Faulted(err))
	}
}
