package cotask

import (
	"context"
	"iter"
	"log/slog"
	"slices"
)

// An Engine runs coroutine bodies.
//
// The zero value is ready to use.
// The configuration methods (WrapBody, Prepare, Dispatch, Observe and
// Logger) must only be called before the first execution, never while an
// execution is running.
type Engine struct {
	wrapBody   func(body iter.Seq[Task]) Task
	prepareFn  func(t Task)
	dispatcher Dispatcher
	observers  []Observer
	logger     *slog.Logger
}

var defaultEngine Engine

var discardLogger = slog.New(slog.DiscardHandler)

// A Dispatcher runs functions, possibly later and on another goroutine.
//
// When an [Engine] has a Dispatcher, every coroutine body that resumes after
// an asynchronous completion, and every completion callback, is run by
// the Dispatcher.
// [Executor] is a Dispatcher that runs functions one at a time.
type Dispatcher interface {
	Dispatch(f func())
}

// A DispatcherFunc is a func(func()) that implements [Dispatcher].
type DispatcherFunc func(f func())

// Dispatch implements [Dispatcher].
func (d DispatcherFunc) Dispatch(f func()) { d(f) }

// An Observer is notified of every top-level execution of an [Engine].
//
// Begin is called before the execution starts.
// The function it returns, if not nil, is called with the [Completion] of
// the execution, on whichever goroutine the execution completes.
// A panic in that function is logged and does not affect the execution.
type Observer interface {
	Begin(ec *ExecutionContext) func(c Completion)
}

// An ObserverFunc is a function that implements [Observer].
type ObserverFunc func(ec *ExecutionContext) func(c Completion)

// Begin implements [Observer].
func (f ObserverFunc) Begin(ec *ExecutionContext) func(c Completion) { return f(ec) }

// WrapBody sets the function that turns a coroutine body into a [Task].
// The default is [Sequence].
//
// f is also used for fallback and rescue bodies of [WhenCancelled], [Rescue]
// and [RescueAny].
func (e *Engine) WrapBody(f func(body iter.Seq[Task]) Task) {
	e.wrapBody = f
}

// Prepare sets a function to be called on every [Task] before it starts.
// This is where dependencies get injected into Tasks built by coroutine
// bodies.
// A panic in f faults the Task being prepared.
func (e *Engine) Prepare(f func(t Task)) {
	e.prepareFn = f
}

// Dispatch sets the [Dispatcher] of e.
func (e *Engine) Dispatch(d Dispatcher) {
	e.dispatcher = d
}

// Observe adds an [Observer] to e.
func (e *Engine) Observe(o Observer) {
	if o == nil {
		panic("cotask: Observe(nil)")
	}
	e.observers = append(e.observers, o)
}

// Logger sets the logger of e.
// By default, e logs nothing.
func (e *Engine) Logger(l *slog.Logger) {
	e.logger = l
}

func (e *Engine) wrap(body iter.Seq[Task]) Task {
	if e.wrapBody != nil {
		return e.wrapBody(body)
	}
	return Sequence(body)
}

func (e *Engine) prepare(t Task) {
	if e.prepareFn != nil {
		e.prepareFn(t)
	}
}

func (e *Engine) dispatch(f func()) {
	if e.dispatcher != nil {
		e.dispatcher.Dispatch(f)
		return
	}
	f()
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return discardLogger
}

// Begin runs body and calls callback with its [Completion].
//
// If ec is nil, a new [ExecutionContext] is created.
// Panics raised while wiring up the execution are reported to callback as
// faults, never to the caller.
//
// callback is called exactly once.
// A panic in callback propagates to the goroutine that completes the
// execution: the caller of Begin if body completes before Begin returns.
func (e *Engine) Begin(body iter.Seq[Task], callback func(c Completion), ec *ExecutionContext) {
	if callback == nil {
		panic("cotask: Begin with nil callback")
	}

	var t Task

	if err := try(func() { t = e.wrap(body) }); err != nil {
		e.dispatch(func() { callback(Faulted(err)) })
		return
	}

	e.Start(t, callback, ec)
}

// Start is like [Engine.Begin] but runs t instead of a coroutine body.
func (e *Engine) Start(t Task, callback func(c Completion), ec *ExecutionContext) {
	if callback == nil {
		panic("cotask: Start with nil callback")
	}

	if ec == nil {
		ec = NewExecutionContext(context.Background())
	}

	ec = ec.bind(e)

	var finishers []func(Completion)

	err := try(func() {
		for _, o := range e.observers {
			if f := o.Begin(ec); f != nil {
				finishers = append(finishers, f)
			}
		}
	})
	if err != nil {
		e.dispatch(func() { callback(Faulted(err)) })
		return
	}

	log := e.log().With("execution", ec.logID())
	log.Debug("cotask: execution started")

	ec.start(t, func(c Completion) {
		for _, f := range slices.Backward(finishers) {
			if err := try(func() { f(c) }); err != nil {
				log.Error("cotask: observer panicked", "error", err)
			}
		}

		if err := c.Err(); err != nil {
			log.Warn("cotask: execution faulted", "error", err)
		} else {
			log.Debug("cotask: execution " + c.Outcome())
		}

		e.dispatch(func() { callback(c) })
	})
}

// Run runs body and returns a [Future] that settles with the [Completion]
// of body.
func (e *Engine) Run(body iter.Seq[Task], ec *ExecutionContext) *Future[struct{}] {
	p := NewPromise[struct{}]()
	e.Begin(body, func(c Completion) { p.Settle(struct{}{}, c) }, ec)
	return p.Future()
}

// RunTask is like [Engine.Run] but runs t instead of a coroutine body.
func (e *Engine) RunTask(t Task, ec *ExecutionContext) *Future[struct{}] {
	p := NewPromise[struct{}]()
	e.Start(t, func(c Completion) { p.Settle(struct{}{}, c) }, ec)
	return p.Future()
}

// RunResult runs t with e and returns a [Future] that settles with the
// [Completion] of t and, if t succeeds, the result of t.
// If e is nil, the default Engine is used.
func RunResult[T any](e *Engine, t ResultTask[T], ec *ExecutionContext) *Future[T] {
	if e == nil {
		e = &defaultEngine
	}

	p := NewPromise[T]()

	e.Start(t, func(c Completion) {
		var v T
		if c.OK() {
			v = t.Result()
		}
		p.Settle(v, c)
	}, ec)

	return p.Future()
}

// Begin runs body with the default [Engine].
// See [Engine.Begin].
func Begin(body iter.Seq[Task], callback func(c Completion), ec *ExecutionContext) {
	defaultEngine.Begin(body, callback, ec)
}

// Run runs body with the default [Engine].
// See [Engine.Run].
func Run(body iter.Seq[Task], ec *ExecutionContext) *Future[struct{}] {
	return defaultEngine.Run(body, ec)
}
