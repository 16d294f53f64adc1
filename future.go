package cotask

import (
	"context"
	"errors"
	"sync"
)

// A Future is an asynchronous result that settles exactly once, with a value,
// a fault or a cancellation.
//
// Futures are created by [NewPromise], [Resolved], [Rejected],
// [CancelledFuture], or by running a coroutine with an [Engine].
// The zero value is not usable.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	value     T
	c         Completion
	listeners []func(v T, c Completion)
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) settle(v T, c Completion) bool {
	f.mu.Lock()

	if f.settled {
		f.mu.Unlock()
		return false
	}

	f.settled = true
	f.c = c
	if c.OK() {
		f.value = v
	}

	listeners := f.listeners
	f.listeners = nil
	close(f.done)

	f.mu.Unlock()

	for _, l := range listeners {
		l(f.value, c)
	}

	return true
}

// Done returns a channel that is closed when f settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Completion reports how f settled.
// The second return value is false if f has not yet settled.
func (f *Future[T]) Completion() (Completion, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.c, f.settled
}

// OnSettled registers fn to be called with the value and the [Completion]
// of f when f settles.
// If f has already settled, fn is called immediately.
// Otherwise fn is called on the goroutine that settles f.
func (f *Future[T]) OnSettled(fn func(v T, c Completion)) {
	f.mu.Lock()

	if !f.settled {
		f.listeners = append(f.listeners, fn)
		f.mu.Unlock()
		return
	}

	v, c := f.value, f.c
	f.mu.Unlock()

	fn(v, c)
}

// Wait blocks until f settles or ctx is done.
//
// Wait returns the value of f if f succeeded, the cause if f faulted, or
// [ErrCancelled] if f was cancelled.
// If ctx is done first, Wait returns ctx.Err().
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	f.mu.Lock()
	v, c := f.value, f.c
	f.mu.Unlock()

	switch {
	case c.Err() != nil:
		var zero T
		return zero, c.Err()
	case c.WasCancelled():
		var zero T
		return zero, ErrCancelled
	default:
		return v, nil
	}
}

// A Promise is the write side of a [Future].
type Promise[T any] struct {
	f *Future[T]
}

// NewPromise returns a new [Promise] whose [Future] has not yet settled.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{f: newFuture[T]()}
}

// Future returns the [Future] settled by p.
func (p *Promise[T]) Future() *Future[T] {
	return p.f
}

// Resolve settles the future of p with v.
// It reports false if the future has already settled.
func (p *Promise[T]) Resolve(v T) bool {
	return p.f.settle(v, Succeeded())
}

// Reject settles the future of p with a fault.
// It reports false if the future has already settled.
func (p *Promise[T]) Reject(err error) bool {
	var zero T
	return p.f.settle(zero, Faulted(err))
}

// Cancel settles the future of p with a cancellation.
// It reports false if the future has already settled.
func (p *Promise[T]) Cancel() bool {
	var zero T
	return p.f.settle(zero, Cancelled())
}

// Settle settles the future of p with c, using v as the value if c is
// a success.
// It reports false if the future has already settled.
func (p *Promise[T]) Settle(v T, c Completion) bool {
	return p.f.settle(v, c)
}

// Resolved returns a [Future] that has succeeded with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, Succeeded())
	return f
}

// Rejected returns a [Future] that has faulted with err.
func Rejected[T any](err error) *Future[T] {
	var zero T
	f := newFuture[T]()
	f.settle(zero, Faulted(err))
	return f
}

// CancelledFuture returns a [Future] that has been cancelled.
func CancelledFuture[T any]() *Future[T] {
	var zero T
	f := newFuture[T]()
	f.settle(zero, Cancelled())
	return f
}

// Await returns a [ResultTask] that completes when f settles, with the same
// outcome as f.
//
// The Task completes on whichever goroutine settles f.
func Await[T any](f *Future[T]) ResultTask[T] {
	if f == nil {
		panic("cotask: Await(nil)")
	}
	return &futureTask[T]{f: f}
}

type futureTask[T any] struct {
	Completer
	f      *Future[T]
	result T
}

func (t *futureTask[T]) Start(_ *ExecutionContext, done func(Completion)) {
	if !t.start(done) {
		return
	}
	t.f.OnSettled(func(v T, c Completion) {
		if c.OK() {
			t.result = v
		}
		t.Complete(c)
	})
}

func (t *futureTask[T]) Result() T {
	return t.result
}

// Go returns a [ResultTask] that calls f in a new goroutine with the
// context.Context of the execution, see [ExecutionContext.Context].
//
// The Task faults with the error f returns, or is cancelled if that error
// is [ErrCancelled] or context.Canceled.
// An error returned after ctx is done that matches ctx.Err(), such as
// context.DeadlineExceeded, is also a cancellation, the same as the end of
// a [Retry] wait.
// If f panics, the Task faults with a [*PanicError].
func Go[T any](f func(ctx context.Context) (T, error)) ResultTask[T] {
	if f == nil {
		panic("cotask: Go(nil)")
	}
	return &goTask[T]{f: f}
}

type goTask[T any] struct {
	Completer
	f      func(ctx context.Context) (T, error)
	result T
}

func (t *goTask[T]) Start(ec *ExecutionContext, done func(Completion)) {
	if !t.start(done) {
		return
	}

	ctx := ec.Context()

	go func() {
		var v T
		var err error

		if perr := try(func() { v, err = t.f(ctx) }); perr != nil {
			err = perr
		}

		c := completionOf(err)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			c = Cancelled()
		}
		if c.OK() {
			t.result = v
		}

		t.Complete(c)
	}()
}

func (t *goTask[T]) Result() T {
	return t.result
}
