package cotask

import (
	"errors"
	"sync"
)

// An Executor is a [Dispatcher] that runs functions one at a time.
//
// Dispatched functions are added into an internal queue.
// The Run method then pops and runs each of them from the queue until
// the queue is emptied.
// It is done in a single-threaded manner.
// If one function blocks, no other functions can run.
// The best practice is not to block.
//
// The internal queue is a priority queue.
// Functions dispatched through [Executor.Weighted] with a higher weight run
// first; functions with the same weight run in arrival order (FIFO).
//
// Setting an Executor as the Dispatcher of an [Engine] makes every resumption
// of a coroutine body after an asynchronous completion happen inside the
// Executor, no matter which goroutine the completion arrived on.
//
// Manually calling the Run method is usually not desired.
// One would instead use the Autorun method to set up an autorun function to
// calling the Run method automatically whenever a function is dispatched.
// The Executor never calls the autorun function twice at the same time.
type Executor struct {
	mu      sync.Mutex
	pq      priorityqueue[*job]
	running bool
	autorun func()
	pool    sync.Pool
	errs    []error
}

// Weight is the type of weight for use when dispatching weighted functions.
type Weight int

type job struct {
	weight Weight
	f      func()
}

func (j *job) less(other *job) bool {
	return j.weight > other.weight
}

// Autorun sets up an autorun function to calling the Run method automatically
// whenever a function is dispatched.
//
// One must pass a function that calls the Run method.
//
// If f blocks, the Dispatch method may block too.
// The best practice is not to block.
func (e *Executor) Autorun(f func()) {
	e.autorun = f
}

// Run pops and runs every function in the queue until the queue is emptied.
//
// Panics raised by dispatched functions are recovered.
// After the queue is emptied, Run panics with an error that joins every
// recovered [*PanicError].
//
// Run must not be called twice at the same time.
// Dispatched functions must not call runtime.Goexit.
func (e *Executor) Run() {
	e.mu.Lock()
	e.running = true

	for !e.pq.Empty() {
		j := e.pq.Pop()
		f := j.f
		j.f = nil
		e.pool.Put(j)

		e.mu.Unlock()
		err := try(f)
		e.mu.Lock()

		if err != nil {
			e.errs = append(e.errs, err)
		}
	}

	e.running = false
	errs := e.errs
	e.errs = nil
	e.mu.Unlock()

	if len(errs) != 0 {
		panic(errors.Join(errs...))
	}
}

// Dispatch adds f into the queue with a weight of zero.
//
// Dispatch is safe for concurrent use.
func (e *Executor) Dispatch(f func()) {
	e.dispatch(0, f)
}

// Weighted returns a [Dispatcher] that adds functions into the queue of e
// with a weight of w.
func (e *Executor) Weighted(w Weight) Dispatcher {
	return DispatcherFunc(func(f func()) { e.dispatch(w, f) })
}

func (e *Executor) dispatch(w Weight, f func()) {
	if f == nil {
		panic("cotask: Dispatch(nil)")
	}

	var autorun func()

	e.mu.Lock()

	if !e.running && e.autorun != nil {
		e.running = true
		autorun = e.autorun
	}

	j, _ := e.pool.Get().(*job)
	if j == nil {
		j = new(job)
	}

	j.weight, j.f = w, f
	e.pq.Push(j)
	e.mu.Unlock()

	if autorun != nil {
		autorun()
	}
}
