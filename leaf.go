package cotask

// Do returns a [Task] that calls f, and then succeeds.
// If f panics, the Task faults with a [*PanicError].
func Do(f func()) Task {
	if f == nil {
		panic("cotask: Do(nil)")
	}
	return &funcTask[struct{}]{f: func() (struct{}, error) {
		f()
		return struct{}{}, nil
	}}
}

// DoErr returns a [Task] that calls f.
// The Task faults with the error f returns, or is cancelled if that error
// is [ErrCancelled] or context.Canceled.
func DoErr(f func() error) Task {
	if f == nil {
		panic("cotask: DoErr(nil)")
	}
	return &funcTask[struct{}]{f: func() (struct{}, error) {
		return struct{}{}, f()
	}}
}

// Func returns a [ResultTask] that calls f and, if f returns a nil error,
// succeeds with the value f returns.
// Errors are translated the same way as [DoErr].
func Func[T any](f func() (T, error)) ResultTask[T] {
	if f == nil {
		panic("cotask: Func(nil)")
	}
	return &funcTask[T]{f: f}
}

type funcTask[T any] struct {
	Completer
	f      func() (T, error)
	result T
}

func (t *funcTask[T]) Start(_ *ExecutionContext, done func(Completion)) {
	if !t.start(done) {
		return
	}

	var v T
	var err error

	if perr := try(func() { v, err = t.f() }); perr != nil {
		err = perr
	}

	c := completionOf(err)
	if c.OK() {
		t.result = v
	}

	t.Complete(c)
}

func (t *funcTask[T]) Result() T {
	return t.result
}

// Value returns a [ResultTask] that immediately succeeds with v.
func Value[T any](v T) ResultTask[T] {
	return &settledTask[T]{result: v}
}

// Nop returns a [Task] that immediately succeeds.
func Nop() Task {
	return &settledTask[struct{}]{}
}

// Fail returns a [Task] that immediately faults with err.
func Fail(err error) Task {
	return &settledTask[struct{}]{c: Faulted(err)}
}

// Cancel returns a [Task] that immediately reports cancellation.
//
// Yielding Cancel from a coroutine body stops the body without a fault.
func Cancel() Task {
	return &settledTask[struct{}]{c: Cancelled()}
}

type settledTask[T any] struct {
	Completer
	c      Completion
	result T
}

func (t *settledTask[T]) Start(_ *ExecutionContext, done func(Completion)) {
	if t.start(done) {
		t.Complete(t.c)
	}
}

func (t *settledTask[T]) Result() T {
	return t.result
}
