package cotask

import (
	"fmt"
	"runtime/debug"
)

// A PanicError is the cause of a faulted [Completion] when a panic was
// recovered while starting a [Task], pulling a coroutine body, or calling a
// fallback or rescue function.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorWithStack is like Error but also includes the stack trace.
func (e *PanicError) ErrorWithStack() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// try calls f and converts a panic into a *PanicError.
// A *PanicError raised again by a nested try is returned as is.
//
// runtime.Goexit is not a panic: it keeps unwinding the goroutine, and try
// never returns.
func try(f func()) (err error) {
	ok := false
	defer func() {
		if !ok {
			v := recover()
			if v == nil {
				return // runtime.Goexit.
			}
			if perr, isPanic := v.(*PanicError); isPanic {
				err = perr
				return
			}
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	f()
	ok = true
	return nil
}
