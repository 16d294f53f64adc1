package cotask

import (
	"context"
	"errors"
)

// ErrCancelled is the error reported by [Future.Wait] when a [Future] has
// been cancelled.
//
// Leaf functions may also return ErrCancelled (or an error wrapping it) to
// report cancellation instead of a fault.
var ErrCancelled = errors.New("cotask: cancelled")

// A Completion records how a [Task] ended.
//
// Exactly one of the following holds:
//   - the Task succeeded (OK reports true);
//   - the Task faulted (Err reports a non-nil error);
//   - the Task was cancelled (WasCancelled reports true).
//
// The zero value is a successful Completion.
type Completion struct {
	err       error
	cancelled bool
}

// Succeeded returns a successful [Completion].
func Succeeded() Completion {
	return Completion{}
}

// Faulted returns a [Completion] that faulted with err.
//
// Faulted panics if err is nil.
func Faulted(err error) Completion {
	if err == nil {
		panic("cotask: Faulted(nil)")
	}
	return Completion{err: err}
}

// Cancelled returns a cancelled [Completion].
func Cancelled() Completion {
	return Completion{cancelled: true}
}

// Err returns the cause of a faulted [Completion], or nil.
func (c Completion) Err() error {
	return c.err
}

// WasCancelled reports whether c is a cancellation.
func (c Completion) WasCancelled() bool {
	return c.cancelled
}

// OK reports whether c is a success.
func (c Completion) OK() bool {
	return c.err == nil && !c.cancelled
}

// String returns "succeeded", "cancelled" or "faulted: " followed by
// the cause.
func (c Completion) String() string {
	switch {
	case c.err != nil:
		return "faulted: " + c.err.Error()
	case c.cancelled:
		return "cancelled"
	default:
		return "succeeded"
	}
}

// Outcome returns "succeeded", "faulted" or "cancelled".
func (c Completion) Outcome() string {
	switch {
	case c.err != nil:
		return "faulted"
	case c.cancelled:
		return "cancelled"
	default:
		return "succeeded"
	}
}

// completionOf translates the return value of a leaf function.
func completionOf(err error) Completion {
	switch {
	case err == nil:
		return Succeeded()
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return Cancelled()
	default:
		return Faulted(err)
	}
}
