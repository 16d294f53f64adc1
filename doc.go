// Package cotask is a library for running coroutines built out of tasks.
//
// A coroutine body is an [iter.Seq] of [Task] values.
// Written with an ordinary Go iterator function, it reads like sequential
// code: every yield hands a Task over to the engine and suspends the body
// until that Task completes.
// The body then resumes, right after the yield, possibly on another
// goroutine.
//
//	func save(doc *Document) iter.Seq[cotask.Task] {
//		return func(yield func(cotask.Task) bool) {
//			if !yield(cotask.Do(doc.Lock)) {
//				return
//			}
//			defer doc.Unlock()
//			upload := cotask.Go(doc.Upload)
//			if !yield(upload) {
//				return
//			}
//			yield(cotask.Do(func() { doc.Revision = upload.Result() }))
//		}
//	}
//
// # Tasks And Completions
//
// A Task is started once and completes once, with a [Completion]: either a
// success, a fault carrying an error, or a cancellation.
// Cancellation is not an error. It's an outcome that a Task decides on by
// itself, for example because the operation it wraps was cancelled.
//
// Leaf Tasks wrap plain functions ([Do], [DoErr], [Func]), futures ([Await])
// and functions that run in their own goroutine ([Go]).
// A panic in any of them faults the Task with a [*PanicError]; panics never
// escape to the caller of Start.
//
// # Sequencing
//
// [Sequence] turns a coroutine body into a Task that runs the yielded Tasks
// one after another, never two at a time.
// The first fault or cancellation stops the body; later Tasks are never
// pulled, let alone started.
//
// # Decorators
//
// The default propagation of faults and cancellations can only be changed
// locally, by wrapping a single Task:
//   - [WhenCancelled] runs a fallback body when a Task is cancelled;
//   - [OverrideCancel] turns a cancellation into a success;
//   - [Rescue] and [RescueAny] run a rescue body when a Task faults;
//   - [Retry] restarts a failing Task with a backoff policy;
//   - [Breaker] guards a Task with a circuit breaker.
//
// # Engines
//
// An [Engine] runs a coroutine body and reports its Completion to a callback
// ([Engine.Begin]) or through a [Future] ([Engine.Run]).
// Engines carry the extension points: how bodies are turned into Tasks, how
// Tasks get their dependencies injected before they start, which
// [Dispatcher] runs resumptions, and who observes executions.
//
// Every Task of one execution sees the same [ExecutionContext], which
// carries ambient values and the context.Context handed to leaf Tasks.
//
// # Threading
//
// The engine creates no goroutines by itself, except in [Go] and [Retry].
// Completions may arrive on any goroutine; each Task delivers at most one
// Completion, no matter how many times its underlying operation reports
// back.
// To run every resumption on a single goroutine, dispatch them with an
// [Executor].
package cotask
