package cotask

import (
	"context"
	"iter"

	"github.com/google/uuid"
)

// An ExecutionContext carries ambient values through every nested [Task] of
// one top-level execution.
//
// An ExecutionContext must not be modified once an execution has started.
// WithValue and WithSourceTarget return modified copies.
type ExecutionContext struct {
	id     uuid.UUID
	ctx    context.Context
	source any
	target any
	engine *Engine
}

// NewExecutionContext returns a new [ExecutionContext] with a fresh ID.
// ctx is handed to leaf adapters such as [Go] and [Retry]; if ctx is nil,
// context.Background() is used.
func NewExecutionContext(ctx context.Context) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ExecutionContext{id: uuid.New(), ctx: ctx}
}

// ID returns the identifier of the execution.
func (ec *ExecutionContext) ID() uuid.UUID {
	return ec.id
}

// Context returns the context.Context of the execution.
func (ec *ExecutionContext) Context() context.Context {
	if ec == nil {
		return context.Background()
	}
	return ec.ctx
}

// Source returns the object on whose behalf the execution was started.
func (ec *ExecutionContext) Source() any {
	return ec.source
}

// Target returns the object the execution operates on.
func (ec *ExecutionContext) Target() any {
	return ec.target
}

// Value returns the value associated with key, or nil.
func (ec *ExecutionContext) Value(key any) any {
	return ec.Context().Value(key)
}

// WithSourceTarget returns a copy of ec with source and target set.
func (ec *ExecutionContext) WithSourceTarget(source, target any) *ExecutionContext {
	c := *ec
	c.source, c.target = source, target
	return &c
}

// WithValue returns a copy of ec in which the value associated with key
// is val.
func (ec *ExecutionContext) WithValue(key, val any) *ExecutionContext {
	c := *ec
	c.ctx = context.WithValue(ec.ctx, key, val)
	return &c
}

// Engine returns the [Engine] running the execution.
// Tasks started outside of an Engine, or with a nil ExecutionContext, see
// the default Engine.
func (ec *ExecutionContext) Engine() *Engine {
	if ec == nil || ec.engine == nil {
		return &defaultEngine
	}
	return ec.engine
}

// bind returns a copy of ec attached to e, unless ec is already attached.
func (ec *ExecutionContext) bind(e *Engine) *ExecutionContext {
	if ec.engine == e {
		return ec
	}
	c := *ec
	c.engine = e
	return &c
}

// start prepares t with the Engine's Prepare hook, then starts it.
func (ec *ExecutionContext) start(t Task, done func(Completion)) {
	if t != nil {
		if err := try(func() { ec.Engine().prepare(t) }); err != nil {
			done(Faulted(err))
			return
		}
	}
	startTask(t, ec, done)
}

// sequence wraps body with the Engine's WrapBody hook.
func (ec *ExecutionContext) sequence(body func() iter.Seq[Task]) (t Task, err error) {
	err = try(func() { t = ec.Engine().wrap(body()) })
	return t, err
}

func (ec *ExecutionContext) logID() string {
	if ec == nil {
		return ""
	}
	return ec.id.String()
}
