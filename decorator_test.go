package cotask_test

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b97tsk/cotask"
)

func TestOverrideCancel(t *testing.T) {
	var e cotask.Engine

	t.Run("Cancelled", func(t *testing.T) {
		var r recorder
		c := run(t, &e, seq(cotask.OverrideCancel(cotask.Cancel()), r.do("after")))
		assert.True(t, c.OK())
		assert.Equal(t, []string{"after"}, r.list())
	})
	t.Run("Succeeded", func(t *testing.T) {
		assert.True(t, wait(t, e.RunTask(cotask.OverrideCancel(cotask.Nop()), nil)).OK())
	})
	t.Run("Faulted", func(t *testing.T) {
		boom := errors.New("boom")
		c := wait(t, e.RunTask(cotask.OverrideCancel(cotask.Fail(boom)), nil))
		assert.ErrorIs(t, c.Err(), boom)
	})
	t.Run("Async", func(t *testing.T) {
		m := newManual()
		f := e.RunTask(cotask.OverrideCancel(m), nil)
		go m.complete(cotask.Cancelled())
		assert.True(t, wait(t, f).OK())
	})
}

func TestWhenCancelled(t *testing.T) {
	var e cotask.Engine

	fallback := func(r *recorder, tasks ...cotask.Task) func() iter.Seq[cotask.Task] {
		return func() iter.Seq[cotask.Task] {
			r.add("fallback")
			return seq(tasks...)
		}
	}

	t.Run("Cancelled", func(t *testing.T) {
		var r recorder
		task := cotask.WhenCancelled(cotask.Cancel(), fallback(&r, r.do("guest")))
		c := run(t, &e, seq(task, r.do("welcome")))
		assert.True(t, c.OK())
		assert.Equal(t, []string{"fallback", "guest", "welcome"}, r.list())
	})
	t.Run("Succeeded", func(t *testing.T) {
		var r recorder
		task := cotask.WhenCancelled(r.do("login"), fallback(&r))
		assert.True(t, wait(t, e.RunTask(task, nil)).OK())
		assert.Equal(t, []string{"login"}, r.list())
	})
	t.Run("Faulted", func(t *testing.T) {
		var r recorder
		boom := errors.New("boom")
		task := cotask.WhenCancelled(cotask.Fail(boom), fallback(&r))
		c := wait(t, e.RunTask(task, nil))
		assert.ErrorIs(t, c.Err(), boom)
		assert.Empty(t, r.list(), "fallback must not run on fault")
	})
	t.Run("FallbackFaults", func(t *testing.T) {
		var r recorder
		boom := errors.New("boom")
		task := cotask.WhenCancelled(cotask.Cancel(), fallback(&r, cotask.Fail(boom), r.do("never")))
		c := wait(t, e.RunTask(task, nil))
		assert.ErrorIs(t, c.Err(), boom)
		assert.Equal(t, []string{"fallback"}, r.list())
	})
	t.Run("FallbackCancelled", func(t *testing.T) {
		var r recorder
		task := cotask.WhenCancelled(cotask.Cancel(), fallback(&r, cotask.Cancel()))
		assert.True(t, wait(t, e.RunTask(task, nil)).WasCancelled())
	})
	t.Run("FallbackPanics", func(t *testing.T) {
		task := cotask.WhenCancelled(cotask.Cancel(), func() iter.Seq[cotask.Task] { panic("no fallback") })
		c := wait(t, e.RunTask(task, nil))
		var perr *cotask.PanicError
		require.ErrorAs(t, c.Err(), &perr)
		assert.Equal(t, "no fallback", perr.Value)
	})
	t.Run("NilFallback", func(t *testing.T) {
		assert.Panics(t, func() { cotask.WhenCancelled(cotask.Nop(), nil) })
	})
}

type notFoundError struct {
	name string
}

func (e *notFoundError) Error() string { return e.name + ": not found" }

func TestRescue(t *testing.T) {
	var e cotask.Engine

	t.Run("Matching", func(t *testing.T) {
		var r recorder
		var calls int
		cause := &notFoundError{name: "config"}

		task := cotask.Rescue(cotask.Fail(cause), func(err *notFoundError) iter.Seq[cotask.Task] {
			calls++
			assert.Same(t, cause, err)
			return seq(r.do("defaults"))
		})

		c := run(t, &e, seq(task, r.do("after")))
		assert.True(t, c.OK())
		assert.Equal(t, 1, calls)
		assert.Equal(t, []string{"defaults", "after"}, r.list())
	})
	t.Run("Wrapped", func(t *testing.T) {
		var got *notFoundError
		cause := fmt.Errorf("loading: %w", &notFoundError{name: "config"})

		task := cotask.Rescue(cotask.Fail(cause), func(err *notFoundError) iter.Seq[cotask.Task] {
			got = err
			return seq()
		})

		assert.True(t, wait(t, e.RunTask(task, nil)).OK())
		require.NotNil(t, got)
		assert.Equal(t, "config", got.name)
	})
	t.Run("NotMatching", func(t *testing.T) {
		var called bool
		cause := fs.ErrPermission

		task := cotask.Rescue(cotask.Fail(cause), func(*notFoundError) iter.Seq[cotask.Task] {
			called = true
			return seq()
		})

		c := wait(t, e.RunTask(task, nil))
		assert.Same(t, cause, c.Err())
		assert.False(t, called)
	})
	t.Run("PassThrough", func(t *testing.T) {
		rescue := func(error) iter.Seq[cotask.Task] {
			t.Error("rescue must not run")
			return seq()
		}
		assert.True(t, wait(t, e.RunTask(cotask.RescueAny(cotask.Nop(), rescue), nil)).OK())
		assert.True(t, wait(t, e.RunTask(cotask.RescueAny(cotask.Cancel(), rescue), nil)).WasCancelled())
	})
	t.Run("RescueFaults", func(t *testing.T) {
		boom := errors.New("boom")
		task := cotask.RescueAny(cotask.Fail(errors.New("first")), func(error) iter.Seq[cotask.Task] {
			return seq(cotask.Fail(boom))
		})
		c := wait(t, e.RunTask(task, nil))
		assert.Same(t, boom, c.Err())
	})
	t.Run("RescueCancelled", func(t *testing.T) {
		task := cotask.RescueAny(cotask.Fail(errors.New("first")), func(error) iter.Seq[cotask.Task] {
			return seq(cotask.Cancel())
		})
		assert.True(t, wait(t, e.RunTask(task, nil)).WasCancelled())
	})
	t.Run("RescuePanics", func(t *testing.T) {
		task := cotask.RescueAny(cotask.Fail(errors.New("first")), func(error) iter.Seq[cotask.Task] {
			panic("no rescue")
		})
		c := wait(t, e.RunTask(task, nil))
		var perr *cotask.PanicError
		require.ErrorAs(t, c.Err(), &perr)
		assert.Equal(t, "no rescue", perr.Value)
	})
	t.Run("CancelAfterRescue", func(t *testing.T) {
		var r recorder
		task := cotask.RescueAny(cotask.Fail(errors.New("offline")), func(error) iter.Seq[cotask.Task] {
			return seq(r.do("notify"))
		}, cotask.CancelAfterRescue())

		c := run(t, &e, seq(task, r.do("never")))
		assert.True(t, c.WasCancelled())
		assert.NoError(t, c.Err())
		assert.Equal(t, []string{"notify"}, r.list())
	})
	t.Run("Async", func(t *testing.T) {
		m := newManual()
		p := cotask.NewPromise[string]()
		task := cotask.RescueAny(m, func(error) iter.Seq[cotask.Task] {
			return seq(cotask.Await(p.Future()))
		})

		f := e.RunTask(task, nil)
		go m.complete(cotask.Faulted(errors.New("boom")))
		go p.Resolve("recovered")

		assert.True(t, wait(t, f).OK())
	})
	t.Run("NilRescue", func(t *testing.T) {
		assert.Panics(t, func() { cotask.Rescue[*notFoundError](cotask.Nop(), nil) })
		assert.Panics(t, func() { cotask.RescueAny(cotask.Nop(), nil) })
	})
}

func TestDecoratorsStartOnce(t *testing.T) {
	var e cotask.Engine

	for name, task := range map[string]cotask.Task{
		"OverrideCancel": cotask.OverrideCancel(cotask.Nop()),
		"WhenCancelled":  cotask.WhenCancelled(cotask.Nop(), func() iter.Seq[cotask.Task] { return seq() }),
		"RescueAny":      cotask.RescueAny(cotask.Nop(), func(error) iter.Seq[cotask.Task] { return seq() }),
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, wait(t, e.RunTask(task, nil)).OK())
			c := wait(t, e.RunTask(task, nil))
			assert.ErrorIs(t, c.Err(), cotask.ErrStarted)
		})
	}
}
