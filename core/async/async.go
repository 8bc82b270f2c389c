// Package async provides the single-fire completion guard behind a
// handler's asynchronous continuation: a handler calls async_context() to
// capture a handle, hands that handle to another goroutine (typically via
// go func), and that goroutine later calls Complete to resume the
// response's terminal framing. Complete is safe to call from any goroutine
// and safe to call more than once; only the first call has effect.
package async

import "sync"

// Completer performs the terminal framing of a response that was left open
// for asynchronous completion. Implementations must be safe to call from a
// goroutine other than the one that captured the Context.
type Completer interface {
	Complete()
}

// CompleterFunc adapts a plain function to Completer.
type CompleterFunc func()

func (f CompleterFunc) Complete() { f() }

// Context is the cheaply copyable handle a handler captures and carries to
// whichever goroutine will finish the response. The zero value is not
// usable; construct one with NewContext.
type Context struct {
	completer Completer
	once      *sync.Once
}

// NewContext wraps completer in a Context whose Complete method fires it
// exactly once, no matter how many copies of the Context exist or how many
// goroutines call Complete concurrently.
func NewContext(completer Completer) Context {
	return Context{completer: completer, once: new(sync.Once)}
}

// Complete runs the wrapped Completer on first call; subsequent calls,
// including concurrent ones from other goroutines holding a copy of this
// Context, are no-ops.
func (c Context) Complete() {
	if c.once == nil || c.completer == nil {
		return
	}
	c.once.Do(c.completer.Complete)
}

// Valid reports whether the Context was constructed with NewContext.
func (c Context) Valid() bool {
	return c.once != nil && c.completer != nil
}
