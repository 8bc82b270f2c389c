package response

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-rustlet/rustlet/core/wire"
)

// Response is the per-request output buffer: accumulated body bytes,
// additional headers, an optional redirect, the headers-written latch,
// and the chunked/close framing state. A Response is owned by one handler
// invocation at a time but its mutable state is guarded by a mutex so a
// clone carried into an async continuation observes and mutates the same
// state.
type Response struct {
	mu sync.Mutex

	handle   WriteHandle
	buf      bytes.Buffer
	headers  []wire.HeaderField
	redirect string

	headersWritten bool
	keepAlive      bool
	chained        bool
	isAsync        bool
	isComplete     bool

	done chan struct{}
}

// New constructs a Response bound to handle. chained marks a sub-response
// invoked from inside the template-page interpreter: it never emits a
// header block or terminal framing of its own.
func New(handle WriteHandle, keepAlive, chained bool) *Response {
	return &Response{handle: handle, keepAlive: keepAlive, chained: chained, done: make(chan struct{})}
}

// Write appends p to the response buffer. It never fails; it satisfies
// io.Writer so handler code can use fmt.Fprintf(resp, ...) directly.
func (r *Response) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

// WriteString appends s to the response buffer.
func (r *Response) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

// AddHeader appends name: value to the additional headers, failing with
// ErrHeadersWritten once the header block has already gone out.
func (r *Response) AddHeader(name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.headersWritten {
		return ErrHeadersWritten
	}
	r.headers = append(r.headers, wire.HeaderField{Name: name, Value: value})
	return nil
}

// SetContentType is shorthand for AddHeader("Content-Type", v).
func (r *Response) SetContentType(v string) error {
	return r.AddHeader("Content-Type", v)
}

// SetCookie appends a Set-Cookie header built from name, value, and any
// extra attribute strings (e.g. "Path=/", "HttpOnly").
func (r *Response) SetCookie(name, value string, attrs ...string) error {
	var b bytes.Buffer
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
	for _, a := range attrs {
		b.WriteString("; ")
		b.WriteString(a)
	}
	return r.AddHeader("Set-Cookie", b.String())
}

// SetRedirect marks this response as a 301 redirect to url, failing with
// ErrHeadersWritten once the header block has already gone out.
func (r *Response) SetRedirect(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.headersWritten {
		return ErrHeadersWritten
	}
	r.redirect = url
	return nil
}

// KeepAlive reports the connection's keep-alive framing mode.
func (r *Response) KeepAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keepAlive
}

// Chained reports whether this Response is a template sub-response.
func (r *Response) Chained() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chained
}

// HeadersWritten reports whether the header block has already been sent.
func (r *Response) HeadersWritten() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headersWritten
}

// IsComplete reports whether Complete has already run its terminal
// sequence on this Response.
func (r *Response) IsComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isComplete
}

// MarkAsync sets the async flag, deferring this response's terminal
// framing until AsyncComplete is called. It is the effect of the
// handler-local async_context() operation.
func (r *Response) MarkAsync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isAsync = true
}

// IsAsync reports whether the response's terminal framing is deferred to
// an eventual AsyncComplete. The dispatcher consults this after a handler
// returns to decide whether the connection is still owned by a pending
// continuation.
func (r *Response) IsAsync() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isAsync
}

// Flush serializes and writes whatever is pending: the header block on
// first call (unless chained), the buffered body wrapped as one chunk in
// keep-alive mode or written bare in close mode, and the terminal chunk
// if this flush is also the completion flush.
func (r *Response) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *Response) flushLocked() error {
	var out bytes.Buffer

	if !r.headersWritten && !r.chained {
		out.Write(wire.BuildHeaderBlock(r.keepAlive, r.headers, r.redirect))
	}

	body := r.buf.Bytes()

	if r.keepAlive {
		if len(body) > 0 {
			fmt.Fprintf(&out, "%x\r\n", len(body))
			out.Write(body)
			out.WriteString("\r\n")
		}
		if r.isComplete {
			out.WriteString("0\r\n\r\n")
		}
	} else {
		out.Write(body)
	}

	r.buf.Reset()

	if out.Len() > 0 {
		if _, err := r.handle.Write(out.Bytes()); err != nil {
			return err
		}
	}

	r.headersWritten = true
	return nil
}

// Complete runs the response's terminal transition.
//
//   - A chained response just flushes: it never closes or emits a
//     terminal chunk of its own.
//   - An async response returns immediately; the eventual AsyncComplete
//     call performs the terminal sequence.
//   - Otherwise this is the completion flush: it marks isComplete (so
//     Flush appends the terminal chunk in keep-alive mode) and, for close
//     framing, closes the write handle afterward. Calling Complete more
//     than once on the same non-chained Response after it has already
//     completed is a no-op, satisfying the complete-once invariant.
func (r *Response) Complete() error {
	r.mu.Lock()

	if r.chained {
		defer r.mu.Unlock()
		return r.flushLocked()
	}

	if r.isAsync {
		r.mu.Unlock()
		return nil
	}

	if r.isComplete {
		r.mu.Unlock()
		return nil
	}
	r.isComplete = true

	err := r.flushLocked()
	keepAlive := r.keepAlive
	r.mu.Unlock()

	close(r.done)

	if err != nil {
		return err
	}
	if !keepAlive {
		return r.handle.Close()
	}
	return nil
}

// Wait blocks until the response has run its terminal sequence, returning
// immediately if it already has. The dispatcher uses it to serialize a
// connection's next request behind a pending async continuation; a chained
// response never completes and must not be waited on.
func (r *Response) Wait() {
	<-r.done
}

// AsyncComplete clears the async flag and runs Complete. It is the
// effect of the handler-local async_complete() operation and is typically
// invoked through an async.Context so repeated or concurrent calls from a
// continuation's goroutine collapse to a single Complete.
func (r *Response) AsyncComplete() error {
	r.mu.Lock()
	r.isAsync = false
	r.mu.Unlock()
	return r.Complete()
}
