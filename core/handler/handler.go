// Package handler defines the handler function signature and the
// per-invocation Ctx that gives a handler ambient, convenience-method
// access to the bound Request and Response without threading them through
// every helper call. Ctx is constructed fresh by the Dispatcher for every
// invocation and passed as an ordinary Go parameter rather than stored in
// any goroutine-local slot: passing the same Ctx (or the AsyncHandle
// derived from it) to another goroutine is the entire rebind operation.
package handler

import (
	"fmt"

	"github.com/go-rustlet/rustlet/core/async"
	"github.com/go-rustlet/rustlet/core/request"
	"github.com/go-rustlet/rustlet/core/response"
)

// Func is a registered handler: it reads from and writes to the Request
// and Response carried by ctx and returns an error to signal failure to
// the dispatcher's error finalizer.
type Func func(ctx *Ctx) error

// Ctx binds one Request/Response pair for the duration of a handler
// invocation.
type Ctx struct {
	req  *request.Request
	resp *response.Response
}

// New binds req and resp into a Ctx.
func New(req *request.Request, resp *response.Response) *Ctx {
	return &Ctx{req: req, resp: resp}
}

// Request returns the bound request.
func (c *Ctx) Request() *request.Request { return c.req }

// Response returns the bound response.
func (c *Ctx) Response() *response.Response { return c.resp }

// Respond appends p to the response buffer.
func (c *Ctx) Respond(p []byte) (int, error) { return c.resp.Write(p) }

// Respondf appends a formatted string to the response buffer.
func (c *Ctx) Respondf(format string, args ...any) (int, error) {
	return fmt.Fprintf(c.resp, format, args...)
}

// Flush flushes the response.
func (c *Ctx) Flush() error { return c.resp.Flush() }

// SetContentType sets the Content-Type response header.
func (c *Ctx) SetContentType(v string) error { return c.resp.SetContentType(v) }

// AddHeader appends a response header.
func (c *Ctx) AddHeader(name, value string) error { return c.resp.AddHeader(name, value) }

// SetRedirect marks the response as a 301 redirect to url.
func (c *Ctx) SetRedirect(url string) error { return c.resp.SetRedirect(url) }

// SetCookie appends a Set-Cookie response header.
func (c *Ctx) SetCookie(name, value string, attrs ...string) error {
	return c.resp.SetCookie(name, value, attrs...)
}

// Cookie reads a cookie from the request's Cookie header.
func (c *Ctx) Cookie(name string) (string, bool) { return c.req.Cookie(name) }

// Query returns the request's raw query string.
func (c *Ctx) Query() string { return c.req.RawQuery() }

// QueryValue looks up a single query parameter.
func (c *Ctx) QueryValue(key string) (string, bool) { return c.req.Query(key) }

// Header looks up a request header by case-insensitive name.
func (c *Ctx) Header(name string) (string, bool) { return c.req.Header(name) }

// HeaderLen reports the number of request headers in wire order.
func (c *Ctx) HeaderLen() int { return c.req.HeaderLen() }

// HeaderName returns the raw name of the i-th request header.
func (c *Ctx) HeaderName(i int) []byte { return c.req.HeaderName(i) }

// HeaderValue returns the raw value of the i-th request header.
func (c *Ctx) HeaderValue(i int) []byte { return c.req.HeaderValue(i) }

// Method returns the request method.
func (c *Ctx) Method() request.Method { return c.req.Method() }

// Version returns the request's HTTP version.
func (c *Ctx) Version() request.Version { return c.req.Version() }

// URI returns the request URI path.
func (c *Ctx) URI() string { return c.req.URI() }

// Content returns the request body.
func (c *Ctx) Content() []byte { return c.req.Body() }

// SessionGet reads key from the bound request's session.
func (c *Ctx) SessionGet(key string) ([]byte, bool) { return c.req.SessionGet(key) }

// SessionSet stores value under key in the bound request's session.
func (c *Ctx) SessionSet(key string, value []byte) { c.req.SessionSet(key, value) }

// SessionDelete removes key from the bound request's session.
func (c *Ctx) SessionDelete(key string) { c.req.SessionDelete(key) }

// SessionInvalidate discards the bound request's entire session.
func (c *Ctx) SessionInvalidate() { c.req.SessionInvalidate() }

// AsyncHandle is the handle captured by AsyncContext and carried to
// whichever goroutine finishes the response: the bound Request/Response
// pair plus the completion guard that runs AsyncComplete exactly once.
type AsyncHandle struct {
	Req  *request.Request
	Resp *response.Response

	completion async.Context
}

// Bind constructs a fresh Ctx from a captured AsyncHandle so a
// continuation running on another goroutine can use the same convenience
// surface the original handler used. This is the async_context(ctx)
// restore operation.
func (h AsyncHandle) Bind() *Ctx {
	return New(h.Req, h.Resp)
}

// Complete runs the captured response's AsyncComplete exactly once,
// regardless of how many goroutines hold a copy of this handle or how
// many times Complete is called. This is the async_complete() operation.
func (h AsyncHandle) Complete() {
	h.completion.Complete()
}

// AsyncContext marks the bound response as asynchronous, deferring its
// terminal framing, and returns a handle a handler can carry to another
// goroutine to finish the response later via AsyncHandle.Complete.
func (c *Ctx) AsyncContext() AsyncHandle {
	c.resp.MarkAsync()
	return AsyncHandle{
		Req:        c.req,
		Resp:       c.resp,
		completion: async.NewContext(async.CompleterFunc(func() { _ = c.resp.AsyncComplete() })),
	}
}
