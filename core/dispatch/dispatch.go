// Package dispatch implements the Dispatcher: the upcall entry point that
// turns a parsed HTTP request into one or more handler invocations. It
// resolves a request's URI against the route table or the template-page
// extension, binds the request's session id via the rustletsessionid
// cookie, invokes the matched handler (or the template interpreter), and
// finalizes the response on the error or panic path.
//
// The Dispatcher is installed as the http.Handler on core/server.Server,
// which owns the actual socket accept loop. Request parsing, keep-alive
// connection reuse, and header serialization are kept out of this
// package's own responsibility; it realizes them with the standard
// library's http.Hijacker and http.ReadRequest rather than a hand-rolled
// wire parser, since all that matters to the dispatch/execute pipeline
// below is that something delivers parsed requests to it.
package dispatch

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/go-rustlet/rustlet/core/handler"
	"github.com/go-rustlet/rustlet/core/registry"
	"github.com/go-rustlet/rustlet/core/request"
	"github.com/go-rustlet/rustlet/core/response"
	"github.com/go-rustlet/rustlet/core/session"
	"github.com/go-rustlet/rustlet/core/template"
)

// SessionCookieName is the cookie the Dispatcher reads and sets to bind a
// connection to a session id: "rustletsessionid=<u128-decimal>".
const SessionCookieName = "rustletsessionid"

// TemplateExtension is the case-insensitive URI suffix that routes a
// request to the template-page interpreter instead of the route table.
const TemplateExtension = ".rsp"

const notFoundBody = "Internal Server error. See logs for details."

// Dispatcher is the upcall target the event runtime (core/server.Server)
// delivers parsed requests to. It is stateless beyond the shared Registry,
// session Store, and template FileSource it was built with, so a single
// Dispatcher serves every connection concurrently.
type Dispatcher struct {
	registry *registry.Registry
	store    *session.Store
	files    template.FileSource
	logger   *slog.Logger
	ext      string
}

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithLogger overrides the Dispatcher's logger. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithTemplateExtension overrides the URI suffix that routes a request to
// the template-page interpreter. The suffix is matched case-insensitively;
// an empty value keeps the default.
func WithTemplateExtension(ext string) Option {
	return func(d *Dispatcher) {
		if ext != "" {
			d.ext = strings.ToLower(ext)
		}
	}
}

// New builds a Dispatcher over reg, store, and files.
func New(reg *registry.Registry, store *session.Store, files template.FileSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		store:    store,
		files:    files,
		logger:   slog.Default(),
		ext:      TemplateExtension,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ServeHTTP hijacks the connection and serves every request the client
// sends on it, in sequence, until a response declines keep-alive, a
// finalizer runs, or the connection errors out. Hijacking per connection
// (rather than per request) is what lets the Response type below emit its
// own exact chunked/close framing instead of net/http's.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		d.logger.Error("dispatch: hijack unsupported")
		http.Error(w, ErrHijackUnsupported.Error(), http.StatusInternalServerError)
		return
	}

	// The first request's body must be drained before the hijack: once
	// Hijack returns, the original Request.Body is off limits. Later
	// requests on the connection are parsed off rw.Reader, so their
	// bodies read fine after the hijack.
	body, _ := io.ReadAll(r.Body)
	r.Body.Close()

	conn, rw, err := hj.Hijack()
	if err != nil {
		d.logger.Error("dispatch: hijack failed", "error", err)
		return
	}

	// A close-framed response left open for async completion takes over
	// the connection: its eventual AsyncComplete closes the write handle,
	// so this loop must not.
	closeConn := true
	defer func() {
		if closeConn {
			conn.Close()
		}
	}()

	req := r
	for {
		resp, keepOpen := d.handleOne(conn, req, body)

		if !keepOpen {
			if resp != nil && resp.IsAsync() {
				closeConn = false
			}
			return
		}

		// Pipelining across a pending continuation is not supported:
		// the next request is not read until the prior response has
		// emitted its terminal framing. A response that completed
		// synchronously has already closed its done channel, so this
		// returns immediately for the common case.
		if resp != nil {
			resp.Wait()
		}

		next, err := http.ReadRequest(rw.Reader)
		if err != nil {
			return
		}
		body, _ = io.ReadAll(next.Body)
		next.Body.Close()
		req = next
	}
}

// handleOne serves one request on conn, returning the top-level Response
// it built (nil if the hijacked request never got one) and whether the
// connection should stay open for a following request. The caller inspects
// the Response's async state to decide connection ownership.
func (d *Dispatcher) handleOne(conn net.Conn, r *http.Request, body []byte) (resp *response.Response, keepOpen bool) {
	handle := response.NewConnHandle(conn)
	keepAlive := resolveKeepAlive(r)

	defer func() {
		if p := recover(); p != nil {
			pe := newPanicError(p, debug.Stack())
			d.logger.Error("dispatch: handler panic", "uri", r.URL.Path, "value", pe.Value(), "stack", string(pe.Stack()))
			d.finalize(resp, handle, pe)
			keepOpen = false
		}
	}()

	version := resolveVersion(r)
	headers := collectHeaders(r.Header)
	uri := r.URL.Path
	query := r.URL.RawQuery

	sessID, setCookie := d.resolveSession(r)
	req := request.New(request.Method(r.Method), version, uri, query, body, headers, keepAlive, sessID, d.store)

	routedName, routed := d.registry.Route(uri)

	switch {
	case routed:
		resp = response.New(handle, keepAlive, false)
		if setCookie {
			if err := resp.SetCookie(SessionCookieName, session.Text(sessID), "path=/"); err != nil {
				d.logger.Warn("dispatch: set session cookie", "error", err)
			}
		}

		if err := d.execute(routedName, req, resp); err != nil {
			d.finalize(resp, handle, err)
			return resp, false
		}

	case strings.HasSuffix(strings.ToLower(uri), d.ext):
		prepare := func(pageResp *response.Response) error {
			resp = pageResp
			if !setCookie {
				return nil
			}
			return pageResp.SetCookie(SessionCookieName, session.Text(sessID), "path=/")
		}
		invoke := func(name string, chained *response.Response) error {
			return d.execute(name, req, chained)
		}

		_, err := template.Serve(r.Context(), d.files, uri, handle, keepAlive, prepare, invoke)
		if err != nil {
			d.finalize(resp, handle, fmt.Errorf("dispatch: template %s: %w", uri, err))
			return resp, false
		}

	default:
		resp = response.New(handle, false, false)
		resp.WriteString(notFoundBody)
		if err := resp.Complete(); err != nil {
			d.logger.Error("dispatch: write error body", "error", err)
		}
		return resp, false
	}

	return resp, keepAlive
}

// execute resolves name in the registry, builds a Ctx over req/resp, and
// runs the handler. resp's own chained flag (set by its constructor)
// governs whether Complete emits terminal framing or just flushes, so this
// function needs no chained parameter of its own: it behaves correctly for
// both a top-level route dispatch and a template-page chained escape.
func (d *Dispatcher) execute(name string, req *request.Request, resp *response.Response) error {
	fn, ok := d.registry.Handler(name)
	if !ok {
		resp.WriteString(fmt.Sprintf("Handler '%s' does not exist.", name))
		return resp.Complete()
	}

	ctx := handler.New(req, resp)
	if err := fn(ctx); err != nil {
		_ = resp.Flush()
		return fmt.Errorf("dispatch: handler %q: %w", name, err)
	}

	return resp.Complete()
}

// finalize implements the error/panic finalizer: if
// headers were already written on resp, it appends a separator and an
// error trailer to the existing stream; otherwise it synthesizes a fresh
// non-keep-alive response carrying the error body. Either way the
// connection is closed afterward, regardless of the request's keep-alive
// framing, since the client cannot be trusted to know where the erroring
// response ended.
func (d *Dispatcher) finalize(resp *response.Response, handle response.WriteHandle, err error) {
	d.logger.Error("dispatch: request failed", "error", err)

	if resp != nil && resp.HeadersWritten() {
		resp.WriteString("\n--- Internal Server error ---\n")
		resp.WriteString("<html><body><h1>Internal Server error</h1></body></html>")
		if ferr := resp.Complete(); ferr != nil {
			d.logger.Error("dispatch: finalize flush failed", "error", ferr)
		}
		_ = handle.Close()
		return
	}

	fresh := response.New(handle, false, false)
	fresh.WriteString(notFoundBody)
	if ferr := fresh.Complete(); ferr != nil {
		d.logger.Error("dispatch: finalize flush failed", "error", ferr)
	}
	_ = handle.Close()
}

// resolveSession reads the rustletsessionid cookie off r. If present and
// parseable as a non-negative 128-bit decimal, its value is used as the
// session id and no Set-Cookie is needed; otherwise a fresh id is
// generated and the caller must emit Set-Cookie on the bound response.
func (d *Dispatcher) resolveSession(r *http.Request) (id session.ID, setCookie bool) {
	if raw, ok := cookieValue(r.Header.Get("Cookie"), SessionCookieName); ok {
		if parsed, ok := session.ParseID(raw); ok {
			return parsed, false
		}
	}
	return session.NewID(), true
}

// cookieValue parses a raw Cookie header by ";"-split then "="-split,
// mirroring request.Request.Cookie but operating before a Request exists.
func cookieValue(raw, name string) (string, bool) {
	for _, part := range strings.Split(raw, ";") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if found && k == name {
			return v, true
		}
	}
	return "", false
}

// collectHeaders flattens net/http's per-name header slices into the
// ordered sequence request.Request expects. net/http's parser has already
// collapsed the true wire order into a map keyed by canonical name, so
// this iterates names in a deterministic sorted order rather than
// claiming to reconstruct the original byte order; values that repeated a
// header name on the wire keep their relative order within that name.
func collectHeaders(h http.Header) []request.Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]request.Header, 0, len(h))
	for _, name := range names {
		for _, v := range h[name] {
			headers = append(headers, request.Header{Name: []byte(name), Value: []byte(v)})
		}
	}
	return headers
}

// resolveVersion maps net/http's parsed protocol major/minor back onto
// request.Version.
func resolveVersion(r *http.Request) request.Version {
	switch {
	case r.ProtoMajor >= 2:
		return request.Version20
	case r.ProtoMajor == 1 && r.ProtoMinor >= 1:
		return request.Version11
	case r.ProtoMajor == 1:
		return request.Version10
	default:
		return request.Version09
	}
}

// resolveKeepAlive applies the standard HTTP/1.x default: HTTP/1.1 is
// keep-alive unless "Connection: close" is present; HTTP/1.0 (and below)
// is close unless "Connection: keep-alive" is present.
func resolveKeepAlive(r *http.Request) bool {
	switch strings.ToLower(r.Header.Get("Connection")) {
	case "keep-alive":
		return true
	case "close":
		return false
	default:
		return r.ProtoAtLeast(1, 1)
	}
}
