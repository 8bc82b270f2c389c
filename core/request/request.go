package request

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-rustlet/rustlet/core/session"
)

// Method is an accepted HTTP request method.
type Method string

const (
	GET  Method = "GET"
	POST Method = "POST"
)

// Version is an HTTP version the dispatcher passes through without
// interpreting.
type Version string

const (
	Version09 Version = "0.9"
	Version10 Version = "1.0"
	Version11 Version = "1.1"
	Version20 Version = "2.0"
)

// Header is one (name, value) pair as it appeared on the wire. Names and
// values are kept as raw bytes because the wire format does not guarantee
// UTF-8.
type Header struct {
	Name  []byte
	Value []byte
}

// Request is an immutable view of one HTTP request. It is constructed
// once by the Dispatcher and referenced by pointer thereafter; because it
// never mutates after construction, handing the same *Request to an async
// continuation on another goroutine is a safe "clone" with no copying
// required.
type Request struct {
	method    Method
	version   Version
	uri       string
	rawQuery  string
	body      []byte
	headers   []Header
	keepAlive bool
	sessionID session.ID

	store *session.Store

	headerOnce sync.Once
	headerMap  map[string]string

	queryOnce sync.Once
	queryMap  map[string]string
}

// New builds a Request bound to store. sessionID must already be resolved
// (generated fresh or parsed from the request's Cookie header) by the
// caller before construction.
func New(method Method, version Version, uri, rawQuery string, body []byte, headers []Header, keepAlive bool, sessionID session.ID, store *session.Store) *Request {
	return &Request{
		method:    method,
		version:   version,
		uri:       uri,
		rawQuery:  rawQuery,
		body:      body,
		headers:   headers,
		keepAlive: keepAlive,
		sessionID: sessionID,
		store:     store,
	}
}

func (r *Request) Method() Method        { return r.method }
func (r *Request) Version() Version      { return r.version }
func (r *Request) URI() string           { return r.uri }
func (r *Request) RawQuery() string      { return r.rawQuery }
func (r *Request) Body() []byte          { return r.body }
func (r *Request) KeepAlive() bool       { return r.keepAlive }
func (r *Request) SessionID() session.ID { return r.sessionID }

// HeaderLen reports the number of headers in wire order, including
// duplicates.
func (r *Request) HeaderLen() int { return len(r.headers) }

// HeaderName returns the raw name of the i-th header in wire order.
func (r *Request) HeaderName(i int) []byte { return r.headers[i].Name }

// HeaderValue returns the raw value of the i-th header in wire order.
func (r *Request) HeaderValue(i int) []byte { return r.headers[i].Value }

// buildHeaderMap lazily lowercases header names and builds the lookup map.
// Headers whose name or value is not valid UTF-8 are skipped in the map,
// but remain reachable via HeaderName/HeaderValue. When a name repeats,
// the last occurrence on the wire wins.
func (r *Request) buildHeaderMap() {
	r.headerOnce.Do(func() {
		m := make(map[string]string, len(r.headers))
		for _, h := range r.headers {
			if !utf8.Valid(h.Name) || !utf8.Valid(h.Value) {
				continue
			}
			m[strings.ToLower(string(h.Name))] = string(h.Value)
		}
		r.headerMap = m
	})
}

// Header looks up a header by case-insensitive name.
func (r *Request) Header(name string) (string, bool) {
	r.buildHeaderMap()
	v, ok := r.headerMap[strings.ToLower(name)]
	return v, ok
}

// buildQueryMap lazily splits the raw query string into a key→value map.
func (r *Request) buildQueryMap() {
	r.queryOnce.Do(func() {
		m := make(map[string]string)
		for _, pair := range strings.Split(r.rawQuery, "&") {
			if pair == "" {
				continue
			}
			k, v, _ := strings.Cut(pair, "=")
			m[k] = v
		}
		r.queryMap = m
	})
}

// Query returns the value of query parameter key.
func (r *Request) Query(key string) (string, bool) {
	r.buildQueryMap()
	v, ok := r.queryMap[key]
	return v, ok
}

// Cookie parses the Cookie request header and returns the value of the
// named cookie, splitting on ";" then "=" per RFC 6265's informal syntax.
func (r *Request) Cookie(name string) (string, bool) {
	raw, ok := r.Header("Cookie")
	if !ok {
		return "", false
	}

	for _, part := range strings.Split(raw, ";") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if found && k == name {
			return v, true
		}
	}
	return "", false
}

// SessionGet reads key from this request's session.
func (r *Request) SessionGet(key string) ([]byte, bool) {
	return r.store.Get(r.sessionID, key)
}

// SessionSet stores value under key in this request's session.
func (r *Request) SessionSet(key string, value []byte) {
	r.store.Set(r.sessionID, key, value)
}

// SessionDelete removes key from this request's session.
func (r *Request) SessionDelete(key string) {
	r.store.Delete(r.sessionID, key)
}

// SessionInvalidate discards the entire session bound to this request.
func (r *Request) SessionInvalidate() {
	r.store.Invalidate(r.sessionID)
}
