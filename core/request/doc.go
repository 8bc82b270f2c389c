// Package request implements the container's immutable view of one HTTP
// request: method, version, URI, query, the raw ordered header sequence,
// body, keep-alive flag, and the session id bound to it by the dispatcher.
// Header and query lookup maps are derived lazily on first use.
package request
