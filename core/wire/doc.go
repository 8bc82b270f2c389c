// Package wire builds the status-line and header block that precedes a
// response body. Given the keep-alive flag, the response's additional
// headers, and an optional redirect location, it produces the exact bytes
// the Response writes ahead of the body on first flush.
package wire
