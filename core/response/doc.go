// Package response implements the container's per-request output buffer
// and its chunked/close framing. A Response accumulates handler writes
// until Flush, honors a monotonic headers-written latch that locks out
// further header/redirect/cookie mutation once the header block has gone
// out, and exposes Complete/AsyncComplete as the only two ways a response
// reaches its terminal wire state exactly once.
package response
