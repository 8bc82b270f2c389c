package wire

import "bytes"

// HeaderField is one header line to append to a response's header block.
type HeaderField struct {
	Name  string
	Value string
}

// BuildHeaderBlock serializes the status line and header block for one
// response. It always writes 200 unless redirect is non-empty, in which
// case it writes a 301 with a Location header; improving on this fixed
// status code is an open item the container inherits unchanged.
func BuildHeaderBlock(keepAlive bool, headers []HeaderField, redirect string) []byte {
	var b bytes.Buffer

	if redirect != "" {
		b.WriteString("HTTP/1.1 301 Moved Permanently\r\n")
		b.WriteString("Location: " + redirect + "\r\n")
	} else {
		b.WriteString("HTTP/1.1 200 OK\r\n")
	}

	if keepAlive {
		b.WriteString("Connection: keep-alive\r\n")
		b.WriteString("Transfer-Encoding: chunked\r\n")
	} else {
		b.WriteString("Connection: close\r\n")
	}

	for _, h := range headers {
		b.WriteString(h.Name + ": " + h.Value + "\r\n")
	}

	b.WriteString("\r\n")
	return b.Bytes()
}
