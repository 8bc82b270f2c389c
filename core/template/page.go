package template

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-rustlet/rustlet/core/response"
)

// MaxFileSize is the per-file cap the interpreter enforces before scanning
// a template page. A file larger than this is rejected outright rather
// than streamed in bounded chunks; escape sequences cannot straddle this
// boundary because the whole file is read before scanning starts.
const MaxFileSize = 10 * 1024 * 1024

// ErrFileTooLarge is returned when the mapped file exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("template: file exceeds maximum size")

// ErrUnterminatedEscape is returned when a "<@=" escape sequence begins
// but no closing ">" is found before the end of the file.
var ErrUnterminatedEscape = errors.New("template: unterminated escape sequence")

var escapeStart = []byte("<@=")

// Invoker runs the handler named by a "<@=NAME>" escape against resp, a
// fresh chained sub-response Serve constructs for that escape alone.
// Callers supply this so the interpreter needs no knowledge of the
// handler registry or the bound request.
type Invoker func(name string, resp *response.Response) error

// Prepare runs once, against the freshly constructed page Response, before
// any bytes are written. It exists so a caller can bind a session cookie
// (or any other per-connection header) before the first flush latches the
// header block.
type Prepare func(resp *response.Response) error

// Serve reads the template page mapped to path from fs, scans it for
// "<@=NAME>" escapes, and streams the file's static bytes interleaved with
// the chained output of invoke(NAME) into a single response on handle.
// Each static segment is flushed as its own chunk in keep-alive mode,
// followed immediately by the escape's chained output, so the enclosing
// segment's writes strictly precede the sub-response's writes, which
// strictly precede the following segment's writes.
//
// Serve always returns the Response it built, even on error, so the
// caller's error/panic finalizer can inspect whether headers were already
// written before synthesizing its own error body.
func Serve(ctx context.Context, fs FileSource, path string, handle response.WriteHandle, keepAlive bool, prepare Prepare, invoke Invoker) (*response.Response, error) {
	data, err := fs.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("template: read %s: %w", path, err)
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	resp := response.New(handle, keepAlive, false)
	if prepare != nil {
		if err := prepare(resp); err != nil {
			return resp, err
		}
	}

	pos := 0
	for {
		idx := bytes.Index(data[pos:], escapeStart)
		if idx < 0 {
			if _, err := resp.Write(data[pos:]); err != nil {
				return resp, err
			}
			break
		}
		idx += pos

		if _, err := resp.Write(data[pos:idx]); err != nil {
			return resp, err
		}
		if err := resp.Flush(); err != nil {
			return resp, err
		}

		rel := bytes.IndexByte(data[idx:], '>')
		if rel < 0 {
			return resp, ErrUnterminatedEscape
		}

		name := string(data[idx+len(escapeStart) : idx+rel])
		pos = idx + rel + 1

		sub := response.New(handle, keepAlive, true)
		if err := invoke(name, sub); err != nil {
			return resp, err
		}
	}

	return resp, resp.Complete()
}
