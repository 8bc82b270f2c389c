package response_test

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rustlet/rustlet/core/response"
)

type fakeHandle struct {
	out    bytes.Buffer
	closed bool
}

func (f *fakeHandle) Write(p []byte) (int, error) {
	return f.out.Write(p)
}

func (f *fakeHandle) Close() error {
	f.closed = true
	return nil
}

func TestCloseFramingWritesHeaderBodyThenCloses(t *testing.T) {
	t.Parallel()

	h := &fakeHandle{}
	resp := response.New(h, false, false)

	_, err := resp.WriteString("hello")
	require.NoError(t, err)

	require.NoError(t, resp.Complete())

	out := h.out.String()
	assert.Contains(t, out, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, out, "Connection: close\r\n")
	assert.True(t, bytes.HasSuffix(h.out.Bytes(), []byte("hello")))
	assert.True(t, h.closed)
}

var chunkedBodyRe = regexp.MustCompile(`^([0-9a-f]+\r\n[\s\S]*?\r\n)*0\r\n\r\n$`)

func TestChunkedFramingWellFormed(t *testing.T) {
	t.Parallel()

	h := &fakeHandle{}
	resp := response.New(h, true, false)

	_, err := resp.WriteString("first\n")
	require.NoError(t, err)
	require.NoError(t, resp.Flush())

	_, err = resp.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, resp.Complete())

	out := h.out.String()
	headerEnd := bytes.Index(h.out.Bytes(), []byte("\r\n\r\n"))
	require.NotEqual(t, -1, headerEnd)

	assert.Contains(t, out[:headerEnd], "Transfer-Encoding: chunked")

	body := out[headerEnd+4:]
	assert.Regexp(t, chunkedBodyRe, body)
	assert.False(t, h.closed, "keep-alive complete must not close the connection")
}

func TestHeadersOnceAfterFlush(t *testing.T) {
	t.Parallel()

	h := &fakeHandle{}
	resp := response.New(h, true, false)

	require.NoError(t, resp.Flush())

	err := resp.AddHeader("X-Test", "1")
	assert.ErrorIs(t, err, response.ErrHeadersWritten)

	err = resp.SetRedirect("/elsewhere")
	assert.ErrorIs(t, err, response.ErrHeadersWritten)
}

func TestChainedNeverClosesOrTerminates(t *testing.T) {
	t.Parallel()

	h := &fakeHandle{}
	resp := response.New(h, true, true)

	_, err := resp.WriteString("chunk-a")
	require.NoError(t, err)
	require.NoError(t, resp.Complete())

	out := h.out.String()
	assert.NotContains(t, out, "HTTP/1.1")
	assert.NotContains(t, out, "0\r\n\r\n")
	assert.False(t, h.closed)
}

func TestCompleteOnceIsIdempotent(t *testing.T) {
	t.Parallel()

	h := &fakeHandle{}
	resp := response.New(h, false, false)

	_, err := resp.WriteString("body")
	require.NoError(t, err)

	require.NoError(t, resp.Complete())
	firstLen := h.out.Len()

	require.NoError(t, resp.Complete())
	require.NoError(t, resp.Complete())

	assert.Equal(t, firstLen, h.out.Len(), "a second Complete must write nothing further")
}

func TestWaitUnblocksAfterComplete(t *testing.T) {
	t.Parallel()

	h := &fakeHandle{}
	resp := response.New(h, true, false)
	resp.MarkAsync()

	done := make(chan struct{})
	go func() {
		resp.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before the response completed")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, resp.AsyncComplete())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after AsyncComplete")
	}
}

func TestAsyncDefersCompletion(t *testing.T) {
	t.Parallel()

	h := &fakeHandle{}
	resp := response.New(h, false, false)
	resp.MarkAsync()

	_, err := resp.WriteString("deferred")
	require.NoError(t, err)

	require.NoError(t, resp.Complete())
	assert.Equal(t, 0, h.out.Len(), "Complete on an async response must not write anything yet")
	assert.False(t, h.closed)

	require.NoError(t, resp.AsyncComplete())
	assert.Contains(t, h.out.String(), "deferred")
	assert.True(t, h.closed)
}
