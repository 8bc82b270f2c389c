package response

import "errors"

// ErrHeadersWritten is returned by header/redirect/cookie mutators once
// the response's header block has already been written to the wire.
var ErrHeadersWritten = errors.New("response: headers already written")
