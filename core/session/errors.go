package session

import "errors"

// ErrInvalidID describes a cookie's session id text that does not parse as
// a non-negative 128-bit decimal integer. ParseID reports that case through
// its bool result; no function in this package returns ErrInvalidID.
var ErrInvalidID = errors.New("session: invalid session id")
