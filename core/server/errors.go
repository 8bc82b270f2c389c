package server

import "errors"

// Server lifecycle errors.
var (
	ErrServerAlreadyRunning = errors.New("server is already running")
)
