package httpserver

import "errors"

var (
	// ErrStart wraps failures to start the HTTP server.
	ErrStart = errors.New("failed to start http server")

	// ErrShutdown wraps failures during graceful shutdown.
	ErrShutdown = errors.New("failed to shut down http server")
)
