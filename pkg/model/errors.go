package model

import "github.com/m-mizutani/goerr/v2"

// Error kinds. Every error raised by the core wraps exactly one of them so
// callers can branch with errors.Is.
var (
	// ErrValidation is raised when input is rejected before any persistence
	ErrValidation = goerr.New("validation error")

	// ErrNotFound is raised for unknown or soft-deleted ids
	ErrNotFound = goerr.New("not found")

	// ErrProtocol is raised by the gateway session (rejected handshake, timeout, closed transport)
	ErrProtocol = goerr.New("protocol error")

	// ErrStorage is raised when the backing store cannot be read or written
	ErrStorage = goerr.New("storage error")
)
