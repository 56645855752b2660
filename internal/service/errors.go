package service

import "errors"

// Sentinel errors let the HTTP layer pick status codes without parsing
// messages. Everything else coming out of a service is an internal failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
