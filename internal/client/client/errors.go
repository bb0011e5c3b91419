package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRejected     = errors.New("request rejected")
	// ErrBadResponse means the server answered but the body could not be read.
	ErrBadResponse = errors.New("unexpected server response")
)
