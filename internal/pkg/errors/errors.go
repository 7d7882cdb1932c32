package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing or not-owned resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstream is a generic sentinel for model/extraction-service failures.
	ErrUpstream = errors.New("upstream failure")
	// ErrPersistence is a generic sentinel for database write failures.
	ErrPersistence = errors.New("persistence failure")
)
