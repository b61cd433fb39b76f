package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates a fatal pre-flight problem, such as a gate
	// selection that needs credentials when none were supplied.
	ErrConfiguration = errors.New("configuration error")

	// ErrNoArtifacts indicates no drift artifact could be found or parsed.
	ErrNoArtifacts = errors.New("no drift artifacts found")

	// ErrNotConfigured indicates an expected resource is absent on the instance.
	// Gates report this as a skip, never as a failure.
	ErrNotConfigured = errors.New("not configured")

	// ErrUnauthorized indicates the instance rejected the request's credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnexpectedStatus indicates the instance answered with an unexpected HTTP status.
	ErrUnexpectedStatus = errors.New("unexpected status")
)
