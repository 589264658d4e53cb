package rsessions

import "errors"

var (
	// ErrMissingParameter is returned when a required field is absent or empty.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrInvalidFormat is returned when a field does not match its format rules.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrInvalidValue is returned for out-of-range numbers and malformed payloads.
	ErrInvalidValue = errors.New("invalid value")
	// ErrSessionNotFound is returned when a session is absent or logically expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps store-level failures: connection loss, timeouts,
	// protocol errors. There is no retry at this layer.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrInvalidRedisURL is returned when the configured connection URL cannot be parsed.
	ErrInvalidRedisURL = errors.New("invalid redis connection url")
	// ErrUnknown covers defensive integrity failures, such as a session hash
	// write reporting fewer fields than submitted.
	ErrUnknown = errors.New("unknown error")
	// ErrEngineClosed is returned by operations after Close.
	ErrEngineClosed = errors.New("engine closed")
)
