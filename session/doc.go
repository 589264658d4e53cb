// Package session provides the session record model, the scalar payload
// value union, and the codec between the fixed 8-field Redis hash
// representation and the in-memory [Session].
//
// # Storage format
//
// Sessions are stored as Redis hashes with the fields id, r, w, ttl, d, la,
// ip, no_resave. The d field holds a JSON object of scalar values. Field
// names and the JSON payload encoding are part of the stored format shared
// with other deployments and must not change.
//
// # Architecture boundaries
//
// This package owns decoding, including the liveness predicate (a session
// whose declared ttl is exceeded by its idle time decodes to nil) and the
// no-resave remaining-ttl computation. It performs no I/O and does not
// import the engine.
package session
