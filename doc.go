// Package rsessions is a multi-tenant session store backed by a shared
// Redis instance. It issues, reads, mutates and revokes short-lived session
// records for independent client applications, with idle-timeout expiry,
// per-user and per-app enumeration, and an arbitrary scalar payload per
// session.
//
// Every session write moves the session hash and three derived indices
// (per-app sessions, per-app users, global expiry) together inside one
// Redis transaction, so a crash can never leave a session visible in one
// index and missing from another. "Expired" is a logical predicate
// (declared ttl exceeded by idle time) applied on every read path,
// independent of physical deletion; a background sweeper eventually deletes
// overdue sessions via the global expiry index.
//
// An optional bounded read-through cache keyed app:token is kept coherent
// across processes by an invalidation broadcast on a namespace-scoped
// pub/sub channel; mutations publish in the same transaction they commit.
//
// # Architecture boundaries
//
// The package exposes [Engine], [Config], and the option/state types. The
// session record model and hash codec live in the session subpackage;
// signed session tickets in ticket. Key naming and token generation are
// internal.
//
// # What this package must NOT do
//
//   - Query sessions by payload content, or guarantee durability beyond
//     what Redis provides.
//   - Retry failed store operations; failures propagate to the caller.
//   - Expose Redis keys, clients, or the hash encoding in its public API.
package rsessions
