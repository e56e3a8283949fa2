// Package dbpool implements a small bounded pool of database connections.
//
// Unlike pgxpool, exhaustion does not fail the caller: after the acquire
// timeout the pool dials a supernumerary "emergency" connection that is still
// tracked for shutdown. The rest of the application only sees Lease handles,
// whose Release is idempotent and safe to call on every exit path.
package dbpool
