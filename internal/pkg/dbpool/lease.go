package dbpool

import (
	"context"

	"go.uber.org/atomic"
)

// Lease is an exclusively owned handle to a pooled connection.
//
// The owning unit of work must call Release exactly once on every exit path;
// calling it more than once is harmless.
type Lease struct {
	pool      *Pool
	conn      Conn
	emergency bool
	released  atomic.Bool
}

// Conn exposes the leased connection.
func (l *Lease) Conn() Conn {
	return l.conn
}

// Emergency reports whether this lease was dialed outside the pooled capacity.
func (l *Lease) Emergency() bool {
	return l.emergency
}

// Release hands the connection back to the pool.
//
// Only the first call has any effect, so a deferred Release combined with an
// explicit one cannot double-return the same slot.
func (l *Lease) Release(ctx context.Context) {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	l.pool.release(ctx, l)
}
