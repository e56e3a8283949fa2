package dbpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultAcquireTimeout is how long Acquire waits for an idle connection
// before dialing an emergency one.
const DefaultAcquireTimeout = 5 * time.Second

var (
	// ErrPoolClosed is returned by Acquire after ReleaseAll has run.
	ErrPoolClosed = errors.New("dbpool: pool is closed")

	// ErrInvalidSize is returned by New when the configured size is not positive.
	ErrInvalidSize = errors.New("dbpool: pool size must be positive")
)

// Conn is the subset of *pgx.Conn the pool and the stores rely on.
//
// Keeping it an interface lets unit tests substitute in-memory connections.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	IsClosed() bool
	Close(ctx context.Context) error
}

// DialFunc establishes one new physical connection.
type DialFunc func(ctx context.Context) (Conn, error)

// PgxDial adapts pgx.Connect to a DialFunc for the given connection string.
func PgxDial(connString string) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		return pgx.Connect(ctx, connString)
	}
}

// Config defines the inputs for building a Pool.
type Config struct {
	// Size is the fixed number of pooled connections.
	Size int
	// AcquireTimeout bounds the wait for an idle connection; zero means
	// DefaultAcquireTimeout.
	AcquireTimeout time.Duration
	// Dial establishes physical connections.
	Dial DialFunc
}

// Pool hands out Lease handles over a fixed set of connections.
//
// The idle hand-off is a bounded channel, which is already safe for
// concurrent use; the mutex only guards the leased-set bookkeeping and the
// closed flag, and is never held across dialing or closing a connection.
type Pool struct {
	dial           DialFunc
	acquireTimeout time.Duration

	idle chan Conn

	mu     sync.Mutex
	leased map[*Lease]struct{}
	closed bool
}

// New dials cfg.Size connections up front and returns the pool.
//
// Any dial failure closes the partially built pool and propagates the error:
// a pool that cannot reach its configured size must not start.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, ErrInvalidSize
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}

	p := &Pool{
		dial:           cfg.Dial,
		acquireTimeout: cfg.AcquireTimeout,
		idle:           make(chan Conn, cfg.Size),
		leased:         make(map[*Lease]struct{}),
	}

	for i := 0; i < cfg.Size; i++ {
		conn, err := cfg.Dial(ctx)
		if err != nil {
			p.ReleaseAll(ctx)
			return nil, err
		}
		p.idle <- conn
	}

	slog.InfoContext(ctx, "database connection pool initialized", "size", cfg.Size)

	return p, nil
}

// Acquire returns a leased connection.
//
// It blocks up to the acquire timeout waiting for an idle slot. On timeout it
// dials an emergency connection outside the pooled capacity instead of
// failing the caller; the emergency connection is tracked like any other
// lease so ReleaseAll can still clean it up. A dequeued connection that was
// closed in the meantime is replaced with a fresh one.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	var (
		conn      Conn
		emergency bool
	)

	select {
	case conn = <-p.idle:
	default:
		timer := time.NewTimer(p.acquireTimeout)
		defer timer.Stop()

		select {
		case conn = <-p.idle:
		case <-timer.C:
			slog.WarnContext(ctx, "connection pool exhausted, dialing emergency connection",
				"waited", p.acquireTimeout.String())

			fresh, err := p.dial(ctx)
			if err != nil {
				return nil, err
			}
			conn, emergency = fresh, true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if conn.IsClosed() {
		slog.WarnContext(ctx, "pooled connection was closed, dialing replacement")

		fresh, err := p.dial(ctx)
		if err != nil {
			return nil, err
		}
		conn = fresh
	}

	lease := &Lease{pool: p, conn: conn, emergency: emergency}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close(ctx)
		return nil, ErrPoolClosed
	}
	p.leased[lease] = struct{}{}
	p.mu.Unlock()

	return lease, nil
}

// release returns a connection to the idle set, closing it when the pool is
// full or already shut down.
func (p *Pool) release(ctx context.Context, lease *Lease) {
	p.mu.Lock()
	delete(p.leased, lease)
	closed := p.closed
	p.mu.Unlock()

	if closed {
		p.closeConn(ctx, lease.conn)
		return
	}

	select {
	case p.idle <- lease.conn:
	default:
		// Happens when an emergency connection comes back while the pool is
		// already at capacity.
		slog.DebugContext(ctx, "connection pool full, closing returned connection")
		p.closeConn(ctx, lease.conn)
	}
}

// ReleaseAll closes every leased connection plus everything idle in the pool.
//
// Intended for process shutdown only. It is safe against concurrent releases:
// once the closed flag is set, in-flight releases close their connection
// instead of re-pooling it, and a repeated call finds nothing left to do.
func (p *Pool) ReleaseAll(ctx context.Context) {
	p.mu.Lock()
	p.closed = true
	leased := make([]*Lease, 0, len(p.leased))
	for l := range p.leased {
		leased = append(leased, l)
	}
	p.leased = make(map[*Lease]struct{})
	p.mu.Unlock()

	slog.InfoContext(ctx, "closing all database connections", "leased", len(leased))

	for _, l := range leased {
		p.closeConn(ctx, l.conn)
	}

	for {
		select {
		case conn := <-p.idle:
			p.closeConn(ctx, conn)
		default:
			return
		}
	}
}

// Stats reports the current idle and leased counts.
func (p *Pool) Stats() (idle, leased int) {
	p.mu.Lock()
	leased = len(p.leased)
	p.mu.Unlock()

	return len(p.idle), leased
}

func (p *Pool) closeConn(ctx context.Context, conn Conn) {
	if conn == nil || conn.IsClosed() {
		return
	}
	if err := conn.Close(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to close database connection", "error", err)
	}
}
