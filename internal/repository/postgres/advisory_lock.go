package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"beps/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// unlockTimeout bounds the unlock query. It runs detached from the caller's
// context so a cancelled shutdown context still unlocks.
const unlockTimeout = 5 * time.Second

// sessionConn is the checked-out connection that carries the session lock.
type sessionConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	// Release returns the connection to the pool.
	Release()
	// Destroy closes the connection instead of returning it, which drops any
	// session lock it still holds.
	Destroy(ctx context.Context) error
}

type pooledConn struct {
	*pgxpool.Conn
}

func (c pooledConn) Destroy(ctx context.Context) error {
	return c.Hijack().Close(ctx)
}

// AdvisoryLock is a session-scoped pg_advisory_lock held on a dedicated pool
// connection. The server drops it automatically if the process dies.
type AdvisoryLock struct {
	pool   *pgxpool.Pool
	key    int64
	logger *slog.Logger

	mu   sync.Mutex
	conn sessionConn
}

// NewAdvisoryLock creates a lock for key.
func NewAdvisoryLock(pool *pgxpool.Pool, key int64, logger *slog.Logger) repositories.LeaderLock {
	return &AdvisoryLock{pool: pool, key: key, logger: logger}
}

// TryAcquire runs pg_try_advisory_lock on a connection that stays checked out
// until Release.
func (l *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return true, nil
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&locked); err != nil {
		conn.Release()
		return false, fmt.Errorf("try advisory lock: %w", err)
	}

	if !locked {
		conn.Release()
		return false, nil
	}

	l.conn = pooledConn{conn}
	l.logger.Info("advisory lock acquired", "key", l.key)
	return true, nil
}

// Release unlocks and returns the connection. Safe to call when not held.
// When the unlock fails the connection is closed rather than pooled, so the
// lock can never leak to another pool user.
func (l *AdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil

	unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
	defer cancel()

	var unlocked bool
	if err := conn.QueryRow(unlockCtx, `SELECT pg_advisory_unlock($1)`, l.key).Scan(&unlocked); err != nil {
		if cerr := conn.Destroy(unlockCtx); cerr != nil {
			l.logger.Warn("close lock connection", "key", l.key, "error", cerr)
		}
		return fmt.Errorf("advisory unlock: %w", err)
	}
	conn.Release()

	if !unlocked {
		l.logger.Warn("advisory lock was not held at release", "key", l.key)
	}
	l.logger.Info("advisory lock released", "key", l.key)
	return nil
}
