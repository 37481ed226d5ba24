package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeRow struct {
	val bool
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*bool) = r.val
	return nil
}

// fakeSessionConn fails queries whose context is already done, like pgx.
type fakeSessionConn struct {
	queryErr  error
	released  bool
	destroyed bool
}

func (c *fakeSessionConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if err := ctx.Err(); err != nil {
		return fakeRow{err: err}
	}
	if c.queryErr != nil {
		return fakeRow{err: c.queryErr}
	}
	return fakeRow{val: true}
}

func (c *fakeSessionConn) Release() { c.released = true }

func (c *fakeSessionConn) Destroy(context.Context) error {
	c.destroyed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdvisoryLockRelease(t *testing.T) {
	t.Run("unlocks with a cancelled caller context", func(t *testing.T) {
		conn := &fakeSessionConn{}
		l := &AdvisoryLock{key: 42, logger: discardLogger(), conn: conn}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := l.Release(ctx); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if !conn.released || conn.destroyed {
			t.Errorf("released = %v destroyed = %v, want pooled", conn.released, conn.destroyed)
		}
	})

	t.Run("failed unlock closes the connection", func(t *testing.T) {
		conn := &fakeSessionConn{queryErr: errors.New("conn busy")}
		l := &AdvisoryLock{key: 42, logger: discardLogger(), conn: conn}

		if err := l.Release(context.Background()); err == nil {
			t.Fatal("Release() error = nil")
		}
		if conn.released || !conn.destroyed {
			t.Errorf("released = %v destroyed = %v, want destroyed", conn.released, conn.destroyed)
		}
		if err := l.Release(context.Background()); err != nil {
			t.Errorf("second Release() error = %v", err)
		}
	})
}
