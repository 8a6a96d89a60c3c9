package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
)

// AdvisoryLock uses pg_try_advisory_lock. The lock is session scoped, so it
// is dropped with the connection if the process dies.
//
// database/sql hands out pooled connections, so Acquire and Release pin a
// single *sql.Conn for the lifetime of the lock.
type AdvisoryLock struct {
	db   *sql.DB
	id   int64
	conn *sql.Conn
}

// NewAdvisory derives a stable 64-bit lock id from key.
func NewAdvisory(db *sql.DB, key string) *AdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(keyPrefix + key))
	return &AdvisoryLock{db: db, id: int64(h.Sum64())}
}

func (l *AdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.id).Scan(&ok); err != nil {
		conn.Close()
		return false, err
	}
	if !ok {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *AdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.id)
	return err
}
