// Package distlock provides the cross-process locks used for profile
// bootstrap and job ownership.
package distlock

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a non-blocking mutual exclusion primitive shared between
// processes. A single Lock value is not safe for concurrent use; create one
// per critical section.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Extender is implemented by locks whose ownership expires unless renewed.
type Extender interface {
	Extend(ctx context.Context, ttl time.Duration) error
}

// New returns a Redis lock when rdb is set and a Postgres advisory lock
// otherwise.
func New(rdb *redis.Client, db *sql.DB, key string, ttl time.Duration) Lock {
	if rdb != nil {
		return NewRedis(rdb, key, ttl)
	}
	return NewAdvisory(db, key)
}

// Factory binds New to fixed backends so callers only supply a key.
func Factory(rdb *redis.Client, db *sql.DB, ttl time.Duration) func(key string) Lock {
	return func(key string) Lock { return New(rdb, db, key, ttl) }
}
