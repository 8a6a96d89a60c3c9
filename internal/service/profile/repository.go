package profile

import "context"

// Repository defines the data access contract for sender profiles.
type Repository interface {
	// Settings returns every stored key/value of a profile. Returns
	// ErrNotFound if the profile does not exist.
	Settings(ctx context.Context, name string) (map[string]string, error)

	// SaveSettings upserts the given keys of a profile, creating the
	// profile if needed. Keys not present are left untouched.
	SaveSettings(ctx context.Context, name string, settings map[string]string) error

	// CreateIfAbsent stores a new profile with settings. It reports false
	// and changes nothing if the profile already exists.
	CreateIfAbsent(ctx context.Context, name string, settings map[string]string) (bool, error)

	// List returns profile names in alphabetical order.
	List(ctx context.Context) ([]string, error)
}

// Locker is a distributed mutex; internal/pkg/distlock satisfies it.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockFactory returns a lock for key.
type LockFactory func(key string) Locker
