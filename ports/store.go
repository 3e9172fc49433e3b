package ports

import (
	"context"
	"time"
)

// Store is a time-bounded key-value store for challenges and authentication records.
// Get and Take return core.ErrNotFound for keys that were never written and for
// keys whose ttl elapsed; backend failures wrap core.ErrStoreUnavailable.
type Store interface {
	// Set replaces any value at key and restarts its expiry. A zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value by key
	Get(ctx context.Context, key string) ([]byte, error)

	// Take atomically retrieves and deletes a value
	Take(ctx context.Context, key string) ([]byte, error)

	Close() error
}
