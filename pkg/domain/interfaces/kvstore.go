package interfaces

import "context"

// KVStore is an ordered key/value engine. Implementations must be safe for concurrent use.
type KVStore interface {
	// Get returns the value of key, or an error wrapping ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan calls fn for every key starting with prefix in ascending key order.
	// Returning an error from fn stops the scan and is returned as is.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error

	Close() error
}
