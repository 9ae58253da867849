package storage

import "context"

// Store is the durable key-value capability behind the alert subsystem.
// Implementations must treat a missing key as (nil, false, nil), not an error.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}
