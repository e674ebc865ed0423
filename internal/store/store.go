package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store is durable key/value storage for client state that must survive
// process restarts. Only the session token is stored today.
type Store interface {
	// GetItem returns the value under key and whether it was present.
	GetItem(ctx context.Context, key string) (string, bool, error)
	// SetItem writes value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error

	Close() error
}
