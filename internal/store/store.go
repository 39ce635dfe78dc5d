// Package store provides persisted key/value storage for client session state.
package store

import "context"

// KV defines the interface for persisted client-side key/value storage.
type KV interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set creates or replaces the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Ping verifies storage availability.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
