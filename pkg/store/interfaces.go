package store

import (
	"context"
)

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// BlobStore is a key-scoped blob transport. Unlike StateStore it reports
// read failures so callers can tell "missing" from "unreachable".
type BlobStore interface {
	GetBlob(ctx context.Context, key string) (string, bool, error)
	SetBlob(ctx context.Context, key, val string) error
}

// Store composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	StateStore
	BlobStore

	// Close closes the store connection.
	Close() error
}
