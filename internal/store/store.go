package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// Keys used by the client state.
const (
	KeyToken = "app-integration"
	KeyTheme = "theme-preference"
)

// Entry is a persisted key/value pair.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// KVStore persists small pieces of client state between runs.
type KVStore interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or replaces the value for key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all entries ordered by key.
	List(ctx context.Context) ([]Entry, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	KVStore

	// Close closes the underlying database connection.
	Close() error
}
