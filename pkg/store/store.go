// Package store persists diagram drafts across editing sessions.
//
// A Store is a small byte-oriented keyspace with pluggable backends:
// in-memory (tests), files (CLI), Redis and MongoDB (shared setups). The
// draft layer on top serializes diagram code together with its position
// side-table, so a reopened draft restores both the text and the layout
// the user left behind.
package store

import (
	"context"
	"errors"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a requested entry does not exist.
	ErrNotFound = errors.New("not found")
)

// Backend names, reported through observability hooks and configuration.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Store is the persistence abstraction for drafts.
//
// Get returns (nil, false, nil) on a miss; errors are reserved for
// backend failures. Entries do not expire: a draft stays until it is
// deleted.
type Store interface {
	// Get retrieves the value for key. found is false on a miss.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)

	// Set stores the value for key, overwriting any previous value.
	Set(ctx context.Context, key string, data []byte) error

	// Delete removes the value for key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Named is implemented by stores that report their backend name.
type Named interface {
	Backend() string
}

// BackendName returns the backend identifier of s, or "unknown".
func BackendName(s Store) string {
	if n, ok := s.(Named); ok {
		return n.Backend()
	}
	return "unknown"
}
