package store

import "context"

// ScopedStore wraps a Store with a key prefix for namespace isolation.
// This is useful when one backend holds drafts for several users or
// projects.
//
// Example usage:
//
//	// Per-user draft namespace on a shared Redis
//	userStore := NewScopedStore(redisStore, "user:abc123:")
type ScopedStore struct {
	inner  Store
	prefix string
}

// NewScopedStore creates a store whose keys all carry the prefix.
func NewScopedStore(inner Store, prefix string) *ScopedStore {
	return &ScopedStore{inner: inner, prefix: prefix}
}

// Get retrieves a value under the prefixed key.
func (s *ScopedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

// Set stores a value under the prefixed key.
func (s *ScopedStore) Set(ctx context.Context, key string, data []byte) error {
	return s.inner.Set(ctx, s.prefix+key, data)
}

// Delete removes the value under the prefixed key.
func (s *ScopedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close closes the underlying store.
func (s *ScopedStore) Close() error {
	return s.inner.Close()
}

// Backend reports the underlying backend name.
func (s *ScopedStore) Backend() string {
	return BackendName(s.inner)
}

// Ensure ScopedStore implements Store.
var _ Store = (*ScopedStore)(nil)
