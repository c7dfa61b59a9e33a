package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/flowsync/pkg/errors"
	"github.com/matzehuels/flowsync/pkg/flow"
)

// backendsUnderTest returns the stores exercised by the shared contract
// tests. Redis and MongoDB need live servers and are covered by their
// clients' own suites.
func backendsUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, s := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			// Miss before write
			if _, found, err := s.Get(ctx, "k"); err != nil || found {
				t.Fatalf("Get on empty store: found=%v err=%v", found, err)
			}

			// Write then read
			if err := s.Set(ctx, "k", []byte("v1")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			data, found, err := s.Get(ctx, "k")
			if err != nil || !found || string(data) != "v1" {
				t.Fatalf("Get after Set: data=%q found=%v err=%v", data, found, err)
			}

			// Overwrite
			if err := s.Set(ctx, "k", []byte("v2")); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			data, _, _ = s.Get(ctx, "k")
			if string(data) != "v2" {
				t.Fatalf("overwrite not visible, got %q", data)
			}

			// Delete, idempotent
			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete of missing key must not error: %v", err)
			}
			if _, found, _ := s.Get(ctx, "k"); found {
				t.Fatalf("key survived deletion")
			}
		})
	}
}

func TestMemoryStoreCopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	original := []byte("abc")
	if err := s.Set(ctx, "k", original); err != nil {
		t.Fatalf("Set: %v", err)
	}
	original[0] = 'X'

	data, _, _ := s.Get(ctx, "k")
	if string(data) != "abc" {
		t.Fatalf("store must not alias caller buffers, got %q", data)
	}

	data[0] = 'Y'
	data2, _, _ := s.Get(ctx, "k")
	if string(data2) != "abc" {
		t.Fatalf("returned buffers must not alias stored data, got %q", data2)
	}
}

func TestScopedStoreIsolation(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	a := NewScopedStore(base, "a:")
	b := NewScopedStore(base, "b:")

	if err := a.Set(ctx, "k", []byte("from-a")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, found, _ := b.Get(ctx, "k"); found {
		t.Fatalf("scopes must not see each other's keys")
	}
	if data, found, _ := a.Get(ctx, "k"); !found || string(data) != "from-a" {
		t.Fatalf("scoped read failed: %q found=%v", data, found)
	}
	if b.Backend() != BackendMemory {
		t.Fatalf("scoped store must report the inner backend, got %q", b.Backend())
	}
}

func TestHash(t *testing.T) {
	h := Hash([]byte("flowchart TB"))
	if len(h) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h))
	}
	if h != Hash([]byte("flowchart TB")) {
		t.Fatalf("hash must be deterministic")
	}
	if h == Hash([]byte("flowchart LR")) {
		t.Fatalf("distinct inputs must not collide")
	}
}

func TestDraftRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	d := NewDraft("flowchart TB\n    A --> B\n", map[string]flow.Point{"A": {X: 10, Y: 20}})
	if err := SaveDraft(ctx, s, d); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	loaded, err := LoadDraft(ctx, s, d.ID)
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	if loaded.Code != d.Code {
		t.Fatalf("code mismatch: %q != %q", loaded.Code, d.Code)
	}
	if pt := loaded.Positions["A"]; pt.X != 10 || pt.Y != 20 {
		t.Fatalf("positions lost: %+v", loaded.Positions)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Fatalf("UpdatedAt not set")
	}
}

func TestLoadDraftErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := LoadDraft(ctx, s, "not-a-uuid"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for malformed id, got %v", err)
	}
	if _, err := LoadDraft(ctx, s, uuid.NewString()); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND for missing draft, got %v", err)
	}
}

func TestDeleteDraft(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	d := NewDraft("flowchart TB\n    A\n", nil)
	if err := SaveDraft(ctx, s, d); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if err := DeleteDraft(ctx, s, d.ID); err != nil {
		t.Fatalf("DeleteDraft: %v", err)
	}
	if _, err := LoadDraft(ctx, s, d.ID); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("draft survived deletion: %v", err)
	}
	// Idempotent
	if err := DeleteDraft(ctx, s, d.ID); err != nil {
		t.Fatalf("deleting a missing draft must not error: %v", err)
	}
}
