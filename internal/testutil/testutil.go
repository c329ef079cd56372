// Package testutil provides shared test helpers for setting up temporary databases.
package testutil

import (
	"os"
	"testing"

	"github.com/radrebel/fedscout/internal/cache"
	"github.com/radrebel/fedscout/internal/jobindex"
	"github.com/radrebel/fedscout/internal/store"
)

// TempFile creates a temporary file path that is automatically cleaned up.
func TempFile(t *testing.T, pattern string) string {
	t.Helper()
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

// TestStore creates a temporary entity database that is automatically cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(TempFile(t, "fedscout-test-store-*.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestIndex creates a temporary job index that is automatically cleaned up.
func TestIndex(t *testing.T) *jobindex.DB {
	t.Helper()
	idx, err := jobindex.Open(TempFile(t, "fedscout-test-index-*.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

// TestCache creates a temporary offline cache that is automatically cleaned up.
func TestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(TempFile(t, "fedscout-test-cache-*.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}
