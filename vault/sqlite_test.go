package vault

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")
	clock := newFakeClock()
	ctx := context.Background()

	store, err := OpenSQLiteStore(path, clock.Now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Set(ctx, "authToken", "v1", CookieOptions{ExpiryDays: 7}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "authToken", "v2", CookieOptions{ExpiryDays: 7}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLiteStore(path, clock.Now)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "authToken")
	if err != nil || !ok || got != "v2" {
		t.Fatalf("get after reopen: got=%q ok=%v err=%v", got, ok, err)
	}
}

func TestSQLiteStoreLazyExpiry(t *testing.T) {
	clock := newFakeClock()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "tokens.db"), clock.Now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	_ = store.Set(ctx, "k", "v", CookieOptions{ExpiryDays: 1})
	clock.Advance(24 * time.Hour)

	if _, ok, err := store.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected expired cookie to read as absent, ok=%v err=%v", ok, err)
	}
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove after lazy eviction: %v", err)
	}
}

func TestOpenSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := OpenSQLiteStore("", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}
