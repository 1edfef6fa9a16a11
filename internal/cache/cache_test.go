package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "translations.db")
	c, err := Open(path, 10, ttl)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCachePutThenGetHitsLRU(t *testing.T) {
	c := openTestCache(t, time.Hour)
	key := Key{Text: "hello", Src: "en", Tgt: "ru"}

	if err := c.Put(key, "привет"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := c.Get(Key{Text: "hello", Src: "EN", Tgt: "RU"})
	if !ok || got != "привет" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
}

func TestCacheGetMiss(t *testing.T) {
	c := openTestCache(t, time.Hour)
	if _, ok := c.Get(Key{Text: "nope", Src: "EN", Tgt: "RU"}); ok {
		t.Fatal("expected miss")
	}
}

func TestCachePersistsAcrossLRUEviction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.db")
	c, err := Open(path, 1, time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	k1 := Key{Text: "one", Src: "EN", Tgt: "RU"}
	k2 := Key{Text: "two", Src: "EN", Tgt: "RU"}

	if err := c.Put(k1, "один"); err != nil {
		t.Fatalf("Put k1: %v", err)
	}
	if err := c.Put(k2, "два"); err != nil {
		t.Fatalf("Put k2: %v", err)
	}

	// k1 was evicted from the size-1 LRU by k2, but should still be
	// retrievable (and re-promoted) from the persistent layer.
	got, ok := c.Get(k1)
	if !ok || got != "один" {
		t.Fatalf("Get k1 after LRU eviction = %q, %v", got, ok)
	}
}

func TestCacheExpiredEntryIsMissAndDeleted(t *testing.T) {
	// Capacity 1 so putting a second key evicts "stale" from the LRU,
	// forcing the Get below to fall through to the (expired) persistent row.
	path := filepath.Join(t.TempDir(), "translations.db")
	c, err := Open(path, 1, time.Millisecond)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	key := Key{Text: "stale", Src: "EN", Tgt: "RU"}
	if err := c.Put(key, "устаревшее"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(Key{Text: "fresh", Src: "EN", Tgt: "RU"}, "свежее"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Fatal("expected expired entry to be a miss")
	}
}

func TestCacheCleanupRemovesExpiredRows(t *testing.T) {
	c := openTestCache(t, time.Millisecond)
	if err := c.Put(Key{Text: "a", Src: "EN", Tgt: "RU"}, "а"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(Key{Text: "b", Src: "EN", Tgt: "RU"}, "б"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// created_at is stored in whole seconds, so the rows only count as older
	// than the cutoff once the clock has moved into a later second.
	time.Sleep(1100 * time.Millisecond)

	n, err := c.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 2 {
		t.Fatalf("Cleanup removed %d rows, want 2", n)
	}
}
