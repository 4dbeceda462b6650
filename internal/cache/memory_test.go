package cache

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/pkg/audio"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := NewMemoryCache(1024)

	key := "en/c1"
	value := []byte("RIFF-clip")

	if err := cache.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if string(got) != string(value) {
		t.Errorf("Retrieved value mismatch: got %s, want %s", got, value)
	}
	if !cache.Contains(key) {
		t.Error("Contains returned false for existing key")
	}
	if cache.Size() != int64(len(value)) {
		t.Errorf("Size mismatch: got %d, want %d", cache.Size(), len(value))
	}

	if err := cache.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if cache.Contains(key) {
		t.Error("Key still exists after delete")
	}
	if cache.Size() != 0 {
		t.Errorf("Size not zero after delete: %d", cache.Size())
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	cache := NewMemoryCache(100)

	for i := 0; i < 5; i++ {
		if err := cache.Put(fmt.Sprintf("en/c%d", i), make([]byte, 20)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	// Touch c0 and c1 so c2 and c3 are the oldest.
	cache.Get("en/c0")
	cache.Get("en/c1")

	if err := cache.Put("en/new", make([]byte, 30)); err != nil {
		t.Fatalf("Put failed for new key: %v", err)
	}

	for _, key := range []string{"en/c0", "en/c1", "en/c4", "en/new"} {
		if !cache.Contains(key) {
			t.Errorf("%s should still be cached", key)
		}
	}
	for _, key := range []string{"en/c2", "en/c3"} {
		if cache.Contains(key) {
			t.Errorf("%s should have been evicted", key)
		}
	}

	stats := cache.Stats()
	if stats.Evictions != 2 {
		t.Errorf("Evictions = %d, want 2", stats.Evictions)
	}
	if stats.Size > 100 {
		t.Errorf("Size %d exceeds capacity", stats.Size)
	}
}

func TestMemoryCache_ReplaceUpdatesSize(t *testing.T) {
	cache := NewMemoryCache(100)

	_ = cache.Put("en/c1", make([]byte, 40))
	_ = cache.Put("en/c1", make([]byte, 10))

	if cache.Size() != 10 {
		t.Errorf("Size = %d, want 10", cache.Size())
	}
	if got := cache.Keys(); !reflect.DeepEqual(got, []string{"en/c1"}) {
		t.Errorf("Keys = %v", got)
	}
}

func TestMemoryCache_ItemTooLarge(t *testing.T) {
	cache := NewMemoryCache(10)

	if err := cache.Put("en/big", make([]byte, 11)); err != ErrItemTooLarge {
		t.Errorf("Put error = %v, want ErrItemTooLarge", err)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := NewMemoryCache(1024)
	_ = cache.Put("en/c1", []byte("a"))

	cache.Get("en/c1")
	cache.Get("en/c1")
	cache.Get("en/missing")

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d, want 2/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Errorf("HitRate = %f, want ~0.667", stats.HitRate)
	}
	if stats.ItemCount != 1 {
		t.Errorf("ItemCount = %d, want 1", stats.ItemCount)
	}
}

func TestMemoryCache_Prune(t *testing.T) {
	cache := NewMemoryCache(1024)
	_ = cache.Put("en/c1", []byte("a"))
	time.Sleep(5 * time.Millisecond)

	if n := cache.Prune(time.Hour); n != 0 {
		t.Errorf("Prune(1h) removed %d, want 0", n)
	}
	if n := cache.Prune(time.Millisecond); n != 1 {
		t.Errorf("Prune(1ms) removed %d, want 1", n)
	}
}

func TestKey(t *testing.T) {
	ref := audio.ClipReference{ClipID: "c12", LanguageCode: "es-US"}

	key := Key(ref)
	if key != "es-US/c12" {
		t.Errorf("Key = %s, want es-US/c12", key)
	}
	if got, ok := ParseKey(key); !ok || got != ref {
		t.Errorf("ParseKey(%s) = %v, %v", key, got, ok)
	}
	for _, bad := range []string{"", "en", "/c1", "en/"} {
		if _, ok := ParseKey(bad); ok {
			t.Errorf("ParseKey(%q) should fail", bad)
		}
	}
}
