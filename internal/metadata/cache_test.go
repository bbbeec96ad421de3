package metadata

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	cache := NewMemoryCache(CacheConfig{TTL: time.Minute, MaxItems: 100})
	ctx := context.Background()

	cache.Set(ctx, "key1", []byte("value1"))

	val, ok := cache.Get(ctx, "key1")
	if !ok {
		t.Fatal("expected key1 to exist")
	}
	if string(val) != "value1" {
		t.Errorf("Get() = %q, want %q", val, "value1")
	}

	if _, ok := cache.Get(ctx, "missing"); ok {
		t.Error("expected missing key to be absent")
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache(CacheConfig{TTL: time.Minute, MaxItems: 100})
	now := time.Now()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	cache.Set(ctx, "key1", []byte("v"))
	if _, ok := cache.Get(ctx, "key1"); !ok {
		t.Fatal("expected key1 to exist immediately")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := cache.Get(ctx, "key1"); ok {
		t.Error("expected key1 to be expired")
	}

	if n := cache.Prune(); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
}

func TestMemoryCache_EvictsWhenFull(t *testing.T) {
	cache := NewMemoryCache(CacheConfig{TTL: time.Minute, MaxItems: 10})
	now := time.Now()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		now = now.Add(time.Second)
		cache.Set(ctx, fmt.Sprintf("key%d", i), []byte("v"))
	}
	now = now.Add(time.Second)
	cache.Set(ctx, "key10", []byte("v"))

	if cache.Len() != 10 {
		t.Errorf("Len() = %d, want 10", cache.Len())
	}
	if _, ok := cache.Get(ctx, "key0"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := cache.Get(ctx, "key10"); !ok {
		t.Error("expected newest entry to be present")
	}
}

func TestMemoryCache_OverwriteDoesNotEvict(t *testing.T) {
	cache := NewMemoryCache(CacheConfig{TTL: time.Minute, MaxItems: 2})
	ctx := context.Background()

	cache.Set(ctx, "a", []byte("1"))
	cache.Set(ctx, "b", []byte("2"))
	cache.Set(ctx, "a", []byte("3"))

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
	if v, _ := cache.Get(ctx, "a"); string(v) != "3" {
		t.Errorf("Get(a) = %q, want %q", v, "3")
	}
}
