package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	ASIN  string  `json:"asin"`
	Price float64 `json:"price"`
}

func newTestMemory(t *testing.T, opts ...MemoryOption) (*MemoryCache, *time.Time) {
	t.Helper()
	mc := NewMemoryCache(opts...)
	t.Cleanup(func() { mc.Close() })
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	return mc, &now
}

func TestMemoryCache_RoundTripStruct(t *testing.T) {
	mc, _ := newTestMemory(t)
	ctx := context.Background()
	if err := mc.Set(ctx, "a", payload{ASIN: "B000000001", Price: 9.99}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := mc.Get(ctx, "a", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ASIN != "B000000001" || got.Price != 9.99 {
		t.Fatalf("got %+v", got)
	}
	var s string
	_ = mc.Set(ctx, "s", "plain", 0)
	if err := mc.Get(ctx, "s", &s); err != nil || s != "plain" {
		t.Fatalf("string get = %q %v", s, err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc, now := newTestMemory(t)
	ctx := context.Background()
	_ = mc.Set(ctx, "k", "v", time.Second)
	*now = now.Add(2 * time.Second)
	var s string
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatal("expired key reported as existing")
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mc, now := newTestMemory(t, WithMemoryMaxSize(2))
	ctx := context.Background()
	_ = mc.Set(ctx, "a", "1", 0)
	*now = now.Add(time.Second)
	_ = mc.Set(ctx, "b", "2", 0)
	*now = now.Add(time.Second)
	var s string
	_ = mc.Get(ctx, "a", &s) // a is now fresher than b
	*now = now.Add(time.Second)
	_ = mc.Set(ctx, "c", "3", 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatal("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatal("a or c missing")
	}
	if mc.Len() != 2 {
		t.Fatalf("len = %d", mc.Len())
	}
}

func TestMemoryCache_Lock(t *testing.T) {
	mc, now := newTestMemory(t)
	ctx := context.Background()
	if ok, _ := mc.TryLock(ctx, "rescan:com/B000000001", time.Minute); !ok {
		t.Fatal("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "rescan:com/B000000001", time.Minute); ok {
		t.Fatal("second lock should fail")
	}
	*now = now.Add(2 * time.Minute)
	if ok, _ := mc.TryLock(ctx, "rescan:com/B000000001", time.Minute); !ok {
		t.Fatal("lock should be free after ttl")
	}
	_ = mc.Unlock(ctx, "rescan:com/B000000001")
	if ok, _ := mc.TryLock(ctx, "rescan:com/B000000001", time.Minute); !ok {
		t.Fatal("lock should be free after unlock")
	}
}

func TestGenerateKeyWithParamsMemory(t *testing.T) {
	if got := GenerateKeyWithParams("analysis", "com", "B000000001", 12.5); got != "analysis:com:B000000001:12.5" {
		t.Fatalf("key = %q", got)
	}
	if len(HashKey("x")) != 32 {
		t.Fatal("md5 hex should be 32 chars")
	}
}
