package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLayeredReadsThroughAndPromotes(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, 10, time.Minute)
	defer lc.Close()

	if err := remote.Set(ctx, "k", map[string]int{"score": 7}, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var got map[string]int
	if err := lc.Get(ctx, "k", &got); err != nil || got["score"] != 7 {
		t.Fatalf("get = %v %v", got, err)
	}
	// promoted into L1: survives removal from L2
	_ = remote.Delete(ctx, "k")
	got = nil
	if err := lc.Get(ctx, "k", &got); err != nil || got["score"] != 7 {
		t.Fatalf("l1 get = %v %v", got, err)
	}
}

func TestLayeredStringRoundTrip(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, 10, time.Minute)
	defer lc.Close()

	_ = remote.Set(ctx, "s", "plain", 0)
	var s string
	if err := lc.Get(ctx, "s", &s); err != nil || s != "plain" {
		t.Fatalf("first = %q %v", s, err)
	}
	s = ""
	if err := lc.Get(ctx, "s", &s); err != nil || s != "plain" {
		t.Fatalf("promoted = %q %v", s, err)
	}
}

func TestLayeredMissAndDelete(t *testing.T) {
	ctx := context.Background()
	lc := NewLayeredCache(NewMemoryCache(), 10, time.Minute)
	defer lc.Close()

	var v int
	if err := lc.Get(ctx, "none", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	_ = lc.Set(ctx, "n", 3, time.Hour)
	if ok, _ := lc.Exists(ctx, "n"); !ok {
		t.Fatal("expected exists")
	}
	_ = lc.Delete(ctx, "n")
	if err := lc.Get(ctx, "n", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestLayeredLocksUseRemote(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, 10, time.Minute)
	defer lc.Close()

	if ok, _ := lc.TryLock(ctx, "rescan", time.Minute); !ok {
		t.Fatal("first lock should succeed")
	}
	if ok, _ := remote.TryLock(ctx, "rescan", time.Minute); ok {
		t.Fatal("lock should be held in the remote layer")
	}
	_ = lc.Unlock(ctx, "rescan")
	if ok, _ := remote.TryLock(ctx, "rescan", time.Minute); !ok {
		t.Fatal("unlock should release remote lock")
	}
}

func TestGenerateKeyWithParams(t *testing.T) {
	if got := GenerateKeyWithParams("analysis", "com", "B000000001", 19.99); got != "analysis:com:B000000001:19.99" {
		t.Fatalf("key = %s", got)
	}
	if got := GenerateKeyWithParams("p"); got != "p" {
		t.Fatalf("key = %s", got)
	}
}
