package cache

import (
	"context"
	"time"
)

// LayeredCache reads through a bounded in-process L1 to a shared L2
// (Redis in production). Writes go to L2 first. Locks and Exists always
// consult L2 so they agree across instances.
type LayeredCache struct {
	local  *MemoryCache
	remote Service
	ttl    time.Duration
}

// NewLayeredCache keeps at most size entries locally, each for at most ttl.
func NewLayeredCache(remote Service, size int, ttl time.Duration) *LayeredCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LayeredCache{
		local:  NewMemoryCache(WithMemoryMaxSize(size), WithMemoryCleanup(ttl)),
		remote: remote,
		ttl:    ttl,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, value, lc.localTTL(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.local.Get(ctx, key, dest); err == nil {
		return nil
	}
	var raw []byte
	if err := lc.remote.Get(ctx, key, &raw); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, raw, lc.ttl)
	return decode(raw, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.remote.Exists(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.remote.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.remote.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.remote.Close()
}

func (lc *LayeredCache) localTTL(exp time.Duration) time.Duration {
	if exp <= 0 || exp > lc.ttl {
		return lc.ttl
	}
	return exp
}
