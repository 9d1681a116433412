package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLock deletes KEYS[1] only while it still holds our token, so an
// expired lock re-acquired by another instance is left alone.
var releaseLock = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisCache implements Service on Redis. Every key is namespaced by the
// configured prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
	tokens sync.Map // lock key -> token
}

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "impulse"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.addr(), err)
	}
	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

// Client exposes the connection pool for the work queue.
func (c *RedisCache) Client() *redis.Client { return c.client }

func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return decode(data, dest)
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Unlink(ctx, c.keys(keys)...).Err()
}

func (c *RedisCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	n, err := c.client.Exists(ctx, c.keys(keys)...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, c.key(key), token, ttl).Result()
	if err != nil || !ok {
		return false, err
	}
	c.tokens.Store(key, token)
	return true, nil
}

// Unlock releases a lock taken by this instance. Unlocking a key it does
// not hold is a no-op.
func (c *RedisCache) Unlock(ctx context.Context, key string) error {
	token, ok := c.tokens.LoadAndDelete(key)
	if !ok {
		return nil
	}
	return releaseLock.Run(ctx, c.client, []string{c.key(key)}, token).Err()
}

func (c *RedisCache) key(k string) string { return c.prefix + ":" + k }

func (c *RedisCache) keys(ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = c.key(k)
	}
	return out
}

// encode stores strings and byte slices raw and everything else as JSON.
func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("cache encode: %w", err)
	}
	return b, nil
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}
