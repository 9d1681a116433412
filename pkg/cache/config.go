package cache

import (
	"fmt"
	"time"
)

// RedisConfig is the redis section of the app config.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	Prefix       string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
}

func (c RedisConfig) addr() string {
	host, port := c.Host, c.Port
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", host, port)
}

type MemoryOption func(*MemoryConfig)

type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

// WithMemoryMaxSize bounds the number of entries before LRU eviction.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		c.MaxSize = size
	}
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		c.CleanupInterval = interval
	}
}
