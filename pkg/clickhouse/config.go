package clickhouse

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// ClientConfig mirrors the clickhouse section of the app config.
type ClientConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	UseHTTP      bool
	AsyncInsert  bool
	WaitForAsync bool
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	MaxExecTime  time.Duration
	BatchSize    int // rows per INSERT

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingAttempts    int
	PingDelay       time.Duration // grows linearly per attempt
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.Port <= 0 {
		c.Port = 9000
	}
	if c.Database == "" {
		c.Database = "default"
	}
	if c.User == "" {
		c.User = "default"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 2000
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.PingAttempts <= 0 {
		c.PingAttempts = 3
	}
	if c.PingDelay <= 0 {
		c.PingDelay = time.Second
	}
	return c
}

// BuildDSN renders the clickhouse-go connection string. Credentials are
// URL-escaped.
func BuildDSN(cfg ClientConfig) string {
	u := url.URL{
		Scheme: "clickhouse",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.UseHTTP {
		u.Scheme = "clickhouse+http"
	}
	q := url.Values{}
	if cfg.DialTimeout > 0 {
		q.Set("dial_timeout", cfg.DialTimeout.String())
	}
	if cfg.ReadTimeout > 0 {
		q.Set("read_timeout", cfg.ReadTimeout.String())
	}
	if cfg.MaxExecTime > 0 {
		q.Set("max_execution_time", fmt.Sprint(int(cfg.MaxExecTime.Seconds())))
	}
	if cfg.AsyncInsert {
		q.Set("async_insert", "1")
		if cfg.WaitForAsync {
			q.Set("wait_for_async_insert", "1")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
