package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ImpulseSaver/internal/services/analytics"
	"ImpulseSaver/pkg/logger"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8001"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Logger       logger.Config `yaml:"logger"`
	LogCollector struct {
		Enabled         bool          `yaml:"enabled"`
		Topic           string        `yaml:"topic" default:"impulse_logs"`
		Interval        time.Duration `yaml:"interval" default:"30s"`
		Threshold       int           `yaml:"threshold" default:"100"`
		IncludeWarnings bool          `yaml:"include_warnings"`
	} `yaml:"log_collector"`
	API struct {
		AnalyzeTimeout     time.Duration `yaml:"analyze_timeout" default:"10s"`
		HistoryDays        int           `yaml:"history_days" default:"365"`
		CacheTTL           time.Duration `yaml:"cache_ttl" default:"10m"`
		AffiliateTag       string        `yaml:"affiliate_tag"`
		DefaultMarketplace string        `yaml:"default_marketplace" default:"com"`
		RateLimit          struct {
			Capacity     float64 `yaml:"capacity" default:"10"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"0.5"`
		} `yaml:"rate_limit"`
	} `yaml:"api"`
	Engine analytics.Thresholds `yaml:"engine"`
	Stream struct {
		PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
		SendBuffer   int           `yaml:"send_buffer" default:"64"`
	} `yaml:"stream"`
	Pipeline struct {
		MaxRPS     int `yaml:"max_rps" default:"5"`
		BufferSize int `yaml:"buffer_size" default:"1000"`
	} `yaml:"pipeline"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Topics       struct {
			Analyses     string `yaml:"analyses" default:"analyses"`
			PriceHistory string `yaml:"price_history" default:"price_history"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"impulsesaver"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"price_history_dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"impulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		BatchSize        int           `yaml:"batch_size" default:"2000"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN          string        `yaml:"dsn"`
		PingAttempts int           `yaml:"ping_attempts" default:"10"`
		PingDelay    time.Duration `yaml:"ping_delay" default:"2s"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path" default:"data/impulse.db"`
	} `yaml:"sqlite"`
	Redis struct {
		Enabled    bool          `yaml:"enabled"`
		Host       string        `yaml:"host" default:"localhost"`
		Port       int           `yaml:"port" default:"6379"`
		Password   string        `yaml:"password"`
		DB         int           `yaml:"db"`
		Prefix     string        `yaml:"prefix" default:"impulse"`
		MemorySize int           `yaml:"memory_size" default:"1000"`
		MemoryTTL  time.Duration `yaml:"memory_ttl" default:"1m"`
	} `yaml:"redis"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"2"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		MaxDelay   time.Duration `yaml:"max_delay" default:"10m"`
	} `yaml:"queue"`
	Schedule struct {
		Enabled        bool          `yaml:"enabled" default:"true"`
		RescanCron     string        `yaml:"rescan_cron" default:"0 0 */6 * * *"`
		RescanLookback time.Duration `yaml:"rescan_lookback" default:"24h"`
		RescanLimit    int           `yaml:"rescan_limit" default:"100"`
	} `yaml:"schedule"`
}

// Load applies struct defaults, then overlays the YAML file.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (when present) into the process environment, then
// loads the YAML file and lets environment variables override it.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := envInt("PORT"); v > 0 {
		c.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := os.Getenv("AFFILIATE_TAG"); v != "" {
		c.API.AffiliateTag = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLite.Path = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

func envInt(key string) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return n
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be 'json' or 'console', got '%s'", c.Logger.Format)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.LogCollector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log_collector requires kafka")
	}
	if c.Postgres.DSN == "" && c.SQLite.Path == "" {
		return fmt.Errorf("either postgres.dsn or sqlite.path is required")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue requires redis")
	}
	if c.Schedule.Enabled && strings.TrimSpace(c.Schedule.RescanCron) == "" {
		return fmt.Errorf("schedule.rescan_cron is required when the schedule is enabled")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine.%w", err)
	}
	return nil
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
