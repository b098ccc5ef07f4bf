package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

// Config is the process-wide configuration tree, populated from
// GATEWAY_-prefixed environment variables with "__" as the nesting
// separator (e.g. GATEWAY_DATABASE__HOST).
type Config struct {
	Primary    Primary          `koanf:"primary"`
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	NATS       NATSConfig       `koanf:"nats"`
	Risk       RiskConfig       `koanf:"risk"`
	Liquidity  LiquidityConfig  `koanf:"liquidity"`
	Settlement SettlementConfig `koanf:"settlement"`
	Retry      RetryConfig      `koanf:"retry"`
	Logger     LoggerConfig     `koanf:"logger"`
	Worker     WorkerConfig     `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig backs the Cache/KV adapter: idempotency records, the quote
// response cache, and the risk mode/metrics mirror.
type RedisConfig struct {
	Addr         string        `koanf:"addr" validate:"required"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size" validate:"required"`
	DialTimeout  time.Duration `koanf:"dial_timeout" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
}

// NATSConfig backs the JetStream Event Bus adapter. StreamName/Subjects are
// the stream this process ensures exists before publishing; consumers that
// read the same stream are configured independently.
type NATSConfig struct {
	URL            string        `koanf:"url" validate:"required"`
	StreamName     string        `koanf:"stream_name" validate:"required"`
	Subjects       []string      `koanf:"subjects" validate:"required"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"required"`
	PublishTimeout time.Duration `koanf:"publish_timeout" validate:"required"`
}

// RiskConfig carries the Risk Controller's per-factor scoring thresholds
// and the default mode used when no active risk_config row exists yet.
type RiskConfig struct {
	DefaultMode           string        `koanf:"default_mode" validate:"required"`
	HighValueThresholdUSD float64       `koanf:"high_value_threshold_usd" validate:"required"`
	HighFrequencyCount    int           `koanf:"high_frequency_count" validate:"required"`
	HighFrequencyWindow   time.Duration `koanf:"high_frequency_window" validate:"required"`
	ModeCacheTTL          time.Duration `koanf:"mode_cache_ttl" validate:"required"`
	MetricsCacheTTL       time.Duration `koanf:"metrics_cache_ttl" validate:"required"`
}

// LiquidityConfig bounds the Liquidity Coordinator's provider fan-out.
type LiquidityConfig struct {
	DispatchBudget time.Duration `koanf:"dispatch_budget" validate:"required"`
	MaxSources     int           `koanf:"max_sources" validate:"required"`
	QuoteCacheTTL  time.Duration `koanf:"quote_cache_ttl" validate:"required"`
}

// SettlementConfig drives the settlement ticker's window cadence.
type SettlementConfig struct {
	TickInterval     time.Duration `koanf:"tick_interval" validate:"required"`
	IntradayLookback time.Duration `koanf:"intraday_lookback" validate:"required"`
	AmountTolerance  float64       `koanf:"amount_tolerance"`
}

type RetryConfig struct {
	BaseDelay  int32 `koanf:"base_delay"`
	MaxRetries int32 `koanf:"max_retries"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
}

// LoadConfig reads GATEWAY_-prefixed environment variables (with a local
// .env autoloaded if present) into Config and validates required fields.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "GATEWAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	cfg := &Config{}

	if err := k.Unmarshal("", cfg); err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return cfg, nil
}
