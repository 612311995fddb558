// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store and cache driver names.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	CacheDriverRedis    = "redis"
	CacheDriverMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// StoreDriver selects the durable session store: "postgres" or "sqlite".
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// DatabaseURL is the Postgres DSN. Required when StoreDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SQLitePath is the database file used when StoreDriver is sqlite.
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	// CacheDriver selects the session cache and rate-limit counters backend: "redis" or "memory".
	CacheDriver   string `mapstructure:"CACHE_DRIVER"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	// CacheKeyPrefix prefixes session cache keys (default "rsess:").
	CacheKeyPrefix string `mapstructure:"CACHE_KEY_PREFIX"`

	// JWTSecret is the HS256 shared secret. When empty, JWTPrivateKey and JWTPublicKey are used.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey  string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`
	JWTAccessTTL  string `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// LoginMaxAttempts is the number of failed logins per identity or origin tolerated per window.
	LoginMaxAttempts int    `mapstructure:"RL_LOGIN_MAX_ATTEMPTS"`
	LoginWindow      string `mapstructure:"RL_LOGIN_WINDOW"`
	RateKeyPrefix    string `mapstructure:"RL_KEY_PREFIX"`

	// StoreTimeoutRaw bounds each unit of work against the durable store.
	StoreTimeoutRaw string `mapstructure:"STORE_TIMEOUT"`
	// CacheTimeoutRaw bounds each cache or limiter call; a timeout is treated as a miss.
	CacheTimeoutRaw string `mapstructure:"CACHE_TIMEOUT"`

	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// KafkaBrokers is a comma-separated list of brokers. When set, committed login events are published.
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Worker-only: months of login_audit partitions to keep, and the sweep interval.
	AuditRetentionMonths int    `mapstructure:"AUDIT_RETENTION_MONTHS"`
	WorkerInterval       string `mapstructure:"WORKER_INTERVAL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "auth.db")
	v.SetDefault("CACHE_DRIVER", CacheDriverRedis)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_KEY_PREFIX", "rsess:")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "auth-service")
	v.SetDefault("JWT_AUDIENCE", "movies-service")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "336h") // 14d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RL_LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("RL_LOGIN_WINDOW", "5m")
	v.SetDefault("RL_KEY_PREFIX", "rl:login:")
	v.SetDefault("STORE_TIMEOUT", "3s")
	v.SetDefault("CACHE_TIMEOUT", "200ms")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "auth-service")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "auth-login-events")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("AUDIT_RETENTION_MONTHS", 6)
	v.SetDefault("WORKER_INTERVAL", "1h")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverSQLite:
	default:
		return nil, errors.New("config: STORE_DRIVER must be postgres or sqlite")
	}
	if cfg.StoreDriver == StoreDriverSQLite && cfg.SQLitePath == "" {
		return nil, errors.New("config: SQLITE_PATH must be set when STORE_DRIVER=sqlite")
	}

	switch cfg.CacheDriver {
	case CacheDriverRedis, CacheDriverMemory:
	default:
		return nil, errors.New("config: CACHE_DRIVER must be redis or memory")
	}
	if cfg.CacheDriver == CacheDriverRedis && cfg.RedisAddr == "" {
		return nil, errors.New("config: REDIS_ADDR must be set when CACHE_DRIVER=redis")
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" && (strings.TrimSpace(cfg.JWTPrivateKey) == "" || strings.TrimSpace(cfg.JWTPublicKey) == "") {
		return nil, errors.New("config: JWT_SECRET or JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set")
	}
	if cfg.JWTIssuer == "" || cfg.JWTAudience == "" {
		return nil, errors.New("config: JWT_ISSUER and JWT_AUDIENCE must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.LoginMaxAttempts <= 0 {
		return nil, errors.New("config: RL_LOGIN_MAX_ATTEMPTS must be positive")
	}

	if cfg.AuditRetentionMonths < 1 {
		return nil, errors.New("config: AUDIT_RETENTION_MONTHS must be at least 1")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 336h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.JWTRefreshTTL, 336*time.Hour)
}

// LoginWindowDuration parses LoginWindow. Returns 5m if unset or invalid.
func (c *Config) LoginWindowDuration() time.Duration {
	return parseDuration(c.LoginWindow, 5*time.Minute)
}

// StoreTimeout parses StoreTimeoutRaw. Returns 3s if unset or invalid.
func (c *Config) StoreTimeout() time.Duration {
	return parseDuration(c.StoreTimeoutRaw, 3*time.Second)
}

// CacheTimeout parses CacheTimeoutRaw. Returns 200ms if unset or invalid.
func (c *Config) CacheTimeout() time.Duration {
	return parseDuration(c.CacheTimeoutRaw, 200*time.Millisecond)
}

// WorkerIntervalDuration parses WorkerInterval. Returns 1h if unset or invalid.
func (c *Config) WorkerIntervalDuration() time.Duration {
	return parseDuration(c.WorkerInterval, time.Hour)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables publishing of login events.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
