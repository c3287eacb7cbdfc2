package main

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/agit8or1/passgate"
)

// serverConfig holds the daemon's environment configuration. Engine
// tunables not exposed here keep their passgate defaults.
type serverConfig struct {
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`

	SigningKey  string        `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTL  time.Duration `mapstructure:"SESSION_TTL"`
	JWTIssuer   string        `mapstructure:"JWT_ISSUER"`
	JWTAudience string        `mapstructure:"JWT_AUDIENCE"`
	TOTPIssuer  string        `mapstructure:"TOTP_ISSUER"`

	IPThrottle       bool          `mapstructure:"IP_THROTTLE"`
	MaxLoginAttempts int           `mapstructure:"MAX_LOGIN_ATTEMPTS"`
	LoginCooldown    time.Duration `mapstructure:"LOGIN_COOLDOWN"`
	ProductionMode   bool          `mapstructure:"PRODUCTION_MODE"`

	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
	MetricsLatency bool   `mapstructure:"METRICS_LATENCY"`
	MigrateOnStart bool   `mapstructure:"MIGRATE_ON_START"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
}

// loadConfig reads .env when present, then the environment. Env vars
// override .env values; a missing .env is not an error.
func loadConfig() (*serverConfig, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("SESSION_SIGNING_KEY", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("JWT_ISSUER", "passgate")
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("TOTP_ISSUER", "passgate")
	v.SetDefault("IP_THROTTLE", true)
	v.SetDefault("MAX_LOGIN_ATTEMPTS", 5)
	v.SetDefault("LOGIN_COOLDOWN", "15m")
	v.SetDefault("PRODUCTION_MODE", false)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_LATENCY", true)
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("LOG_LEVEL", "info")

	var cfg serverConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set")
	}
	if cfg.SigningKey == "" {
		return nil, errors.New("config: SESSION_SIGNING_KEY must be set")
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("config: SESSION_TTL must be a positive duration")
	}

	return &cfg, nil
}

// engineConfig maps the environment onto the engine configuration. Key
// length and the rest of the invariants are enforced by Config.Validate
// at build time.
func (c *serverConfig) engineConfig() passgate.Config {
	cfg := passgate.DefaultConfig()

	cfg.JWT.SigningKey = []byte(c.SigningKey)
	cfg.JWT.SessionTTL = c.SessionTTL
	cfg.JWT.Issuer = c.JWTIssuer
	cfg.JWT.Audience = c.JWTAudience

	cfg.TOTP.Issuer = c.TOTPIssuer

	cfg.Security.ProductionMode = c.ProductionMode
	cfg.Security.EnableIPThrottle = c.IPThrottle
	cfg.Security.MaxLoginAttempts = c.MaxLoginAttempts
	cfg.Security.LoginCooldownDuration = c.LoginCooldown

	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsLatency

	return cfg
}

// slogLevel maps LOG_LEVEL onto a slog level, defaulting to info for
// anything unrecognized.
func (c *serverConfig) slogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
