package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName         = "CardAdmin"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultUpstreamTimeout = 30 * time.Second
	defaultSyncSchedule    = "@every 15m"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	upstreamTimeoutEnvVar  = "CARD_API_TIMEOUT_SECONDS"
)

// MarginDefaults holds the environment-level fallback percentages used when a
// margin key has no stored value.
type MarginDefaults struct {
	Default     decimal.Decimal
	Min         decimal.Decimal
	Max         decimal.Decimal
	Funding     decimal.Decimal
	Transaction decimal.Decimal
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	UpstreamBaseURL string
	UpstreamAPIKey  string
	UpstreamSecret  string
	UpstreamTimeout time.Duration
	SyncSchedule    string
	Margins         MarginDefaults
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		UpstreamBaseURL: os.Getenv("CARD_API_BASE_URL"),
		UpstreamAPIKey:  os.Getenv("CARD_API_KEY"),
		UpstreamSecret:  os.Getenv("CARD_API_SECRET"),
		UpstreamTimeout: defaultUpstreamTimeout,
		SyncSchedule:    getEnv("SYNC_SCHEDULE", defaultSyncSchedule),
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	if v := os.Getenv(upstreamTimeoutEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", upstreamTimeoutEnvVar, err)
		}
		cfg.UpstreamTimeout = time.Duration(seconds) * time.Second
	}

	margins, err := loadMarginDefaults()
	if err != nil {
		return Config{}, err
	}
	cfg.Margins = margins

	if cfg.UpstreamBaseURL == "" && !isDev(cfg.AppEnv) {
		return Config{}, fmt.Errorf("CARD_API_BASE_URL must be set")
	}

	return cfg, nil
}

func loadMarginDefaults() (MarginDefaults, error) {
	defaults := MarginDefaults{
		Default:     decimal.RequireFromString("2.5"),
		Min:         decimal.RequireFromString("0.5"),
		Max:         decimal.RequireFromString("10.0"),
		Funding:     decimal.RequireFromString("2.5"),
		Transaction: decimal.RequireFromString("1.5"),
	}

	fields := []struct {
		envVar string
		target *decimal.Decimal
	}{
		{"DEFAULT_PROFIT_MARGIN", &defaults.Default},
		{"MIN_PROFIT_MARGIN", &defaults.Min},
		{"MAX_PROFIT_MARGIN", &defaults.Max},
		{"FUNDING_PROFIT_MARGIN", &defaults.Funding},
		{"TRANSACTION_PROFIT_MARGIN", &defaults.Transaction},
	}

	for _, f := range fields {
		v := os.Getenv(f.envVar)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return MarginDefaults{}, fmt.Errorf("invalid %s: %w", f.envVar, err)
		}
		*f.target = d
	}

	return defaults, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development environment, where the
// in-memory store and the static upstream client may substitute for real backends.
func (c Config) IsDev() bool {
	return isDev(c.AppEnv)
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
