package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "MerchantAuth"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultOTPTTL        = 90 * time.Second
	defaultSessionTTL    = 7 * 24 * time.Hour
	defaultIdemTTL       = 24 * time.Hour
	defaultBcryptCost    = 12
	defaultAuthRateLimit = 5

	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	otpTTLSecondsEnvVar    = "OTP_TTL_SECONDS"
	otpTTLDurEnvVar        = "OTP_TTL"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	SessionSecret  string
	SessionTTL     time.Duration
	OTPTTL         time.Duration
	BcryptCost     int
	AuthRateLimit  int
	IdempotencyTTL time.Duration
	ShutdownPeriod time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		SessionTTL:     defaultSessionTTL,
		OTPTTL:         defaultOTPTTL,
		BcryptCost:     defaultBcryptCost,
		AuthRateLimit:  defaultAuthRateLimit,
		IdempotencyTTL: defaultIdemTTL,
		ShutdownPeriod: defaultShutdownDelay,
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

	if v := os.Getenv(otpTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", otpTTLSecondsEnvVar, err)
		}
		cfg.OTPTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(otpTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", otpTTLDurEnvVar, err)
		}
		cfg.OTPTTL = d
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}

	if v := os.Getenv("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BCRYPT_COST: %w", err)
		}
		cfg.BcryptCost = cost
	}

	if v := os.Getenv("AUTH_RATE_LIMIT_PER_MIN"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTH_RATE_LIMIT_PER_MIN: %w", err)
		}
		cfg.AuthRateLimit = limit
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.SessionSecret == "" {
			return Config{}, fmt.Errorf("SESSION_SECRET must be set")
		}
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-only-session-secret"
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment, where the
// database and cache may be absent and in-memory fallbacks are used.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
