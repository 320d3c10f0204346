package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Environment represents the application environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
	Test        Environment = "test"
)

// ParseEnvironment maps APP_ENV spellings onto an Environment, defaulting to development
func ParseEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	case "test", "testing":
		return Test
	default:
		return Development
	}
}

// Config is the complete process configuration
type Config struct {
	AppEnv    string `env:"APP_ENV" env-default:"development"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	TwoFactor TwoFactorConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
}

// Environment returns the parsed APP_ENV value
func (c Config) Environment() Environment {
	return ParseEnvironment(c.AppEnv)
}

// SlogLevel returns the configured log level, falling back to info
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks every section, skipping backends that are not selected
func (c Config) Validate() error {
	return Validate(
		c.TwoFactor.validate,
		func() ValidationErrors {
			if !c.TwoFactor.UsesPostgres() {
				return nil
			}
			return c.Database.validate()
		},
		func() ValidationErrors {
			if !c.TwoFactor.UsesRedis() {
				return nil
			}
			return c.Redis.validate()
		},
		c.Email.validate,
		c.RateLimit.validate,
	)
}

// LoadEnvFile loads variables from a .env file if it exists. Variables
// already present in the environment win.
func LoadEnvFile(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)", "path", path)
		return
	}
	slog.Info("Loading configuration from .env file", "path", path)
	if err := godotenv.Load(path); err != nil {
		slog.Warn("Failed to load .env file", "path", path, "error", err)
	}
}

// Load reads the configuration from the environment and validates it
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
