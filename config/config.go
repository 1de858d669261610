// Package config loads the task manager configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DevJWTSecret is used when JWT_SECRET is not set. Never rely on it outside development.
const DevJWTSecret = "task-manager-dev-secret-change-me"

// Config holds all runtime settings.
type Config struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT" env-default:"3000"`
	DBPath          string        `yaml:"db_path" env:"DB_PATH" env-default:"task_manager.db"`
	DBDebug         bool          `yaml:"db_debug" env:"DB_DEBUG" env-default:"false"`
	RedisAddr       string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	CachePrefix     string        `yaml:"cache_prefix" env:"CACHE_PREFIX" env-default:"task-manager:"`
	CacheTTL        time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"5m"`
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"24h"`
	SessionTTL      time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
	LoginRateLimit  int           `yaml:"login_rate_limit" env:"LOGIN_RATE_LIMIT" env-default:"10"`
	LoginRateWindow time.Duration `yaml:"login_rate_window" env:"LOGIN_RATE_WINDOW" env-default:"1m"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`

	// SecureCookies marks the session and access token cookies Secure.
	// Turn it on whenever the app is served over HTTPS.
	SecureCookies bool `yaml:"secure_cookies" env:"SECURE_COOKIES" env-default:"false"`

	// SuperuserUsername and SuperuserPassword bootstrap an administrator
	// account at startup when both are set.
	SuperuserUsername string `yaml:"admin_username" env:"ADMIN_USERNAME"`
	SuperuserPassword string `yaml:"admin_password" env:"ADMIN_PASSWORD"`
}

// Load reads configuration from path when the file exists and from the
// environment otherwise. An empty path reads the environment only.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read env: %w", err)
		}
		return cfg.checked()
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return Config{}, fmt.Errorf("failed to read config %q: %w", path, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read env: %w", err)
		}
	}

	return cfg.checked()
}

// UsingDevSecret reports whether no JWT secret was configured.
func (c *Config) UsingDevSecret() bool {
	return c.JWTSecret == "" || c.JWTSecret == DevJWTSecret
}

// QuietLogs reports whether only errors should be logged.
func (c *Config) QuietLogs() bool {
	return strings.EqualFold(c.LogLevel, "error")
}

func (c Config) checked() (Config, error) {
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if c.LoginRateLimit <= 0 {
		return fmt.Errorf("invalid LOGIN_RATE_LIMIT: %d", c.LoginRateLimit)
	}
	if c.JWTSecret == "" {
		c.JWTSecret = DevJWTSecret
	}
	return nil
}
