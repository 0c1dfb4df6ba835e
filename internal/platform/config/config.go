package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AuthModeJWT = "jwt"
	AuthModeDev = "dev"

	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the service configuration. Values come from an optional YAML
// file and are overridden by environment variables.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Auth struct {
		// jwt | dev
		Mode       string `yaml:"mode"`
		DevSubject string `yaml:"dev_subject"`
	} `yaml:"auth"`

	Storage struct {
		// memory | postgres | redis
		Backend     string `yaml:"backend"`
		DatabaseURL string `yaml:"database_url"`
		Redis       struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"storage"`

	Log struct {
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	Idempotency struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"idempotency"`

	JWT JWTConfig `yaml:"-"`
}

// Default returns a Config suitable for local development.
func Default() Config {
	var c Config
	c.Server.Port = "8080"
	c.Auth.Mode = AuthModeJWT
	c.Storage.Backend = BackendMemory
	c.Storage.Redis.Addr = "localhost:6379"
	c.Storage.Redis.Prefix = "warikan"
	c.Log.Env = "dev"
	c.Log.Level = "info"
	c.RateLimit.RPS = 20
	c.RateLimit.Burst = 40
	c.Idempotency.TTL = 24 * time.Hour
	c.JWT = defaultJWTConfig()
	return c
}

// Load reads path (skipped when empty or missing), applies env overrides and validates.
func Load(path string) (Config, error) {
	c, err := LoadUnvalidated(path)
	if err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadUnvalidated is Load without Validate, for commands that only need part
// of the configuration.
func LoadUnvalidated(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := c.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnvOverrides() error {
	if v, ok := getEnvStr("PORT"); ok {
		c.Server.Port = v
	}
	if v, ok := getEnvStr("AUTH_MODE"); ok {
		c.Auth.Mode = strings.ToLower(v)
	}
	if v, ok := getEnvStr("DEV_SUBJECT"); ok {
		c.Auth.DevSubject = v
	}
	if v, ok := getEnvStr("STORAGE_BACKEND"); ok {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DatabaseURL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Storage.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Storage.Redis.Prefix = v
	}
	if v, ok := getEnvStr("LOG_ENV"); ok {
		c.Log.Env = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if err := envInt("REDIS_DB", &c.Storage.Redis.DB); err != nil {
		return err
	}
	if err := envFloat("RATE_LIMIT_RPS", &c.RateLimit.RPS); err != nil {
		return err
	}
	if err := envInt("RATE_LIMIT_BURST", &c.RateLimit.Burst); err != nil {
		return err
	}
	if err := envDuration("IDEMPOTENCY_TTL", &c.Idempotency.TTL); err != nil {
		return err
	}
	return c.JWT.applyEnv()
}

func (c Config) Validate() error {
	switch c.Auth.Mode {
	case AuthModeJWT:
		if err := c.JWT.Validate(); err != nil {
			return err
		}
	case AuthModeDev:
	default:
		return fmt.Errorf("invalid AUTH_MODE %q (expected %s|%s)", c.Auth.Mode, AuthModeJWT, AuthModeDev)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is required when STORAGE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q (expected memory|postgres|redis)", c.Storage.Backend)
	}

	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limit settings must not be negative")
	}
	return nil
}

// Addr is the listen address derived from the port.
func (c Config) Addr() string { return ":" + c.Server.Port }
