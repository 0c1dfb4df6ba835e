package config

import (
	"errors"
	"time"
)

// JWTConfig configures bearer-token verification against a JWKS endpoint.
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	ClockSkew              time.Duration
	JWKSRefreshInterval    time.Duration
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func defaultJWTConfig() JWTConfig {
	return JWTConfig{
		ClockSkew:              30 * time.Second,
		JWKSRefreshInterval:    5 * time.Minute,
		JWKSMinRefreshInterval: 10 * time.Second,
		HTTPTimeout:            5 * time.Second,
	}
}

// LoadJWTConfigFromEnv reads JWT_ISSUER, JWT_AUDIENCE and JWT_JWKS_URL (required)
// and the optional JWT_* duration overrides.
func LoadJWTConfigFromEnv() (JWTConfig, error) {
	cfg := defaultJWTConfig()
	if err := cfg.applyEnv(); err != nil {
		return JWTConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return JWTConfig{}, err
	}
	return cfg, nil
}

func (c *JWTConfig) applyEnv() error {
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.Issuer = v
	}
	if v, ok := getEnvStr("JWT_AUDIENCE"); ok {
		c.Audience = v
	}
	if v, ok := getEnvStr("JWT_JWKS_URL"); ok {
		c.JWKSURL = v
	}
	for key, dst := range map[string]*time.Duration{
		"JWT_CLOCK_SKEW":                &c.ClockSkew,
		"JWT_JWKS_REFRESH_INTERVAL":     &c.JWKSRefreshInterval,
		"JWT_JWKS_MIN_REFRESH_INTERVAL": &c.JWKSMinRefreshInterval,
		"JWT_HTTP_TIMEOUT":              &c.HTTPTimeout,
	} {
		if err := envDuration(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c JWTConfig) Validate() error {
	if c.Issuer == "" || c.Audience == "" || c.JWKSURL == "" {
		return errors.New("missing required jwt settings: JWT_ISSUER, JWT_AUDIENCE, JWT_JWKS_URL")
	}
	return nil
}
