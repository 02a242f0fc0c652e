package config

import (
	"fmt"
	"time"
)

// JWTConfig configures JWT verification against a JWKS endpoint.
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	ClockSkew              time.Duration
	JWKSRefreshInterval    time.Duration
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func loadJWTConfig(getenv func(string) string, supabaseURL string) (JWTConfig, error) {
	// Reasonable defaults that make local/dev/test behavior predictable.
	cfg := JWTConfig{
		Issuer:    getenv("JWT_ISSUER"),
		Audience:  getenv("JWT_AUDIENCE"),
		JWKSURL:   getenv("JWT_JWKS_URL"),
		ClockSkew: 30 * time.Second,
		// Refresh periodically to pick up key rotation even if an old key is still cached.
		JWKSRefreshInterval: 5 * time.Minute,
		// Bound refresh frequency when a token presents an unknown kid (avoid thundering herd).
		JWKSMinRefreshInterval: 10 * time.Second,
		HTTPTimeout:            5 * time.Second,
	}

	// Hosted provider defaults.
	if supabaseURL != "" {
		if cfg.Issuer == "" {
			cfg.Issuer = supabaseURL + "/auth/v1"
		}
		if cfg.JWKSURL == "" {
			cfg.JWKSURL = supabaseURL + "/auth/v1/.well-known/jwks.json"
		}
	}
	if cfg.Audience == "" {
		cfg.Audience = "authenticated"
	}

	var err error
	if cfg.ClockSkew, err = duration(getenv, "JWT_CLOCK_SKEW", cfg.ClockSkew); err != nil {
		return JWTConfig{}, err
	}
	if cfg.JWKSRefreshInterval, err = duration(getenv, "JWT_JWKS_REFRESH_INTERVAL", cfg.JWKSRefreshInterval); err != nil {
		return JWTConfig{}, err
	}
	if cfg.JWKSMinRefreshInterval, err = duration(getenv, "JWT_JWKS_MIN_REFRESH_INTERVAL", cfg.JWKSMinRefreshInterval); err != nil {
		return JWTConfig{}, err
	}
	return cfg, nil
}

func (c JWTConfig) validate() error {
	if c.Issuer == "" || c.Audience == "" || c.JWKSURL == "" {
		return fmt.Errorf("TOKEN_VERIFY_MODE=jwks requires JWT_ISSUER, JWT_AUDIENCE, JWT_JWKS_URL (or SUPABASE_URL)")
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("JWT_CLOCK_SKEW must not be negative")
	}
	return nil
}
