// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	AuthProviderLocal    = "local"
	AuthProviderSupabase = "supabase"

	VerifyModeProvider = "provider"
	VerifyModeJWKS     = "jwks"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	StorageBackend string
	DatabaseURL    string

	AuthProvider    string
	SupabaseURL     string
	SupabaseAnonKey string
	TokenVerifyMode string
	JWT             JWTConfig

	SessionStore  string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	CookieSecure       bool
	CORSAllowedOrigins []string

	PasswordResetRedirectURL string

	GeminiAPIKey string
	GeminiModel  string

	ShutdownTimeout time.Duration
}

// Load reads the process environment and validates the result.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv and validates the result.
func LoadFrom(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:      get("PORT", "8080"),
		LogLevel:  strings.ToLower(get("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(get("LOG_FORMAT", "json")),

		StorageBackend: strings.ToLower(get("STORAGE_BACKEND", StorageMemory)),
		DatabaseURL:    get("DATABASE_URL", ""),

		AuthProvider:    strings.ToLower(get("AUTH_PROVIDER", AuthProviderLocal)),
		SupabaseURL:     strings.TrimRight(get("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey: get("SUPABASE_ANON_KEY", ""),
		TokenVerifyMode: strings.ToLower(get("TOKEN_VERIFY_MODE", VerifyModeProvider)),

		SessionStore:  strings.ToLower(get("SESSION_STORE", SessionStoreMemory)),
		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD"),

		CORSAllowedOrigins: splitComma(get("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		PasswordResetRedirectURL: get("PASSWORD_RESET_REDIRECT_URL", "http://localhost:8080/reset-password"),

		GeminiAPIKey: get("GEMINI_API_KEY", ""),
		GeminiModel:  get("GEMINI_MODEL", ""),
	}

	var err error
	if cfg.SessionTTL, err = duration(getenv, "SESSION_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = duration(getenv, "SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.CookieSecure, err = boolean(getenv, "COOKIE_SECURE", true); err != nil {
		return Config{}, err
	}
	if cfg.JWT, err = loadJWTConfig(getenv, cfg.SupabaseURL); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric, got %q", c.Port))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug|info|warn|error, got %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json|text, got %q", c.LogFormat))
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("STORAGE_BACKEND=postgres requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be memory|postgres, got %q", c.StorageBackend))
	}

	switch c.AuthProvider {
	case AuthProviderLocal:
	case AuthProviderSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("AUTH_PROVIDER=supabase requires SUPABASE_URL and SUPABASE_ANON_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_PROVIDER must be local|supabase, got %q", c.AuthProvider))
	}

	switch c.TokenVerifyMode {
	case VerifyModeProvider:
	case VerifyModeJWKS:
		if c.AuthProvider != AuthProviderSupabase {
			errs = append(errs, errors.New("TOKEN_VERIFY_MODE=jwks requires AUTH_PROVIDER=supabase"))
		}
		if err := c.JWT.validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("TOKEN_VERIFY_MODE must be provider|jwks, got %q", c.TokenVerifyMode))
	}

	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("SESSION_STORE=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be memory|redis, got %q", c.SessionStore))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// String redacts secrets.
func (c Config) String() string {
	return fmt.Sprintf("Config{Port: %s, Storage: %s, AuthProvider: %s, TokenVerifyMode: %s, SessionStore: %s, CookieSecure: %v, CORSAllowedOrigins: %v, Gemini: %v}",
		c.Port, c.StorageBackend, c.AuthProvider, c.TokenVerifyMode, c.SessionStore, c.CookieSecure, c.CORSAllowedOrigins, c.GeminiAPIKey != "")
}

func duration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 30s): %w", key, err)
	}
	return d, nil
}

func boolean(getenv func(string) string, key string, def bool) (bool, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func splitComma(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
