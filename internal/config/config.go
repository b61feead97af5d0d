package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"auction-house/utils"
)

// Store backends selectable through STORE
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds application configuration loaded from environment variables.
// Defaults suit local development.
type Config struct {
	Env     string // development, staging, production
	Port    string
	GinMode string

	// Logging
	LogLevel  string
	LogFormat string // json or text

	// Storage
	Store      string
	SQLitePath string

	// JWT
	JWTSecret string
	JWTTTL    time.Duration

	// Cookies
	CookieSecure bool

	// Redis; empty RedisAddr disables rate limiting and keeps revocations in process
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate limiting on mutating endpoints
	RateLimitMax    int
	RateLimitWindow time.Duration

	// CORS
	CORSAllowedOrigins string // comma-separated

	// Categories created at startup when missing, comma-separated
	SeedCategories string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			utils.Warn("invalid boolean in environment, using default", map[string]any{"key": key, "error": err.Error(), "default": def})
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			utils.Warn("invalid int in environment, using default", map[string]any{"key": key, "error": err.Error(), "default": def})
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			utils.Warn("invalid duration in environment, using default", map[string]any{"key": key, "error": err.Error(), "default": def.String()})
			return def
		}
		return d
	}
	return def
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:     getenv("APP_ENV", "development"),
		Port:    getenv("PORT", "8080"),
		GinMode: getenv("GIN_MODE", "release"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		Store:      strings.ToLower(getenv("STORE", StoreSQLite)),
		SQLitePath: getenv("SQLITE_PATH", "auction-house.db"),

		JWTSecret: getenv("JWT_SECRET", devJWTSecret),
		JWTTTL:    getdur("JWT_TTL", 24*time.Hour),

		CookieSecure: getbool("COOKIE_SECURE", false),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),

		RateLimitMax:    getint("RATE_LIMIT_MAX", 60),
		RateLimitWindow: getdur("RATE_LIMIT_WINDOW", time.Minute),

		CORSAllowedOrigins: getenv("CORS_ALLOWED_ORIGINS", ""),

		SeedCategories: getenv("SEED_CATEGORIES", "Fashion,Toys,Electronics,Home"),
	}
}

// Validate reports settings the server cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.Store != StoreSQLite && c.Store != StoreMemory {
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StoreSQLite, StoreMemory, c.Store))
	}
	if c.Store == StoreSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// CORSOrigins returns the allowed origins as slice
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// Categories returns the seed category names as slice
func (c *Config) Categories() []string {
	return splitList(c.SeedCategories)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
