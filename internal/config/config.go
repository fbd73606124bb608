// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds MariaDB connection settings for the tabular store.
	Database DatabaseConfig

	// Redis holds Redis connection settings for the keyed property store.
	Redis RedisConfig

	// Auth holds authentication and lockout policy settings.
	Auth AuthConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so container
// orchestrators can manage each independently. If DATABASE_URL is set, it
// takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "nijjara").
	User string

	// Password is the MariaDB password (default: "nijjara").
	Password string

	// Name is the database name (default: "nijjara").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds the authentication, session, and lockout policy.
// Every value here corresponds to a tunable the operations team may
// change without a code deploy.
type AuthConfig struct {
	// ServerSecret is the HMAC key used for password hashing. Required in
	// production; a dev-only default is provided for local development.
	ServerSecret string

	// SessionDuration is how long an issued session remains valid.
	SessionDuration time.Duration

	// MaxFailedAttempts is the number of consecutive failed logins that
	// triggers a lockout.
	MaxFailedAttempts int

	// LockoutDuration is how long an identity stays locked once the
	// failed-attempt threshold is reached.
	LockoutDuration time.Duration

	// AttemptWindow bounds how long a partial failed-attempt count is
	// retained before it expires on its own.
	AttemptWindow time.Duration

	// LockoutByIP keys lockout state by username+client IP instead of
	// username alone. Stricter, but a shared NAT can lock out colleagues.
	LockoutByIP bool

	// RevealRemainingAttempts includes the remaining-attempt count in
	// failed-login responses. Friendlier, but leaks policy detail.
	RevealRemainingAttempts bool
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "nijjara"),
			Password:        getEnv("DB_PASSWORD", "nijjara"),
			Name:            getEnv("DB_NAME", "nijjara"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			ServerSecret:            getEnv("AUTH_SERVER_SECRET", ""),
			SessionDuration:         time.Duration(getEnvInt("AUTH_SESSION_MINUTES", 1440)) * time.Minute,
			MaxFailedAttempts:       getEnvInt("AUTH_MAX_FAILED_ATTEMPTS", 5),
			LockoutDuration:         time.Duration(getEnvInt("AUTH_LOCKOUT_MINUTES", 15)) * time.Minute,
			AttemptWindow:           time.Duration(getEnvInt("AUTH_ATTEMPT_WINDOW_MINUTES", 15)) * time.Minute,
			LockoutByIP:             getEnvBool("AUTH_LOCKOUT_BY_IP", false),
			RevealRemainingAttempts: getEnvBool("AUTH_REVEAL_REMAINING_ATTEMPTS", true),
		},
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.ServerSecret == "" {
			return nil, fmt.Errorf("AUTH_SERVER_SECRET is required in production")
		}
		if len(cfg.Auth.ServerSecret) < 32 {
			return nil, fmt.Errorf("AUTH_SERVER_SECRET must be at least 32 characters in production")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.ServerSecret == "" {
		cfg.Auth.ServerSecret = "dev-secret-key-do-not-use-in-production!!"
	}

	if cfg.Auth.MaxFailedAttempts < 1 {
		return nil, fmt.Errorf("AUTH_MAX_FAILED_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var ("true", "1", "false", ...) or returns
// the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "15m") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
