// Package config provides centralized configuration management for the
// sheet service. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast
// on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Storage  StorageConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 4000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"4000"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AcquireTimeout is how long an operation waits for a pool
	// connection before failing fast (default: 10s)
	AcquireTimeout time.Duration `env:"DB_ACQUIRE_TIMEOUT" default:"10s"`
}

// UploadConfig holds spreadsheet upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed upload size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// BatchSize is the number of rows to insert per batch during a
	// committed import (default: 200)
	BatchSize int `env:"UPLOAD_BATCH_SIZE" default:"200"`

	// PreviewSampleSize is the default number of rows returned by a
	// preview when the caller does not ask for a specific count (default: 10)
	PreviewSampleSize int `env:"UPLOAD_PREVIEW_SAMPLE_SIZE" default:"10"`

	// MaxConcurrent is the number of uploads processed in parallel (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// SlotWait is how long an upload waits for a processing slot before
	// being rejected (default: 30s)
	SlotWait time.Duration `env:"UPLOAD_SLOT_WAIT" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// StorageConfig holds blob storage settings for export link generation.
// When the account or key is empty, export links are disabled and
// exports are only streamed directly.
type StorageConfig struct {
	// Account is the Azure storage account name
	Account string `env:"AZURE_STORAGE_ACCOUNT"`

	// Key is the shared account key
	Key string `env:"AZURE_STORAGE_ACCOUNT_KEY"`

	// Container is the blob container for exported workbooks (default: sheet-exports)
	Container string `env:"AZURE_STORAGE_CONTAINER" default:"sheet-exports"`

	// LinkTTL is how long generated download links stay valid (default: 1h)
	LinkTTL time.Duration `env:"STORAGE_LINK_TTL" default:"1h"`
}

// Enabled reports whether blob storage is configured.
func (c *StorageConfig) Enabled() bool {
	return c.Account != "" && c.Key != ""
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}
