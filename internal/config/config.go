// Package config provides centralized configuration management for the
// migration tool. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Duplicate-key policies for records whose key already exists in the
// destination table.
const (
	DuplicateReject    = "reject"
	DuplicateOverwrite = "overwrite"
)

// Policies for rows that cannot be decoded from the source encoding.
const (
	EncodingSkip  = "skip"
	EncodingAbort = "abort"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Source   SourceConfig
	Batch    BatchConfig
	Retry    RetryConfig
	Run      RunConfig
	Status   StatusConfig
	Logging  LoggingConfig
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

	// ConnectTimeout bounds the initial connect-and-ping (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// SourceConfig holds source file discovery and parsing settings.
type SourceConfig struct {
	// Dir is the root directory scanned for source files when no explicit
	// files are given on the command line
	Dir string `env:"MIGRATE_SOURCE_DIR" default:"."`

	// Encoding is the source character encoding: auto, utf-8, latin-1,
	// windows-1252 (default: auto)
	Encoding string `env:"MIGRATE_ENCODING" default:"auto"`

	// Delimiter is the field delimiter, or "auto" to sniff per file
	Delimiter string `env:"MIGRATE_DELIMITER" default:"auto"`

	// HasHeader indicates the first row of each file is a header (default: true)
	HasHeader bool `env:"MIGRATE_HAS_HEADER" default:"true"`

	// EncodingPolicy decides what happens on an undecodable row:
	// skip (reject the row, continue) or abort (default: skip)
	EncodingPolicy string `env:"MIGRATE_ENCODING_POLICY" default:"skip"`
}

// BatchConfig holds insert batching settings.
type BatchConfig struct {
	// Size is the number of records per insert batch (default: 500)
	Size int `env:"MIGRATE_BATCH_SIZE" default:"500"`
}

// RetryConfig holds transient-failure retry settings.
type RetryConfig struct {
	// MaxAttempts is the total number of tries per batch, first included (default: 5)
	MaxAttempts int `env:"MIGRATE_RETRY_MAX_ATTEMPTS" default:"5"`

	// BaseDelay is the delay before the first retry (default: 500ms)
	BaseDelay time.Duration `env:"MIGRATE_RETRY_BASE_DELAY" default:"500ms"`

	// Multiplier grows the delay after each failed attempt (default: 2)
	Multiplier float64 `env:"MIGRATE_RETRY_MULTIPLIER" default:"2"`

	// MaxDelay caps the backoff delay (default: 30s)
	MaxDelay time.Duration `env:"MIGRATE_RETRY_MAX_DELAY" default:"30s"`
}

// RunConfig holds run-level policy settings.
type RunConfig struct {
	// AbortThreshold aborts the run when permanently failed records exceed
	// this fraction of records read so far (default: 0.10)
	AbortThreshold float64 `env:"MIGRATE_ABORT_THRESHOLD" default:"0.10"`

	// DuplicatePolicy is reject or overwrite (default: reject)
	DuplicatePolicy string `env:"MIGRATE_DUPLICATE_POLICY" default:"reject"`

	// RejectedDir is where per-table rejection reports are written
	RejectedDir string `env:"MIGRATE_REJECTED_DIR" default:"rejected"`
}

// StatusConfig holds the optional status HTTP endpoint settings.
type StatusConfig struct {
	// Addr is the listen address for the status endpoint; empty disables it
	Addr string `env:"STATUS_ADDR"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
