// Package config provides centralized configuration management for the converter.
// It loads configuration from environment variables, optionally layered over a
// YAML file, applies defaults and validates all settings on startup to fail fast
// on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server      ServerConfig
	Source      SourceConfig
	Destination DestinationConfig
	Load        LoadConfig
	Jobs        JobsConfig
	Security    SecurityConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// TrustedProxies are CIDRs whose X-Real-IP and X-Forwarded-For headers are honored
	TrustedProxies []string `env:"SERVER_TRUSTED_PROXIES"`
}

// SourceConfig holds settings for reading source files.
type SourceConfig struct {
	// PreferredTable is tried first inside .odb archives
	PreferredTable string `env:"SOURCE_PREFERRED_TABLE" default:"VW_DIBENEF_ANNIO_AP_ADIC_DEL - CUILES 2015"`

	// Table forces the table read from native sources (default: first user table)
	Table string `env:"SOURCE_TABLE"`

	// TempDir is where archives are extracted (default: OS temp dir)
	TempDir string `env:"SOURCE_TEMP_DIR" envAlt:"TMPDIR"`

	// ODBCDriver overrides the Access ODBC driver name for sources
	ODBCDriver string `env:"SOURCE_ODBC_DRIVER"`

	// Dir is the only directory API requests may read sources from (default: working directory)
	Dir string `env:"SOURCE_DIR"`
}

// DestinationConfig holds settings for the converted database.
type DestinationConfig struct {
	// Dialect is the destination engine: access, sqlite or postgres (default: access)
	Dialect string `env:"DEST_DIALECT" default:"access"`

	// Path is the default destination file, or a connection URL for postgres
	Path string `env:"DEST_PATH" envAlt:"DATABASE_URL"`

	// AccessTemplate is a blank .accdb copied to create Access destinations
	AccessTemplate string `env:"DEST_ACCESS_TEMPLATE"`

	// ODBCDrivers are Access driver names tried in order, separated by ";"
	// because driver names contain commas
	ODBCDrivers []string `env:"DEST_ODBC_DRIVERS" sep:";"`

	// Dir is the only directory API requests may write destinations to (default: working directory)
	Dir string `env:"DEST_DIR"`
}

// LoadConfig holds loader settings.
type LoadConfig struct {
	// BatchSize is the number of periodos rows per commit (default: 1000)
	BatchSize int `env:"LOAD_BATCH_SIZE" default:"1000"`
}

// JobsConfig holds background conversion settings.
type JobsConfig struct {
	// MaxConcurrent is the maximum number of parallel conversions (default: 1)
	MaxConcurrent int `env:"JOBS_MAX_CONCURRENT" default:"1"`

	// MaxWait is how long to wait for a conversion slot (default: 30s)
	MaxWait time.Duration `env:"JOBS_MAX_WAIT" default:"30s"`

	// Retention is how long finished jobs stay queryable (default: 5m)
	Retention time.Duration `env:"JOBS_RETENTION" default:"5m"`
}

// SecurityConfig holds API authentication settings.
type SecurityConfig struct {
	// RequireAPIKey rejects API requests without a valid X-API-Key header (default: false)
	RequireAPIKey bool `env:"SECURITY_REQUIRE_API_KEY" default:"false"`

	// APIKeys are the accepted keys, comma separated
	APIKeys []string `env:"SECURITY_API_KEYS"`
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
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
