package config

import (
	"time"
)

// Config is the root configuration for the tool engine.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DBConfig       `mapstructure:"database" yaml:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog" yaml:"catalog" validate:"required"`
	Selector SelectorConfig `mapstructure:"selector" yaml:"selector"`
	Runner   RunnerConfig   `mapstructure:"runner" yaml:"runner"`
	Audit    AuditConfig    `mapstructure:"audit" yaml:"audit"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DBConfig contains SQLite database configuration.
type DBConfig struct {
	Path           string        `mapstructure:"path" yaml:"path"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections" validate:"min=1,max=100"`
	BusyTimeout    time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout"`
}

// CatalogConfig describes where tool specifications are loaded from.
// Source is "file" (a directory of YAML specs) or "database" (the
// tool_specs table).
type CatalogConfig struct {
	Source string `mapstructure:"source" yaml:"source" validate:"required,oneof=file database"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// SelectorConfig tunes candidate selection.
type SelectorConfig struct {
	DefaultK      int           `mapstructure:"default_k" yaml:"default_k" validate:"min=0"`
	MaxK          int           `mapstructure:"max_k" yaml:"max_k" validate:"min=1"`
	QueryLimit    int           `mapstructure:"query_limit" yaml:"query_limit" validate:"min=1"`
	AlwaysInclude []string      `mapstructure:"always_include" yaml:"always_include"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	CacheMaxSize  int           `mapstructure:"cache_max_size" yaml:"cache_max_size" validate:"min=1"`
}

// RunnerConfig tunes tool execution limits.
type RunnerConfig struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	MaxTimeout     time.Duration `mapstructure:"max_timeout" yaml:"max_timeout"`
	MaxOutputBytes int           `mapstructure:"max_output_bytes" yaml:"max_output_bytes" validate:"min=1024"`
	SecretPatterns []string      `mapstructure:"secret_patterns" yaml:"secret_patterns"`
}

// AuditConfig tunes the asynchronous audit sink.
type AuditConfig struct {
	Destination  string `mapstructure:"destination" yaml:"destination" validate:"oneof=log stdout database"`
	QueueSize    int    `mapstructure:"queue_size" yaml:"queue_size" validate:"min=1"`
	SharedSecret string `mapstructure:"shared_secret" yaml:"shared_secret"`
	AuthDisabled bool   `mapstructure:"auth_disabled" yaml:"auth_disabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}
