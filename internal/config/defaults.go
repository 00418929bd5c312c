package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := getDefaultHomeDir()

	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8085,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DBConfig{
			Path:           filepath.Join(homeDir, "toolengine.db"),
			MaxConnections: 10,
			BusyTimeout:    5 * time.Second,
		},
		Catalog: CatalogConfig{
			Source: "file",
			Path:   filepath.Join(homeDir, "catalog"),
		},
		Selector: SelectorConfig{
			DefaultK:      5,
			MaxK:          25,
			QueryLimit:    50,
			AlwaysInclude: nil,
			CacheTTL:      5 * time.Minute,
			CacheMaxSize:  512,
		},
		Runner: RunnerConfig{
			DefaultTimeout: 30 * time.Second,
			MaxTimeout:     5 * time.Minute,
			MaxOutputBytes: 64 * 1024,
			SecretPatterns: []string{
				`(?i)(password|passwd|secret|token|api[_-]?key)\s*[=:]\s*\S+`,
				`(?i)bearer\s+[A-Za-z0-9._\-]+`,
			},
		},
		Audit: AuditConfig{
			Destination: "log",
			QueueSize:   1024,
			// Loopback-only defaults run without a shared secret; deployments
			// exposing the ingest endpoint must set one.
			SharedSecret: "",
			AuthDisabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// getDefaultHomeDir returns the default engine home directory.
// It uses ~/.toolengine or falls back to a temporary directory if the user
// home cannot be determined.
func getDefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".toolengine")
	}
	return filepath.Join(userHome, ".toolengine")
}
