// Package container wires the request desk together: store, directory,
// dispatcher, notifications, drafting, workers and the HTTP server.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database DatabaseConfig
	Lark     LarkConfig
	OpenAI   OpenAIConfig
	Server   ServerConfig
	Worker   WorkerConfig

	// Directory cache sizing
	DirectoryCacheSize int
	DirectoryCacheTTL  time.Duration

	// DispatcherMaxInFlight bounds concurrent async event handlers
	DispatcherMaxInFlight int

	// Version is reported by /health
	Version string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string

	// Path to SQLite database file
	Path string

	// DSN of the PostgreSQL server
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LarkConfig holds Lark API settings. Empty credentials disable Lark.
type LarkConfig struct {
	AppID      string
	AppSecret  string
	BaseURL    string
	APITimeout time.Duration
}

// OpenAIConfig holds OpenAI API settings. An empty key disables drafting.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	PromptsPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Language of notifications and the default for rendered history
	Language string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// ExpiryInterval is how often pending directives are checked for expiry
	ExpiryInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       "sqlite",
			Path:         "data/desk.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Lark: LarkConfig{
			APITimeout: 30 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Language:        "en",
		},
		Worker: WorkerConfig{
			ExpiryInterval: 15 * time.Minute,
		},
		DirectoryCacheSize:    256,
		DirectoryCacheTTL:     5 * time.Minute,
		DispatcherMaxInFlight: 16,
		Version:               "dev",
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}

	return nil
}
