package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Lark       LarkConfig       `mapstructure:"lark"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Directory  DirectoryConfig  `mapstructure:"directory"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Language        string        `mapstructure:"language"`
}

// DatabaseConfig holds database configuration.
// Driver is "sqlite" (Path) or "postgres" (DSN).
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LarkConfig holds Lark API configuration. Notifications are only sent
// when both AppID and AppSecret are set.
type LarkConfig struct {
	AppID      string        `mapstructure:"app_id"`
	AppSecret  string        `mapstructure:"app_secret"`
	BaseURL    string        `mapstructure:"base_url"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
}

// OpenAIConfig holds OpenAI API configuration. Drafting is disabled without an API key.
type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	BaseURL     string `mapstructure:"base_url"`
	PromptsPath string `mapstructure:"prompts_path"`
}

// DirectoryConfig sizes the staff and delegate cache
type DirectoryConfig struct {
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// DispatcherConfig bounds concurrent async event handlers
type DispatcherConfig struct {
	MaxInFlight int `mapstructure:"max_in_flight"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	ExpiryInterval time.Duration `mapstructure:"expiry_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// LarkEnabled reports whether Lark credentials are configured
func (c *Config) LarkEnabled() bool {
	return c.Lark.AppID != "" && c.Lark.AppSecret != ""
}

// DraftingEnabled reports whether an OpenAI key is configured
func (c *Config) DraftingEnabled() bool {
	return c.OpenAI.APIKey != ""
}

// Load loads configuration from an optional .env file, an optional YAML file
// and DESK_* environment variables, in increasing order of precedence.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("DESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.language", "en")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/desk.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	// Lark defaults
	v.SetDefault("lark.app_id", "")
	v.SetDefault("lark.app_secret", "")
	v.SetDefault("lark.base_url", "")
	v.SetDefault("lark.api_timeout", 30*time.Second)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.prompts_path", "")

	v.SetDefault("directory.cache_size", 256)
	v.SetDefault("directory.cache_ttl", 5*time.Minute)
	v.SetDefault("dispatcher.max_in_flight", 16)
	v.SetDefault("worker.expiry_interval", 15*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the conventional unprefixed names of secrets
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"lark.app_id":     {"DESK_LARK_APP_ID", "LARK_APP_ID"},
		"lark.app_secret": {"DESK_LARK_APP_SECRET", "LARK_APP_SECRET"},
		"openai.api_key":  {"DESK_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"database.dsn":    {"DESK_DATABASE_DSN", "DATABASE_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	switch c.Server.Language {
	case "en", "ar":
	default:
		return fmt.Errorf("server.language must be en or ar, got %q", c.Server.Language)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	// Lark credentials come in pairs
	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	return nil
}
