package config

import (
	"github.com/garyjia/delegate-desk/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig(version string) *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			DSN:             c.Database.DSN,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Lark: container.LarkConfig{
			AppID:      c.Lark.AppID,
			AppSecret:  c.Lark.AppSecret,
			BaseURL:    c.Lark.BaseURL,
			APITimeout: c.Lark.APITimeout,
		},
		OpenAI: container.OpenAIConfig{
			APIKey:      c.OpenAI.APIKey,
			Model:       c.OpenAI.Model,
			BaseURL:     c.OpenAI.BaseURL,
			PromptsPath: c.OpenAI.PromptsPath,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			Language:        c.Server.Language,
		},
		Worker: container.WorkerConfig{
			ExpiryInterval: c.Worker.ExpiryInterval,
		},
		DirectoryCacheSize:    c.Directory.CacheSize,
		DirectoryCacheTTL:     c.Directory.CacheTTL,
		DispatcherMaxInFlight: c.Dispatcher.MaxInFlight,
		Version:               version,
	}
}
