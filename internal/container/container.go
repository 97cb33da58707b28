package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/application/dispatcher"
	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/application/service"
	"github.com/garyjia/delegate-desk/internal/infrastructure/worker"
	httpapi "github.com/garyjia/delegate-desk/internal/interfaces/http"
	"github.com/garyjia/delegate-desk/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *DatabaseBundle
	repositories *RepositoryBundle

	// Infrastructure - External
	notifier port.Notifier
	drafter  port.DirectiveDrafter

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Workers and interfaces
	workers *worker.Manager
	server  *httpapi.Server

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requests  port.RequestRepository
	Staff     port.StaffRepository
	Delegates port.DelegateRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Directory     *service.Directory
	Requests      service.RequestService
	Drafts        *service.DraftService
	Notifications *service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components. Workers are started unless withWorkers
// is false, which one-shot commands use.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. External clients (Lark, OpenAI)
// 3. Event dispatcher
// 4. Application services
// 5. Workers
// 6. HTTP server (built, not started)
func (c *Container) Start(ctx context.Context, withWorkers bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("driver", c.config.Database.Driver))

	if err := c.initExternalClients(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized")

	c.dispatcher = ProvideDispatcher(c.config.DispatcherMaxInFlight, c.logger)

	if err := c.initServices(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.workers = ProvideWorkers(c.services.Requests, c.dispatcher, &c.config.Worker, c.logger)
	if withWorkers {
		if err := c.workers.StartAll(c.ctx); err != nil {
			c.teardown()
			return fmt.Errorf("failed to start workers: %w", err)
		}
		c.logger.Info("Workers started", zap.Int("count", c.workers.Count()))
	}

	c.server = httpapi.NewServer(httpapi.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            c.config.Server.Port,
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		Language:        c.config.Server.Language,
		Version:         c.config.Version,
	}, c.services.Requests, c.services.Drafts, utils.NewKVLogger(c.logger))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	err := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown stops whatever has been initialized so far
func (c *Container) teardown() error {
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	// Workers first so no sweep publishes into a closed dispatcher
	if c.workers != nil && c.workers.IsRunning() {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Close waits for in-flight notifications, which still need the database
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	if c.database != nil {
		if err := c.database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.database = nil
	}

	return errors.Join(errs...)
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, healthy bool, message string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: message}
		if !healthy {
			status.Overall = false
		}
	}

	if c.database == nil {
		set("database", false, "not initialized")
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.database.Ping(pingCtx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	if c.workers == nil {
		set("workers", false, "not initialized")
	} else {
		set("workers", c.workers.IsRunning(), fmt.Sprintf("worker count: %d", c.workers.Count()))
	}

	if c.dispatcher == nil {
		set("dispatcher", false, "not initialized")
	} else {
		set("dispatcher", true, "")
	}

	return status
}

// initDatabase opens the store and builds the repositories.
func (c *Container) initDatabase() error {
	db, err := ProvideDatabase(c.ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = db

	repos, err := ProvideRepositories(db, c.logger)
	if err != nil {
		_ = db.Close()
		c.database = nil
		return err
	}
	c.repositories = repos
	return nil
}

// initExternalClients builds the notifier and the optional drafter.
func (c *Container) initExternalClients() error {
	c.notifier = ProvideNotifier(&c.config.Lark, c.logger)

	drafter, err := ProvideDrafter(&c.config.OpenAI, c.logger)
	if err != nil {
		return err
	}
	c.drafter = drafter
	return nil
}

// initServices builds the application services.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.database.TransactionMgr,
		Notifier:   c.notifier,
		Drafter:    c.drafter,
		Dispatcher: c.dispatcher,
		Config:     c.config,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// Getters for accessing container components

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
