package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/application/dispatcher"
	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/application/service"
	"github.com/garyjia/delegate-desk/internal/domain/history"
	infraLark "github.com/garyjia/delegate-desk/internal/infrastructure/external/lark"
	"github.com/garyjia/delegate-desk/internal/infrastructure/external/openai"
	"github.com/garyjia/delegate-desk/internal/infrastructure/persistence/postgres"
	"github.com/garyjia/delegate-desk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/delegate-desk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/delegate-desk/internal/infrastructure/worker"
	"github.com/garyjia/delegate-desk/pkg/database"
	"github.com/garyjia/delegate-desk/pkg/utils"
)

// DatabaseBundle holds the open store. Exactly one of SqlDB and Pool is set.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	Pool           *pgxpool.Pool
	TransactionMgr port.TransactionManager
}

// Close releases the underlying connections
func (b *DatabaseBundle) Close() error {
	if b.Pool != nil {
		b.Pool.Close()
	}
	if b.SqlDB != nil {
		return b.SqlDB.Close()
	}
	return nil
}

// Ping checks the store is reachable
func (b *DatabaseBundle) Ping(ctx context.Context) error {
	if b.Pool != nil {
		return b.Pool.Ping(ctx)
	}
	return b.SqlDB.PingContext(ctx)
}

// ProvideDatabase opens the configured store and runs pending migrations.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case "postgres":
		// a single connection is the SQLite default; let pgxpool size itself instead
		maxConns := int32(cfg.MaxOpenConns)
		if maxConns <= 1 {
			maxConns = 0
		}
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:             cfg.DSN,
			MaxConns:        maxConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, err
		}
		if _, err := postgres.Migrate(ctx, pool, database.PostgresMigrations(), logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &DatabaseBundle{
			Pool:           pool,
			TransactionMgr: postgres.NewTxManager(pool, logger),
		}, nil

	default:
		db, err := database.New(ctx, database.Config{
			Path:            cfg.Path,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, err
		}
		if _, err := database.NewMigrator(db, logger).Run(ctx, database.SQLiteMigrations()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &DatabaseBundle{
			SqlDB:          db.DB,
			TransactionMgr: sqlite.NewDB(db.DB, logger),
		}, nil
	}
}

// ProvideRepositories creates the repositories of the open store.
func ProvideRepositories(db *DatabaseBundle, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if db.Pool != nil {
		return &RepositoryBundle{
			Requests:  postgres.NewRequestRepository(db.Pool, logger),
			Staff:     postgres.NewStaffRepository(db.Pool, logger),
			Delegates: postgres.NewDelegateRepository(db.Pool, logger),
		}, nil
	}

	return &RepositoryBundle{
		Requests:  repository.NewRequestRepository(db.SqlDB, logger),
		Staff:     repository.NewStaffRepository(db.SqlDB, logger),
		Delegates: repository.NewDelegateRepository(db.SqlDB, logger),
	}, nil
}

// ProvideNotifier returns the Lark notifier, or a log-only notifier when
// Lark is not configured.
func ProvideNotifier(cfg *LarkConfig, logger *zap.Logger) port.Notifier {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		logger.Info("Lark not configured, notifications are logged only")
		return infraLark.NewLogNotifier(logger)
	}

	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.APITimeout,
	}, logger)
	return infraLark.NewNotifier(client, logger)
}

// ProvideDrafter returns the OpenAI drafter, or nil when no API key is configured.
func ProvideDrafter(cfg *OpenAIConfig, logger *zap.Logger) (port.DirectiveDrafter, error) {
	if cfg.APIKey == "" {
		logger.Info("OpenAI not configured, directive drafting is disabled")
		return nil, nil
	}

	prompts, err := openai.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	return openai.NewDrafter(openai.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	}, prompts, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(maxInFlight int, logger *zap.Logger) dispatcher.Dispatcher {
	opts := []dispatcher.Option{dispatcher.WithLogger(utils.NewKVLogger(logger))}
	if maxInFlight > 0 {
		opts = append(opts, dispatcher.WithMaxInFlight(maxInFlight))
	}
	return dispatcher.NewDispatcher(opts...)
}

// ServiceDeps holds the dependencies of the application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Notifier   port.Notifier
	Drafter    port.DirectiveDrafter
	Dispatcher dispatcher.Dispatcher
	Config     *Config
	Logger     *zap.Logger
}

// ProvideServices creates the application services and subscribes the
// notification service to the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.TxManager == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("repositories, transaction manager and dispatcher are required")
	}

	renderer, err := history.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to build history renderer: %w", err)
	}

	kv := utils.NewKVLogger(deps.Logger)
	directory := service.NewDirectory(deps.Repos.Staff, deps.Repos.Delegates, deps.Config.DirectoryCacheSize, deps.Config.DirectoryCacheTTL)

	notifications := service.NewNotificationService(
		deps.Repos.Requests,
		directory,
		deps.Notifier,
		renderer,
		deps.Config.Server.Language,
		kv,
	)
	notifications.Register(deps.Dispatcher)

	return &ServiceBundle{
		Directory: directory,
		Requests: service.NewRequestService(
			deps.Repos.Requests,
			deps.TxManager,
			directory,
			renderer,
			kv,
			service.WithDispatcher(deps.Dispatcher),
		),
		Drafts:        service.NewDraftService(deps.Drafter, directory, kv),
		Notifications: notifications,
	}, nil
}

// ProvideWorkers creates the background workers. They are started by the container.
func ProvideWorkers(requests service.RequestService, d dispatcher.Dispatcher, cfg *WorkerConfig, logger *zap.Logger) *worker.Manager {
	manager := worker.NewManager(logger)
	manager.Register(worker.NewExpiryMonitor(requests, d, cfg.ExpiryInterval, logger))
	return manager
}
