package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/vaultflow/internal/api"
	"github.com/vietddude/vaultflow/internal/core/config"
	"github.com/vietddude/vaultflow/internal/engine"
	redisclient "github.com/vietddude/vaultflow/internal/infra/redis"
	"github.com/vietddude/vaultflow/internal/infra/storage"
	"github.com/vietddude/vaultflow/internal/infra/storage/memory"
	"github.com/vietddude/vaultflow/internal/infra/storage/postgres"
	"github.com/vietddude/vaultflow/internal/infra/venue"
	"github.com/vietddude/vaultflow/internal/notify"
	"github.com/vietddude/vaultflow/internal/scheduler"
)

// Service is the main application struct that wires storage, the callback
// queue, the engine, and the API server together and manages their lifecycle.
type Service struct {
	cfg         *config.AppConfig
	engine      *engine.Engine
	dispatcher  *scheduler.Dispatcher
	reconciler  *engine.Reconciler
	server      *api.Server
	db          *postgres.DB
	redisClient *redisclient.Client
	notifier    notify.Notifier
	log         *slog.Logger
}

// NewService creates a Service instance with all dependencies initialized.
func NewService(cfg *config.AppConfig) (*Service, error) {
	log := slog.Default().With("component", "control")

	// 1. Storage
	var store storage.VaultStore
	var db *postgres.DB
	var health api.HealthFunc

	switch cfg.Storage.Backend {
	case "postgres":
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		// Migrations live in "migrations" relative to CWD
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		store = postgres.NewStore(db)
		health = db.Health
		log.Info("Using PostgreSQL storage")
	case "memory":
		store = memory.NewMemoryStore()
		log.Info("Using Memory storage")
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}

	// 2. Callback queue
	redisClient, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}
	sched := scheduler.NewRedisScheduler(redisClient)

	// 3. Engine
	notifier := notify.NewLogNotifier()
	eng := engine.New(
		engine.Config{BatchRearmDelay: cfg.Engine.BatchRearmDelay},
		store,
		venue.NewHTTPVenue(cfg.Venue),
		sched,
		notifier,
	)

	// 4. Dispatcher and reconciler
	dispatcher := scheduler.NewDispatcher(scheduler.DispatcherConfig{
		PollInterval: cfg.Engine.PollInterval,
		ClaimLimit:   cfg.Engine.ClaimLimit,
	}, redisClient)
	eng.RegisterHandlers(dispatcher)

	reconciler := engine.NewReconciler(eng, cfg.Engine.ReconcileInterval)

	// 5. API server
	server := api.NewServer(cfg.Server, eng, health)

	return &Service{
		cfg:         cfg,
		engine:      eng,
		dispatcher:  dispatcher,
		reconciler:  reconciler,
		server:      server,
		db:          db,
		redisClient: redisClient,
		notifier:    notifier,
		log:         log,
	}, nil
}

// Start starts the service and all its components. It blocks until ctx is
// cancelled or the API server fails.
func (s *Service) Start(ctx context.Context) error {
	if s.db != nil {
		s.db.StartMetricsCollector(ctx)
	}

	go func() {
		if err := s.dispatcher.Run(ctx); err != nil {
			s.log.Error("Dispatcher failed", "error", err)
		}
	}()

	if err := s.reconciler.Start(); err != nil {
		return fmt.Errorf("failed to start reconciler: %w", err)
	}

	s.notifier.Notify(ctx, notify.EventEngineStarted, "storage", s.cfg.Storage.Backend)

	return s.server.Start(ctx)
}

// Stop releases connections held by the service. Workers stop with the
// context passed to Start.
func (s *Service) Stop() {
	s.log.Info("Stopping service")

	s.reconciler.Stop()

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}
}
