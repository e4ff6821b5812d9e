package container

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"pricewatch/ingestor/internal/config"
	"pricewatch/ingestor/internal/queue"
	"pricewatch/ingestor/internal/repository"
	"pricewatch/ingestor/internal/service"
	"pricewatch/ingestor/internal/state"
	"pricewatch/ingestor/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Store        storage.ObjectStore
	Repository   repository.CatalogRepository
	Queue        queue.Queue
	StateManager state.StateManager

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	db, err := pgxpool.New(context.Background(),
		fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Name,
		))
	if err != nil {
		return nil, err
	}
	container.db = db

	catalogRepo := repository.NewCatalogRepository(db)
	container.Repository = catalogRepo

	// One-time schema bootstrap, outside the per-document path
	if err := catalogRepo.EnsureSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	log.Info("✅ Database schema ready")

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})

	// Test connection
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	container.redis = rdb

	log.Info("✅ Connected to Redis successfully")

	redisQueue, err := queue.NewRedisQueue(rdb, cfg.Redis)
	if err != nil {
		return nil, err
	}
	container.Queue = redisQueue

	stateManager := state.NewRedisStateManager(rdb)
	container.StateManager = stateManager

	store, err := storage.NewGCSStore(context.Background(), cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}
	container.Store = store

	service := service.NewService(
		catalogRepo,
		store,
		redisQueue,
		stateManager,
		cfg.Redis.ConsumerGroup,
		cfg.Redis.MinIdleTime,
	)
	container.Service = service

	return container, nil
}

// Run consumes the task streams until the context is cancelled
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Service.RunWorkers(ctx, c.Config.Ingest.MaxWorkers)
	})

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	c.db.Close()
	if err := c.redis.Close(); err != nil {
		return err
	}

	log.Info("Container shut down successfully")
	return nil
}
