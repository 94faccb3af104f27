package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/internal/callback"
	"github.com/lxplabs/recflow/internal/config"
	"github.com/lxplabs/recflow/internal/dataset"
	"github.com/lxplabs/recflow/internal/messaging"
	"github.com/lxplabs/recflow/internal/recommend"
	"github.com/lxplabs/recflow/internal/storage"
)

type Services struct {
	Health     *HealthService
	JobManager *JobManager
	Processor  *BatchProcessor
	EventBus   *messaging.EventBus

	redis *redis.Client
	pg    *pgxpool.Pool
}

func New(cfg *config.Config, logger *logrus.Logger) (*Services, error) {
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	redisOpts.MaxRetries = cfg.Redis.MaxRetries
	redisOpts.PoolSize = cfg.Redis.PoolSize
	redisClient := redis.NewClient(redisOpts)

	// PostgreSQL archive is optional; Redis alone carries job state
	var pg *pgxpool.Pool
	if cfg.Database.URL != "" {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing database url: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
		poolCfg.ConnConfig.ConnectTimeout = cfg.Database.ConnectTimeout

		pg, err = pgxpool.NewWithConfig(context.Background(), poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
	}

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing object storage: %w", err)
	}

	adjuster, err := recommend.NewLevelWeightAdjuster(cfg.Engine.PenaltyWeights, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing level adjuster: %w", err)
	}

	pipeline := recommend.NewPipeline(
		recommend.NewTFIDFScorer(logger),
		recommend.NewExclusionFilter(logger),
		adjuster,
		cfg.Engine.ChunkSize,
		logger,
	)

	eventBus := messaging.NewEventBus(cfg.Kafka, logger)
	jobManager := NewJobManager(redisClient, pgExecutorOrNil(pg), logger)

	processor := NewBatchProcessor(
		store,
		dataset.NewLoader(logger),
		dataset.NewWriter(logger),
		pipeline,
		jobManager,
		callback.New(cfg.Callback, logger),
		eventBus,
		cfg.Engine.DefaultTopK,
		logger,
	)

	return &Services{
		Health:     NewHealthService(redisClient, pg, logger),
		JobManager: jobManager,
		Processor:  processor,
		EventBus:   eventBus,
		redis:      redisClient,
		pg:         pg,
	}, nil
}

// pgExecutorOrNil keeps the job manager's interface field truly nil when
// no pool is configured; a typed nil would defeat its nil checks.
func pgExecutorOrNil(pg *pgxpool.Pool) pgExecutor {
	if pg == nil {
		return nil
	}
	return pg
}

func (s *Services) Close() {
	if err := s.EventBus.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close event bus")
	}
	if err := s.redis.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close redis client")
	}
	if s.pg != nil {
		s.pg.Close()
	}
}
