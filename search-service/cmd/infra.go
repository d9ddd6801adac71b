package main

import (
	"context"
	"fmt"
	"time"

	"facetsearch/pkg/logger"
	"facetsearch/pkg/metrics"
	"facetsearch/search-service/internal/app/search/config"
	"facetsearch/search-service/internal/app/search/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectAttempts = 10

// storage - общий пул pgx и gorm поверх него
type storage struct {
	pool *pgxpool.Pool
	gorm *gorm.DB
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig) (*storage, error) {
	pool, err := connectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Str("database", cfg.DBName).
		Msg("Connected to PostgreSQL")

	return &storage{pool: pool, gorm: db}, nil
}

func (s *storage) Close() {
	if sqlDB, err := s.gorm.DB(); err == nil {
		_ = sqlDB.Close()
	}
	s.pool.Close()
}

// reportPoolStats раз в period публикует число свободных и занятых соединений пула
func (s *storage) reportPoolStats(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := s.pool.Stat()
			metrics.RecordPoolStats(serviceName, stat.IdleConns(), stat.AcquiredConns())
		}
	}
}

// repositories - схема на pgx, привязки и товары на gorm
type repositories struct {
	categories   repository.CategoryRepository
	descriptions repository.FilterDescriptionRepository
	values       repository.FilterValueRepository
	attributions repository.AttributionRepository
	products     repository.ProductRepository
}

func (s *storage) repositories() repositories {
	return repositories{
		categories:   repository.NewCategoryRepository(s.pool),
		descriptions: repository.NewFilterDescriptionRepository(s.pool),
		values:       repository.NewFilterValueRepository(s.pool),
		attributions: repository.NewAttributionRepository(s.gorm),
		products:     repository.NewProductRepository(s.gorm),
	}
}

// connectDB повторяет попытки подключения: в Docker PostgreSQL может подняться позже сервиса
func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	var pool *pgxpool.Pool
	for i := 0; i < connectAttempts; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to database, retrying...")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", connectAttempts, err)
}
