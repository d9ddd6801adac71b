package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"facetsearch/pkg/metrics"
	"facetsearch/search-service/internal/app/search/entity"

	"github.com/redis/go-redis/v9"
)

const (
	facetsKeyPrefix = "facets:category:"
	metricsService  = "search-service"
)

// RedisClient кеширует карту фасетов категории (фасет -> значения)
type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// NewRedisClientFromConn оборачивает уже созданный клиент (тесты с miniredis)
func NewRedisClientFromConn(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

func facetsKey(categoryID int64) string {
	return facetsKeyPrefix + strconv.FormatInt(categoryID, 10)
}

func (r *RedisClient) SetFacets(ctx context.Context, categoryID int64, facets []entity.Facet, ttl time.Duration) error {
	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	data, err := json.Marshal(facets)
	if err != nil {
		return fmt.Errorf("failed to marshal facets: %w", err)
	}

	if err := r.client.Set(ctx, facetsKey(categoryID), data, ttl).Err(); err != nil {
		metrics.RecordRedisError(metricsService, metrics.RedisOpSet)
		return fmt.Errorf("failed to set facets in cache: %w", err)
	}

	return nil
}

func (r *RedisClient) GetFacets(ctx context.Context, categoryID int64) ([]entity.Facet, error) {
	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	data, err := r.client.Get(ctx, facetsKey(categoryID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(metricsService, facetsKeyPrefix)
			return nil, nil
		}
		metrics.RecordRedisError(metricsService, metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get facets from cache: %w", err)
	}

	var facets []entity.Facet
	if err := json.Unmarshal(data, &facets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal facets: %w", err)
	}

	metrics.RecordCacheHit(metricsService, facetsKeyPrefix)
	return facets, nil
}

func (r *RedisClient) DeleteFacets(ctx context.Context, categoryID int64) error {
	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpDel)
	defer timer.ObserveDuration()

	if err := r.client.Del(ctx, facetsKey(categoryID)).Err(); err != nil {
		metrics.RecordRedisError(metricsService, metrics.RedisOpDel)
		return fmt.Errorf("failed to delete facets from cache: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
