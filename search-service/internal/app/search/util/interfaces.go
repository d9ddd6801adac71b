package util

import (
	"context"
	"time"

	"facetsearch/search-service/internal/app/search/entity"
)

// FacetCache интерфейс кеша фасетов категории
// Используется для dependency injection и упрощения тестирования
type FacetCache interface {
	SetFacets(ctx context.Context, categoryID int64, facets []entity.Facet, ttl time.Duration) error
	// GetFacets возвращает nil, nil при промахе кеша
	GetFacets(ctx context.Context, categoryID int64) ([]entity.Facet, error)
	DeleteFacets(ctx context.Context, categoryID int64) error
	Close() error
}

// MessagePublisher интерфейс для отправки сообщений в очередь (Kafka)
// Используется для dependency injection и упрощения тестирования
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
