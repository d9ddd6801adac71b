package service

import (
	"context"

	"facetsearch/search-service/internal/app/search/entity"
)

// SearchServiceInterface - фасетный поиск по каталогу
type SearchServiceInterface interface {
	Search(ctx context.Context, req entity.SearchRequest) (*entity.SearchResult, error)
}

// AttributionMaintainer - обслуживание привязок, используется consumer'ом и cron
type AttributionMaintainer interface {
	// PurgeProduct снимает все значения с удаленного или деактивированного товара
	PurgeProduct(ctx context.Context, productID int64) (int64, error)
	// SweepOrphans удаляет привязки, ссылающиеся на несуществующие товары или значения
	SweepOrphans(ctx context.Context) (int64, error)
}
