package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"facetsearch/pkg/logger"
	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/util"
)

// facetNotifier сбрасывает кеш фасетов и публикует события изменений
// Ошибки кеша и Kafka не прерывают операцию: данные уже записаны в PostgreSQL
type facetNotifier struct {
	cache     util.FacetCache
	publisher util.MessagePublisher
}

func (n facetNotifier) invalidate(ctx context.Context, categoryID int64) {
	if n.cache == nil || categoryID == 0 {
		return
	}
	if err := n.cache.DeleteFacets(ctx, categoryID); err != nil {
		logger.Warn().Err(err).Int64("category_id", categoryID).Msg("Failed to invalidate facets cache")
	}
}

func (n facetNotifier) publish(ctx context.Context, event entity.FacetEvent) {
	if n.publisher == nil {
		return
	}
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("event_type", event.EventType).Msg("Failed to marshal facet event")
		return
	}

	if err := n.publisher.PublishMessage(ctx, strconv.FormatInt(event.CategoryID, 10), data); err != nil {
		logger.Warn().Err(err).Str("event_type", event.EventType).Msg("Failed to publish facet event")
	}
}

// schemaChanged - общий хвост всех изменений схемы фасетов категории
func (n facetNotifier) schemaChanged(ctx context.Context, categoryID int64) {
	n.invalidate(ctx, categoryID)
	n.publish(ctx, entity.FacetEvent{EventType: entity.FacetEventSchemaChanged, CategoryID: categoryID})
}
