package service

import (
	"context"
	"errors"
	"time"

	"facetsearch/pkg/logger"
	"facetsearch/pkg/metrics"
	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/repository"
	"facetsearch/search-service/internal/app/search/util"
)

// AttributionService - привязки значений фасетов к товарам
type AttributionService struct {
	valueRepo       repository.FilterValueRepository
	attributionRepo repository.AttributionRepository
	productRepo     repository.ProductRepository
	notifier        facetNotifier
}

func NewAttributionService(
	valueRepo repository.FilterValueRepository,
	attributionRepo repository.AttributionRepository,
	productRepo repository.ProductRepository,
	publisher util.MessagePublisher,
) *AttributionService {
	return &AttributionService{
		valueRepo:       valueRepo,
		attributionRepo: attributionRepo,
		productRepo:     productRepo,
		notifier:        facetNotifier{publisher: publisher},
	}
}

// Attach привязывает значение к товару, повторная привязка обновляет value
// Для диапазонного значения value обязателен и должен лежать в [min, max],
// для дискретного value не допускается
func (s *AttributionService) Attach(ctx context.Context, req *entity.AttachFilterRequest) (*entity.FilterProduct, error) {
	exists, err := s.productRepo.Exists(ctx, req.ProductID)
	if err != nil {
		return nil, storeError("check product", err)
	}
	if !exists {
		return nil, notFoundError("product", req.ProductID)
	}

	value, err := s.valueRepo.GetByID(ctx, req.FilterID)
	if err != nil {
		if errors.Is(err, repository.ErrFilterValueNotFound) {
			return nil, notFoundError("filter value", req.FilterID)
		}
		return nil, storeError("get filter value", err)
	}

	switch spec := value.Spec.(type) {
	case entity.Ranged:
		if req.Value == nil {
			return nil, validationError("value is required for ranged filter %d", req.FilterID)
		}
		if !spec.Contains(*req.Value) {
			return nil, validationError("value %g is outside of [%g, %g]", *req.Value, spec.Min, spec.Max)
		}
	case entity.Discrete:
		if req.Value != nil {
			return nil, validationError("value is not allowed for discrete filter %d", req.FilterID)
		}
	}

	now := time.Now()
	fp := &entity.FilterProduct{
		FilterID:  req.FilterID,
		ProductID: req.ProductID,
		Value:     req.Value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.attributionRepo.Upsert(ctx, fp); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, notFoundError("filter value", req.FilterID)
		}
		return nil, storeError("attach filter", err)
	}

	metrics.AttributionChanges.WithLabelValues("attach").Inc()
	s.notifier.publish(ctx, entity.FacetEvent{
		EventType:  entity.FacetEventAttached,
		CategoryID: value.CategoryID,
		FilterID:   req.FilterID,
		ProductID:  req.ProductID,
	})

	return fp, nil
}

// Detach снимает значение с товара
func (s *AttributionService) Detach(ctx context.Context, productID, filterID int64) error {
	value, err := s.valueRepo.GetByID(ctx, filterID)
	if err != nil {
		if errors.Is(err, repository.ErrFilterValueNotFound) {
			return notFoundError("filter value", filterID)
		}
		return storeError("get filter value", err)
	}

	if err := s.attributionRepo.Delete(ctx, productID, filterID); err != nil {
		if errors.Is(err, repository.ErrAttributionNotFound) {
			return notFoundError("filter product", productID)
		}
		return storeError("detach filter", err)
	}

	metrics.AttributionChanges.WithLabelValues("detach").Inc()
	s.notifier.publish(ctx, entity.FacetEvent{
		EventType:  entity.FacetEventDetached,
		CategoryID: value.CategoryID,
		FilterID:   filterID,
		ProductID:  productID,
	})

	return nil
}

// ProductsMatchingFilter - товары, которым привязано дискретное значение
func (s *AttributionService) ProductsMatchingFilter(ctx context.Context, filterID int64) ([]int64, error) {
	ids, err := s.attributionRepo.ProductIDsByFilter(ctx, filterID)
	if err != nil {
		return nil, storeError("products by filter", err)
	}
	return ids, nil
}

// ProductsMatchingFilterRange - товары, чья величина по фасету лежит в [min, max]
func (s *AttributionService) ProductsMatchingFilterRange(ctx context.Context, descriptionID int64, minValue, maxValue float64) ([]int64, error) {
	if minValue > maxValue {
		return nil, validationError("min %g is greater than max %g", minValue, maxValue)
	}

	ids, err := s.attributionRepo.ProductIDsByRange(ctx, descriptionID, minValue, maxValue)
	if err != nil {
		return nil, storeError("products by range", err)
	}
	return ids, nil
}

func (s *AttributionService) ListByProduct(ctx context.Context, productID int64) ([]entity.FilterProduct, error) {
	items, err := s.attributionRepo.GetByProduct(ctx, productID)
	if err != nil {
		return nil, storeError("list filter products by product", err)
	}
	return items, nil
}

func (s *AttributionService) ListByCategory(ctx context.Context, categoryID int64) ([]entity.FilterProduct, error) {
	items, err := s.attributionRepo.GetByCategory(ctx, categoryID)
	if err != nil {
		return nil, storeError("list filter products by category", err)
	}
	return items, nil
}

// PurgeProduct снимает все значения с товара, вызывается при его удалении или деактивации
func (s *AttributionService) PurgeProduct(ctx context.Context, productID int64) (int64, error) {
	removed, err := s.attributionRepo.DeleteByProduct(ctx, productID)
	if err != nil {
		return 0, storeError("purge product attributions", err)
	}

	metrics.AttributionChanges.WithLabelValues("purge").Add(float64(removed))
	logger.Info().
		Int64("product_id", productID).
		Int64("removed", removed).
		Msg("Product attributions purged")

	return removed, nil
}

// SweepOrphans удаляет привязки к удаленным, неактивным или отсутствующим товарам и значениям
func (s *AttributionService) SweepOrphans(ctx context.Context) (int64, error) {
	removed, err := s.attributionRepo.DeleteOrphans(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("failed").Inc()
		return 0, storeError("sweep orphan attributions", err)
	}

	metrics.SweepRuns.WithLabelValues("success").Inc()
	metrics.AttributionChanges.WithLabelValues("sweep").Add(float64(removed))
	logger.Info().Int64("removed", removed).Msg("Orphan attributions swept")

	return removed, nil
}
