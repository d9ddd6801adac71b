package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"facetsearch/pkg/logger"
	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/repository"
	"facetsearch/search-service/internal/app/search/util"
)

// ValueService - каталог значений фасетов (дискретных и диапазонных)
type ValueService struct {
	descriptionRepo repository.FilterDescriptionRepository
	valueRepo       repository.FilterValueRepository
	cache           util.FacetCache
	cacheTTL        time.Duration
	notifier        facetNotifier
}

func NewValueService(
	descriptionRepo repository.FilterDescriptionRepository,
	valueRepo repository.FilterValueRepository,
	cache util.FacetCache,
	publisher util.MessagePublisher,
	cacheTTL time.Duration,
) *ValueService {
	return &ValueService{
		descriptionRepo: descriptionRepo,
		valueRepo:       valueRepo,
		cache:           cache,
		cacheTTL:        cacheTTL,
		notifier:        facetNotifier{cache: cache, publisher: publisher},
	}
}

func (s *ValueService) GetValuesByDescription(ctx context.Context, descriptionID int64) ([]entity.FilterValue, error) {
	values, err := s.valueRepo.GetByDescription(ctx, descriptionID)
	if err != nil {
		return nil, storeError("get filter values by description", err)
	}

	return values, nil
}

func (s *ValueService) GetValue(ctx context.Context, id int64) (*entity.FilterValue, error) {
	resolved, err := s.valueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFilterValueNotFound) {
			return nil, notFoundError("filter value", id)
		}
		return nil, storeError("get filter value", err)
	}

	return &resolved.FilterValue, nil
}

// GetValuesByManager - значения фасетов всех категорий менеджера
func (s *ValueService) GetValuesByManager(ctx context.Context, managerID int64) ([]entity.FilterValue, error) {
	values, err := s.valueRepo.GetByManager(ctx, managerID)
	if err != nil {
		return nil, storeError("get filter values by manager", err)
	}

	return values, nil
}

// CreateValue проверяет вариант (ровно одно из possible_value / is_ranged с min <= max)
// и существование фасета, затем сохраняет значение
func (s *ValueService) CreateValue(ctx context.Context, req *entity.FilterValueRequest) (*entity.FilterValue, error) {
	spec, err := req.Spec()
	if err != nil {
		return nil, validationError("exactly one of possible_value or is_ranged with min_value <= max_value is required")
	}

	description, err := s.requireDescription(ctx, req.DescriptionID)
	if err != nil {
		return nil, err
	}

	value := &entity.FilterValue{DescriptionID: req.DescriptionID, Spec: spec}
	if err := s.valueRepo.Create(ctx, value); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, validationError("filter description %d does not exist", req.DescriptionID)
		}
		return nil, storeError("create filter value", err)
	}

	s.notifier.schemaChanged(ctx, description.CategoryID)
	return value, nil
}

// UpdateValue заменяет вариант значения целиком, правила те же, что при создании
func (s *ValueService) UpdateValue(ctx context.Context, id int64, req *entity.FilterValueRequest) (*entity.FilterValue, error) {
	spec, err := req.Spec()
	if err != nil {
		return nil, validationError("exactly one of possible_value or is_ranged with min_value <= max_value is required")
	}

	current, err := s.valueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFilterValueNotFound) {
			return nil, notFoundError("filter value", id)
		}
		return nil, storeError("get filter value", err)
	}

	description, err := s.requireDescription(ctx, req.DescriptionID)
	if err != nil {
		return nil, err
	}

	value := &entity.FilterValue{ID: id, DescriptionID: req.DescriptionID, Spec: spec}
	if err := s.valueRepo.Update(ctx, value); err != nil {
		switch {
		case errors.Is(err, repository.ErrFilterValueNotFound):
			return nil, notFoundError("filter value", id)
		case errors.Is(err, repository.ErrForeignKey):
			return nil, validationError("filter description %d does not exist", req.DescriptionID)
		}
		return nil, storeError("update filter value", err)
	}

	s.notifier.schemaChanged(ctx, description.CategoryID)
	if current.CategoryID != description.CategoryID {
		s.notifier.schemaChanged(ctx, current.CategoryID)
	}
	return value, nil
}

// DeleteValue удаляет значение вместе с привязками к товарам
func (s *ValueService) DeleteValue(ctx context.Context, id int64) error {
	current, err := s.valueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFilterValueNotFound) {
			return notFoundError("filter value", id)
		}
		return storeError("get filter value", err)
	}

	if err := s.valueRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrFilterValueNotFound) {
			return notFoundError("filter value", id)
		}
		return storeError("delete filter value", err)
	}

	s.notifier.schemaChanged(ctx, current.CategoryID)
	return nil
}

// GetValuesByCategory собирает карту фасет -> значения для UI фильтров
// Сначала проверяет кеш Redis, при промахе собирает из PostgreSQL и кеширует
func (s *ValueService) GetValuesByCategory(ctx context.Context, categoryID int64) ([]entity.Facet, error) {
	if s.cache != nil {
		facets, err := s.cache.GetFacets(ctx, categoryID)
		if err != nil {
			logger.Warn().Err(err).Int64("category_id", categoryID).Msg("Failed to read facets cache")
		} else if facets != nil {
			return facets, nil
		}
	}

	descriptions, err := s.descriptionRepo.GetByCategory(ctx, categoryID)
	if err != nil {
		return nil, storeError("get filter descriptions by category", err)
	}

	values, err := s.valueRepo.GetByCategory(ctx, categoryID)
	if err != nil {
		return nil, storeError("get filter values by category", err)
	}

	byDescription := make(map[int64][]entity.FilterValue, len(descriptions))
	for _, v := range values {
		byDescription[v.DescriptionID] = append(byDescription[v.DescriptionID], v)
	}

	facets := make([]entity.Facet, 0, len(descriptions))
	for _, d := range descriptions {
		facetValues := byDescription[d.ID]
		if facetValues == nil {
			facetValues = []entity.FilterValue{}
		}
		facets = append(facets, entity.Facet{Description: d, Values: facetValues})
	}

	if s.cache != nil {
		if err := s.cache.SetFacets(ctx, categoryID, facets, s.cacheTTL); err != nil {
			logger.Warn().Err(err).Int64("category_id", categoryID).Msg("Failed to cache facets")
		}
	}

	return facets, nil
}

// ResolveFilterIDs превращает выбранные покупателем id значений в значения фасетов
// Повторы схлопываются. Неизвестные id и id фасетов другой категории (при заданной categoryID)
// отбрасываются без ошибки: фильтры лишь сужают выборку, категория главнее
func (s *ValueService) ResolveFilterIDs(ctx context.Context, categoryID *int64, ids []int64) ([]entity.ResolvedFilterValue, int, error) {
	unique := dedupeIDs(ids)
	if len(unique) == 0 {
		return []entity.ResolvedFilterValue{}, 0, nil
	}

	found, err := s.valueRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, 0, storeError("resolve filter values", err)
	}

	resolved := make([]entity.ResolvedFilterValue, 0, len(found))
	for _, v := range found {
		if categoryID != nil && v.CategoryID != *categoryID {
			continue
		}
		resolved = append(resolved, v)
	}

	return resolved, len(unique) - len(resolved), nil
}

func (s *ValueService) requireDescription(ctx context.Context, descriptionID int64) (*entity.FilterDescription, error) {
	description, err := s.descriptionRepo.GetByID(ctx, descriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrFilterDescriptionNotFound) {
			return nil, validationError("filter description %d does not exist", descriptionID)
		}
		return nil, storeError("get filter description", err)
	}
	return description, nil
}

// dedupeIDs убирает повторы и неположительные id, порядок первых вхождений сохраняется
func dedupeIDs(ids []int64) []int64 {
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || slices.Contains(unique, id) {
			continue
		}
		unique = append(unique, id)
	}
	return unique
}
