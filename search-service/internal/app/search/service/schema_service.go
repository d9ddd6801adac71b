package service

import (
	"context"
	"errors"
	"time"

	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/repository"
	"facetsearch/search-service/internal/app/search/util"
)

// SchemaService - реестр категорий и их фасетов (FilterDescription)
type SchemaService struct {
	categoryRepo    repository.CategoryRepository
	descriptionRepo repository.FilterDescriptionRepository
	notifier        facetNotifier
}

// NewSchemaService создает сервис схемы фасетов с внедрением зависимостей
func NewSchemaService(
	categoryRepo repository.CategoryRepository,
	descriptionRepo repository.FilterDescriptionRepository,
	cache util.FacetCache,
	publisher util.MessagePublisher,
) *SchemaService {
	return &SchemaService{
		categoryRepo:    categoryRepo,
		descriptionRepo: descriptionRepo,
		notifier:        facetNotifier{cache: cache, publisher: publisher},
	}
}

// === CATEGORIES ===

func (s *SchemaService) CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error) {
	category := &entity.Category{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
		CreatedAt:   time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, conflictError("category", 0, "name already exists", err)
		}
		return nil, storeError("create category", err)
	}

	return category, nil
}

func (s *SchemaService) GetCategory(ctx context.Context, id int64) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, notFoundError("category", id)
		}
		return nil, storeError("get category", err)
	}

	return category, nil
}

func (s *SchemaService) ListCategories(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, storeError("list categories", err)
	}

	return categories, nil
}

func (s *SchemaService) UpdateCategory(ctx context.Context, id int64, req *entity.UpdateCategoryRequest) (*entity.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	category.Name = req.Name
	category.Description = req.Description

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, notFoundError("category", id)
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, conflictError("category", id, "name already exists", err)
		}
		return nil, storeError("update category", err)
	}

	return category, nil
}

// DeleteCategory удаляет категорию каскадом вместе с фасетами
// Категорию с товарами удалить нельзя - ConflictError
func (s *SchemaService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return notFoundError("category", id)
		case errors.Is(err, repository.ErrCategoryHasProducts):
			return conflictError("category", id, "category still has products", err)
		}
		return storeError("delete category", err)
	}

	s.notifier.schemaChanged(ctx, id)
	return nil
}

// === FILTER DESCRIPTIONS ===

// GetFilterDescriptionsByCategory возвращает фасеты категории в порядке создания
func (s *SchemaService) GetFilterDescriptionsByCategory(ctx context.Context, categoryID int64) ([]entity.FilterDescription, error) {
	descriptions, err := s.descriptionRepo.GetByCategory(ctx, categoryID)
	if err != nil {
		return nil, storeError("get filter descriptions by category", err)
	}

	return descriptions, nil
}

// GetFilterDescriptionIDsByCategory - только id фасетов категории
func (s *SchemaService) GetFilterDescriptionIDsByCategory(ctx context.Context, categoryID int64) ([]int64, error) {
	descriptions, err := s.GetFilterDescriptionsByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(descriptions))
	for _, d := range descriptions {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *SchemaService) ListFilterDescriptions(ctx context.Context) ([]entity.FilterDescription, error) {
	descriptions, err := s.descriptionRepo.GetAll(ctx)
	if err != nil {
		return nil, storeError("list filter descriptions", err)
	}

	return descriptions, nil
}

func (s *SchemaService) GetFilterDescription(ctx context.Context, id int64) (*entity.FilterDescription, error) {
	description, err := s.descriptionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFilterDescriptionNotFound) {
			return nil, notFoundError("filter description", id)
		}
		return nil, storeError("get filter description", err)
	}

	return description, nil
}

// GetFilterDescriptionsByManager - фасеты категорий, которыми владеет менеджер
func (s *SchemaService) GetFilterDescriptionsByManager(ctx context.Context, managerID int64) ([]entity.FilterDescription, error) {
	descriptions, err := s.descriptionRepo.GetByManager(ctx, managerID)
	if err != nil {
		return nil, storeError("get filter descriptions by manager", err)
	}

	return descriptions, nil
}

// CreateFilterDescription добавляет фасет в категорию
// Несуществующая категория - ValidationError, дубликат имени в категории - ConflictError
func (s *SchemaService) CreateFilterDescription(ctx context.Context, req *entity.CreateFilterDescriptionRequest) (*entity.FilterDescription, error) {
	exists, err := s.categoryRepo.Exists(ctx, req.CategoryID)
	if err != nil {
		return nil, storeError("check category", err)
	}
	if !exists {
		return nil, validationError("category %d does not exist", req.CategoryID)
	}

	description := &entity.FilterDescription{
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		MeasureName:   req.MeasureName,
		PossibleValue: req.PossibleValue,
		CreatedAt:     time.Now(),
	}

	if err := s.descriptionRepo.Create(ctx, description); err != nil {
		switch {
		case errors.Is(err, repository.ErrForeignKey):
			// Категорию удалили между проверкой и вставкой
			return nil, validationError("category %d does not exist", req.CategoryID)
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, conflictError("filter description", 0, "name already used in category", err)
		}
		return nil, storeError("create filter description", err)
	}

	s.notifier.schemaChanged(ctx, description.CategoryID)
	return description, nil
}

// UpdateFilterDescription применяет частичное обновление, категория фасета не меняется
func (s *SchemaService) UpdateFilterDescription(ctx context.Context, id int64, req *entity.UpdateFilterDescriptionRequest) (*entity.FilterDescription, error) {
	description, err := s.GetFilterDescription(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		description.Name = *req.Name
	}
	if req.Description != nil {
		description.Description = req.Description
	}
	if req.MeasureName != nil {
		description.MeasureName = req.MeasureName
	}
	if req.PossibleValue != nil {
		description.PossibleValue = req.PossibleValue
	}

	if err := s.descriptionRepo.Update(ctx, description); err != nil {
		switch {
		case errors.Is(err, repository.ErrFilterDescriptionNotFound):
			return nil, notFoundError("filter description", id)
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, conflictError("filter description", id, "name already used in category", err)
		}
		return nil, storeError("update filter description", err)
	}

	s.notifier.schemaChanged(ctx, description.CategoryID)
	return description, nil
}

// DeleteFilterDescription удаляет фасет каскадом: значения и привязки к товарам
func (s *SchemaService) DeleteFilterDescription(ctx context.Context, id int64) error {
	description, err := s.GetFilterDescription(ctx, id)
	if err != nil {
		return err
	}

	if err := s.descriptionRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrFilterDescriptionNotFound) {
			return notFoundError("filter description", id)
		}
		return storeError("delete filter description", err)
	}

	s.notifier.schemaChanged(ctx, description.CategoryID)
	return nil
}
