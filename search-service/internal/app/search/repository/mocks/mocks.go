package mocks

import (
	"context"
	"time"

	"facetsearch/search-service/internal/app/search/entity"

	"github.com/stretchr/testify/mock"
)

// MockCategoryRepository мок для CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *entity.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Category), args.Error(1)
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *entity.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCategoryRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockFilterDescriptionRepository мок для FilterDescriptionRepository
type MockFilterDescriptionRepository struct {
	mock.Mock
}

func (m *MockFilterDescriptionRepository) Create(ctx context.Context, d *entity.FilterDescription) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockFilterDescriptionRepository) GetByID(ctx context.Context, id int64) (*entity.FilterDescription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FilterDescription), args.Error(1)
}

func (m *MockFilterDescriptionRepository) GetAll(ctx context.Context) ([]entity.FilterDescription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FilterDescription), args.Error(1)
}

func (m *MockFilterDescriptionRepository) GetByCategory(ctx context.Context, categoryID int64) ([]entity.FilterDescription, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FilterDescription), args.Error(1)
}

func (m *MockFilterDescriptionRepository) GetByManager(ctx context.Context, managerID int64) ([]entity.FilterDescription, error) {
	args := m.Called(ctx, managerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FilterDescription), args.Error(1)
}

func (m *MockFilterDescriptionRepository) Update(ctx context.Context, d *entity.FilterDescription) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockFilterDescriptionRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockFilterValueRepository мок для FilterValueRepository
type MockFilterValueRepository struct {
	mock.Mock
}

func (m *MockFilterValueRepository) Create(ctx context.Context, value *entity.FilterValue) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *MockFilterValueRepository) GetByID(ctx context.Context, id int64) (*entity.ResolvedFilterValue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ResolvedFilterValue), args.Error(1)
}

func (m *MockFilterValueRepository) GetByIDs(ctx context.Context, ids []int64) ([]entity.ResolvedFilterValue, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ResolvedFilterValue), args.Error(1)
}

func (m *MockFilterValueRepository) GetByDescription(ctx context.Context, descriptionID int64) ([]entity.FilterValue, error) {
	args := m.Called(ctx, descriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FilterValue), args.Error(1)
}

func (m *MockFilterValueRepository) GetByCategory(ctx context.Context, categoryID int64) ([]entity.FilterValue, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FilterValue), args.Error(1)
}

func (m *MockFilterValueRepository) GetByManager(ctx context.Context, managerID int64) ([]entity.FilterValue, error) {
	args := m.Called(ctx, managerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FilterValue), args.Error(1)
}

func (m *MockFilterValueRepository) Update(ctx context.Context, value *entity.FilterValue) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *MockFilterValueRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAttributionRepository мок для AttributionRepository
type MockAttributionRepository struct {
	mock.Mock
}

func (m *MockAttributionRepository) Upsert(ctx context.Context, fp *entity.FilterProduct) error {
	args := m.Called(ctx, fp)
	return args.Error(0)
}

func (m *MockAttributionRepository) Delete(ctx context.Context, productID, filterID int64) error {
	args := m.Called(ctx, productID, filterID)
	return args.Error(0)
}

func (m *MockAttributionRepository) GetByProduct(ctx context.Context, productID int64) ([]entity.FilterProduct, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FilterProduct), args.Error(1)
}

func (m *MockAttributionRepository) GetByCategory(ctx context.Context, categoryID int64) ([]entity.FilterProduct, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FilterProduct), args.Error(1)
}

func (m *MockAttributionRepository) ProductIDsByFilter(ctx context.Context, filterID int64) ([]int64, error) {
	args := m.Called(ctx, filterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Функция вместо значения позволяет отдавать текущее состояние привязок
	if fn, ok := args.Get(0).(func(context.Context, int64) []int64); ok {
		return fn(ctx, filterID), args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAttributionRepository) ProductIDsByRange(ctx context.Context, descriptionID int64, minValue, maxValue float64) ([]int64, error) {
	args := m.Called(ctx, descriptionID, minValue, maxValue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAttributionRepository) DeleteByProduct(ctx context.Context, productID int64) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttributionRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockProductRepository мок для ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) AllActiveIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockProductRepository) IDsInCategory(ctx context.Context, categoryID int64) ([]int64, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockProductRepository) IDsMatchingText(ctx context.Context, query string) ([]int64, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockProductRepository) FetchByIDs(ctx context.Context, ids []int64) ([]entity.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *MockProductRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockFacetCache мок для FacetCache
type MockFacetCache struct {
	mock.Mock
}

func (m *MockFacetCache) SetFacets(ctx context.Context, categoryID int64, facets []entity.Facet, ttl time.Duration) error {
	args := m.Called(ctx, categoryID, facets, ttl)
	return args.Error(0)
}

func (m *MockFacetCache) GetFacets(ctx context.Context, categoryID int64) ([]entity.Facet, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Facet), args.Error(1)
}

func (m *MockFacetCache) DeleteFacets(ctx context.Context, categoryID int64) error {
	args := m.Called(ctx, categoryID)
	return args.Error(0)
}

func (m *MockFacetCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockMessagePublisher мок для MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) PublishMessage(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
