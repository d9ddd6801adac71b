package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/repository"
	"facetsearch/search-service/internal/app/search/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type attributionDeps struct {
	valueRepo       *mocks.MockFilterValueRepository
	attributionRepo *mocks.MockAttributionRepository
	productRepo     *mocks.MockProductRepository
	publisher       *mocks.MockMessagePublisher
}

func newAttributionService() (*AttributionService, attributionDeps) {
	deps := attributionDeps{
		valueRepo:       new(mocks.MockFilterValueRepository),
		attributionRepo: new(mocks.MockAttributionRepository),
		productRepo:     new(mocks.MockProductRepository),
		publisher:       new(mocks.MockMessagePublisher),
	}
	return NewAttributionService(deps.valueRepo, deps.attributionRepo, deps.productRepo, deps.publisher), deps
}

func discreteValue(id, categoryID int64) *entity.ResolvedFilterValue {
	return &entity.ResolvedFilterValue{
		FilterValue: entity.FilterValue{ID: id, DescriptionID: 100, Spec: entity.Discrete{Value: "Red"}},
		CategoryID:  categoryID,
	}
}

func rangedValue(id, categoryID int64) *entity.ResolvedFilterValue {
	return &entity.ResolvedFilterValue{
		FilterValue: entity.FilterValue{ID: id, DescriptionID: 101, Spec: entity.Ranged{Min: 10, Max: 20}},
		CategoryID:  categoryID,
	}
}

// ==================== Attach ====================

func TestAttributionService_Attach_Discrete(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.productRepo.On("Exists", ctx, int64(1)).Return(true, nil)
	deps.valueRepo.On("GetByID", ctx, int64(7)).Return(discreteValue(7, 10), nil)
	deps.attributionRepo.On("Upsert", ctx, mock.AnythingOfType("*entity.FilterProduct")).Return(nil)

	var published entity.FacetEvent
	deps.publisher.On("PublishMessage", ctx, "10", mock.Anything).
		Run(func(args mock.Arguments) {
			_ = json.Unmarshal(args.Get(2).([]byte), &published)
		}).
		Return(nil)

	// Act
	fp, err := service.Attach(ctx, &entity.AttachFilterRequest{FilterID: 7, ProductID: 1})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(7), fp.FilterID)
	assert.Equal(t, int64(1), fp.ProductID)
	assert.Nil(t, fp.Value)
	assert.Equal(t, entity.FacetEventAttached, published.EventType)
	assert.Equal(t, int64(1), published.ProductID)
	deps.attributionRepo.AssertExpectations(t)
}

func TestAttributionService_Attach_RangedWithinBounds(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.productRepo.On("Exists", ctx, int64(1)).Return(true, nil)
	deps.valueRepo.On("GetByID", ctx, int64(8)).Return(rangedValue(8, 10), nil)
	deps.attributionRepo.On("Upsert", ctx, mock.MatchedBy(func(fp *entity.FilterProduct) bool {
		return fp.Value != nil && *fp.Value == 15
	})).Return(nil)
	deps.publisher.On("PublishMessage", ctx, "10", mock.Anything).Return(nil)

	// Act
	fp, err := service.Attach(ctx, &entity.AttachFilterRequest{FilterID: 8, ProductID: 1, Value: float(15)})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 15.0, *fp.Value)
	deps.attributionRepo.AssertExpectations(t)
}

func TestAttributionService_Attach_ValueRules(t *testing.T) {
	cases := []struct {
		name  string
		value *entity.ResolvedFilterValue
		req   entity.AttachFilterRequest
	}{
		{name: "ranged outside bounds", value: rangedValue(8, 10), req: entity.AttachFilterRequest{FilterID: 8, ProductID: 1, Value: float(25)}},
		{name: "ranged without value", value: rangedValue(8, 10), req: entity.AttachFilterRequest{FilterID: 8, ProductID: 1}},
		{name: "discrete with value", value: discreteValue(7, 10), req: entity.AttachFilterRequest{FilterID: 7, ProductID: 1, Value: float(1)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			ctx := context.Background()
			service, deps := newAttributionService()

			deps.productRepo.On("Exists", ctx, int64(1)).Return(true, nil)
			deps.valueRepo.On("GetByID", ctx, tc.req.FilterID).Return(tc.value, nil)

			// Act
			fp, err := service.Attach(ctx, &tc.req)

			// Assert
			assert.Nil(t, fp)
			assert.ErrorIs(t, err, ErrValidation)
			deps.attributionRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestAttributionService_Attach_UnknownProduct(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.productRepo.On("Exists", ctx, int64(1)).Return(false, nil)

	// Act
	fp, err := service.Attach(ctx, &entity.AttachFilterRequest{FilterID: 7, ProductID: 1})

	// Assert
	assert.Nil(t, fp)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "product 1")
}

func TestAttributionService_Attach_UnknownValue(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.productRepo.On("Exists", ctx, int64(1)).Return(true, nil)
	deps.valueRepo.On("GetByID", ctx, int64(7)).Return(nil, repository.ErrFilterValueNotFound)

	// Act
	fp, err := service.Attach(ctx, &entity.AttachFilterRequest{FilterID: 7, ProductID: 1})

	// Assert
	assert.Nil(t, fp)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "filter value 7")
}

func TestAttributionService_Attach_StoreError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.productRepo.On("Exists", ctx, int64(1)).Return(true, nil)
	deps.valueRepo.On("GetByID", ctx, int64(7)).Return(discreteValue(7, 10), nil)
	deps.attributionRepo.On("Upsert", ctx, mock.Anything).Return(errors.New("connection refused"))

	// Act
	fp, err := service.Attach(ctx, &entity.AttachFilterRequest{FilterID: 7, ProductID: 1})

	// Assert
	assert.Nil(t, fp)
	assert.ErrorIs(t, err, ErrStore)
	deps.publisher.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything, mock.Anything)
}

// ==================== Detach ====================

func TestAttributionService_Detach_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.valueRepo.On("GetByID", ctx, int64(7)).Return(discreteValue(7, 10), nil)
	deps.attributionRepo.On("Delete", ctx, int64(1), int64(7)).Return(nil)
	deps.publisher.On("PublishMessage", ctx, "10", mock.Anything).Return(nil)

	// Act
	err := service.Detach(ctx, 1, 7)

	// Assert
	require.NoError(t, err)
	deps.attributionRepo.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}

func TestAttributionService_Detach_NotAttached(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.valueRepo.On("GetByID", ctx, int64(7)).Return(discreteValue(7, 10), nil)
	deps.attributionRepo.On("Delete", ctx, int64(1), int64(7)).Return(repository.ErrAttributionNotFound)

	// Act
	err := service.Detach(ctx, 1, 7)

	// Assert
	assert.ErrorIs(t, err, ErrNotFound)
}

// Привязка видна в ProductsMatchingFilter после Attach и пропадает после Detach
func TestAttributionService_AttachDetachRoundTrip(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	attached := map[int64]bool{}

	deps.productRepo.On("Exists", ctx, int64(1)).Return(true, nil)
	deps.valueRepo.On("GetByID", ctx, int64(7)).Return(discreteValue(7, 10), nil)
	deps.publisher.On("PublishMessage", ctx, "10", mock.Anything).Return(nil)
	deps.attributionRepo.On("Upsert", ctx, mock.Anything).
		Run(func(args mock.Arguments) { attached[args.Get(1).(*entity.FilterProduct).ProductID] = true }).
		Return(nil)
	deps.attributionRepo.On("Delete", ctx, int64(1), int64(7)).
		Run(func(args mock.Arguments) { delete(attached, args.Get(1).(int64)) }).
		Return(nil)
	deps.attributionRepo.On("ProductIDsByFilter", ctx, int64(7)).
		Return(func(context.Context, int64) []int64 {
			ids := []int64{}
			for id := range attached {
				ids = append(ids, id)
			}
			return ids
		}, nil)

	// Act & Assert
	_, err := service.Attach(ctx, &entity.AttachFilterRequest{FilterID: 7, ProductID: 1})
	require.NoError(t, err)

	ids, err := service.ProductsMatchingFilter(ctx, 7)
	require.NoError(t, err)
	assert.Contains(t, ids, int64(1))

	require.NoError(t, service.Detach(ctx, 1, 7))

	ids, err = service.ProductsMatchingFilter(ctx, 7)
	require.NoError(t, err)
	assert.NotContains(t, ids, int64(1))
}

func TestAttributionService_ProductsMatchingFilterRange_InvalidBounds(t *testing.T) {
	// Arrange
	service, deps := newAttributionService()

	// Act
	ids, err := service.ProductsMatchingFilterRange(context.Background(), 101, 20, 10)

	// Assert
	assert.Nil(t, ids)
	assert.ErrorIs(t, err, ErrValidation)
	deps.attributionRepo.AssertNotCalled(t, "ProductIDsByRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAttributionService_ProductsMatchingFilterRange(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.attributionRepo.On("ProductIDsByRange", ctx, int64(101), 10.0, 20.0).Return([]int64{1}, nil)

	// Act
	ids, err := service.ProductsMatchingFilterRange(ctx, 101, 10, 20)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

// ==================== Maintenance ====================

func TestAttributionService_PurgeProduct(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.attributionRepo.On("DeleteByProduct", ctx, int64(1)).Return(int64(3), nil)

	// Act
	removed, err := service.PurgeProduct(ctx, 1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestAttributionService_SweepOrphans(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.attributionRepo.On("DeleteOrphans", ctx).Return(int64(5), nil)

	// Act
	removed, err := service.SweepOrphans(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(5), removed)
}

func TestAttributionService_SweepOrphans_StoreError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newAttributionService()

	deps.attributionRepo.On("DeleteOrphans", ctx).Return(int64(0), errors.New("connection refused"))

	// Act
	removed, err := service.SweepOrphans(ctx)

	// Assert
	assert.Zero(t, removed)
	assert.ErrorIs(t, err, ErrStore)
}
