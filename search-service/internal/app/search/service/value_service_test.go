package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/repository"
	"facetsearch/search-service/internal/app/search/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testFacetTTL = 10 * time.Minute

type valueDeps struct {
	descriptionRepo *mocks.MockFilterDescriptionRepository
	valueRepo       *mocks.MockFilterValueRepository
	cache           *mocks.MockFacetCache
	publisher       *mocks.MockMessagePublisher
}

func newValueService() (*ValueService, valueDeps) {
	deps := valueDeps{
		descriptionRepo: new(mocks.MockFilterDescriptionRepository),
		valueRepo:       new(mocks.MockFilterValueRepository),
		cache:           new(mocks.MockFacetCache),
		publisher:       new(mocks.MockMessagePublisher),
	}
	return NewValueService(deps.descriptionRepo, deps.valueRepo, deps.cache, deps.publisher, testFacetTTL), deps
}

func (d valueDeps) expectSchemaChanged(ctx context.Context, categoryID int64, key string) {
	d.cache.On("DeleteFacets", ctx, categoryID).Return(nil)
	d.publisher.On("PublishMessage", ctx, key, mock.Anything).Return(nil)
}

// ==================== CreateValue ====================

func TestValueService_CreateValue_Discrete(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	deps.descriptionRepo.On("GetByID", ctx, int64(100)).Return(&entity.FilterDescription{ID: 100, CategoryID: 10}, nil)
	deps.valueRepo.On("Create", ctx, mock.AnythingOfType("*entity.FilterValue")).Return(nil)
	deps.expectSchemaChanged(ctx, 10, "10")

	// Act
	value, err := service.CreateValue(ctx, &entity.FilterValueRequest{DescriptionID: 100, PossibleValue: strPtr("Red")})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.Discrete{Value: "Red"}, value.Spec)
	assert.False(t, value.IsRanged())
	deps.valueRepo.AssertExpectations(t)
	deps.cache.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}

func TestValueService_CreateValue_Ranged(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	deps.descriptionRepo.On("GetByID", ctx, int64(101)).Return(&entity.FilterDescription{ID: 101, CategoryID: 10}, nil)
	deps.valueRepo.On("Create", ctx, mock.AnythingOfType("*entity.FilterValue")).Return(nil)
	deps.expectSchemaChanged(ctx, 10, "10")

	// Act
	value, err := service.CreateValue(ctx, &entity.FilterValueRequest{
		DescriptionID: 101,
		IsRanged:      true,
		MinValue:      float(10),
		MaxValue:      float(20),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.Ranged{Min: 10, Max: 20}, value.Spec)
}

func TestValueService_CreateValue_InvalidVariants(t *testing.T) {
	cases := []struct {
		name string
		req  entity.FilterValueRequest
	}{
		{name: "nothing set", req: entity.FilterValueRequest{DescriptionID: 100}},
		{name: "both set", req: entity.FilterValueRequest{DescriptionID: 100, PossibleValue: strPtr("Red"), IsRanged: true, MinValue: float(1), MaxValue: float(2)}},
		{name: "min above max", req: entity.FilterValueRequest{DescriptionID: 100, IsRanged: true, MinValue: float(5), MaxValue: float(1)}},
		{name: "ranged without max", req: entity.FilterValueRequest{DescriptionID: 100, IsRanged: true, MinValue: float(5)}},
		{name: "discrete with bounds", req: entity.FilterValueRequest{DescriptionID: 100, PossibleValue: strPtr("Red"), MinValue: float(5)}},
		{name: "blank possible value", req: entity.FilterValueRequest{DescriptionID: 100, PossibleValue: strPtr("   ")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			service, deps := newValueService()

			// Act
			value, err := service.CreateValue(context.Background(), &tc.req)

			// Assert
			assert.Nil(t, value)
			assert.ErrorIs(t, err, ErrValidation)
			deps.valueRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestValueService_CreateValue_UnknownDescription(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	deps.descriptionRepo.On("GetByID", ctx, int64(100)).Return(nil, repository.ErrFilterDescriptionNotFound)

	// Act
	value, err := service.CreateValue(ctx, &entity.FilterValueRequest{DescriptionID: 100, PossibleValue: strPtr("Red")})

	// Assert
	assert.Nil(t, value)
	assert.ErrorIs(t, err, ErrValidation)
}

// ==================== Update / Delete ====================

func TestValueService_UpdateValue_MovedBetweenCategories(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	deps.valueRepo.On("GetByID", ctx, int64(1)).Return(&entity.ResolvedFilterValue{
		FilterValue: entity.FilterValue{ID: 1, DescriptionID: 100, Spec: entity.Discrete{Value: "Red"}},
		CategoryID:  10,
	}, nil)
	deps.descriptionRepo.On("GetByID", ctx, int64(200)).Return(&entity.FilterDescription{ID: 200, CategoryID: 20}, nil)
	deps.valueRepo.On("Update", ctx, mock.AnythingOfType("*entity.FilterValue")).Return(nil)
	deps.expectSchemaChanged(ctx, 20, "20")
	deps.expectSchemaChanged(ctx, 10, "10")

	// Act
	value, err := service.UpdateValue(ctx, 1, &entity.FilterValueRequest{DescriptionID: 200, PossibleValue: strPtr("Hard")})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(1), value.ID)
	assert.Equal(t, int64(200), value.DescriptionID)
	deps.cache.AssertExpectations(t)
}

func TestValueService_UpdateValue_NotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	deps.valueRepo.On("GetByID", ctx, int64(1)).Return(nil, repository.ErrFilterValueNotFound)

	// Act
	value, err := service.UpdateValue(ctx, 1, &entity.FilterValueRequest{DescriptionID: 100, PossibleValue: strPtr("Red")})

	// Assert
	assert.Nil(t, value)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValueService_DeleteValue_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	deps.valueRepo.On("GetByID", ctx, int64(1)).Return(&entity.ResolvedFilterValue{
		FilterValue: entity.FilterValue{ID: 1, DescriptionID: 100, Spec: entity.Discrete{Value: "Red"}},
		CategoryID:  10,
	}, nil)
	deps.valueRepo.On("Delete", ctx, int64(1)).Return(nil)
	deps.expectSchemaChanged(ctx, 10, "10")

	// Act
	err := service.DeleteValue(ctx, 1)

	// Assert
	require.NoError(t, err)
	deps.valueRepo.AssertExpectations(t)
}

// ==================== GetValuesByCategory ====================

func TestValueService_GetValuesByCategory_CacheHit(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	cached := []entity.Facet{{Description: entity.FilterDescription{ID: 100, Name: "Color"}}}
	deps.cache.On("GetFacets", ctx, int64(10)).Return(cached, nil)

	// Act
	facets, err := service.GetValuesByCategory(ctx, 10)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, cached, facets)
	deps.descriptionRepo.AssertNotCalled(t, "GetByCategory", mock.Anything, mock.Anything)
}

func TestValueService_GetValuesByCategory_CacheMiss(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	color := entity.FilterDescription{ID: 100, Name: "Color", CategoryID: 10}
	memory := entity.FilterDescription{ID: 101, Name: "Memory", CategoryID: 10}
	red := entity.FilterValue{ID: 1, DescriptionID: 100, Spec: entity.Discrete{Value: "Red"}}
	blue := entity.FilterValue{ID: 2, DescriptionID: 100, Spec: entity.Discrete{Value: "Blue"}}

	deps.cache.On("GetFacets", ctx, int64(10)).Return(nil, nil)
	deps.descriptionRepo.On("GetByCategory", ctx, int64(10)).Return([]entity.FilterDescription{color, memory}, nil)
	deps.valueRepo.On("GetByCategory", ctx, int64(10)).Return([]entity.FilterValue{red, blue}, nil)

	expected := []entity.Facet{
		{Description: color, Values: []entity.FilterValue{red, blue}},
		{Description: memory, Values: []entity.FilterValue{}},
	}
	deps.cache.On("SetFacets", ctx, int64(10), expected, testFacetTTL).Return(nil)

	// Act
	facets, err := service.GetValuesByCategory(ctx, 10)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, expected, facets)
	deps.cache.AssertExpectations(t)
}

func TestValueService_GetValuesByCategory_CacheErrorFallsBackToStore(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	deps.cache.On("GetFacets", ctx, int64(10)).Return(nil, errors.New("redis down"))
	deps.descriptionRepo.On("GetByCategory", ctx, int64(10)).Return([]entity.FilterDescription{}, nil)
	deps.valueRepo.On("GetByCategory", ctx, int64(10)).Return([]entity.FilterValue{}, nil)
	deps.cache.On("SetFacets", ctx, int64(10), mock.Anything, testFacetTTL).Return(errors.New("redis down"))

	// Act
	facets, err := service.GetValuesByCategory(ctx, 10)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, facets)
}

// ==================== ResolveFilterIDs ====================

func TestValueService_ResolveFilterIDs_DropsForeignAndUnknown(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	red := entity.ResolvedFilterValue{FilterValue: entity.FilterValue{ID: 1, DescriptionID: 100, Spec: entity.Discrete{Value: "Red"}}, CategoryID: 10}
	cover := entity.ResolvedFilterValue{FilterValue: entity.FilterValue{ID: 4, DescriptionID: 200, Spec: entity.Discrete{Value: "Hard"}}, CategoryID: 20}
	deps.valueRepo.On("GetByIDs", ctx, []int64{1, 4, 99}).Return([]entity.ResolvedFilterValue{red, cover}, nil)

	// Act
	resolved, dropped, err := service.ResolveFilterIDs(ctx, categoryPtr(10), []int64{1, 4, 1, 99, 0, -3})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []entity.ResolvedFilterValue{red}, resolved)
	assert.Equal(t, 2, dropped)
}

func TestValueService_ResolveFilterIDs_NoCategoryKeepsAll(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service, deps := newValueService()

	red := entity.ResolvedFilterValue{FilterValue: entity.FilterValue{ID: 1, DescriptionID: 100, Spec: entity.Discrete{Value: "Red"}}, CategoryID: 10}
	cover := entity.ResolvedFilterValue{FilterValue: entity.FilterValue{ID: 4, DescriptionID: 200, Spec: entity.Discrete{Value: "Hard"}}, CategoryID: 20}
	deps.valueRepo.On("GetByIDs", ctx, []int64{1, 4}).Return([]entity.ResolvedFilterValue{red, cover}, nil)

	// Act
	resolved, dropped, err := service.ResolveFilterIDs(ctx, nil, []int64{1, 4})

	// Assert
	require.NoError(t, err)
	assert.Len(t, resolved, 2)
	assert.Zero(t, dropped)
}

func TestValueService_ResolveFilterIDs_Empty(t *testing.T) {
	// Arrange
	service, deps := newValueService()

	// Act
	resolved, dropped, err := service.ResolveFilterIDs(context.Background(), categoryPtr(10), nil)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Zero(t, dropped)
	deps.valueRepo.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
}
