package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSearchService мок для SearchServiceInterface
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, req entity.SearchRequest) (*entity.SearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SearchResult), args.Error(1)
}

func setupSearchRouter(searchService service.SearchServiceInterface, timeout time.Duration) *gin.Engine {
	handler := NewSearchHandler(searchService, 20, timeout)
	router := gin.New()
	router.GET("/api/search", handler.SearchGet)
	router.POST("/api/search", handler.SearchPost)
	return router
}

func TestSearchHandler_Get_Defaults(t *testing.T) {
	// Arrange
	searchService := new(MockSearchService)
	searchService.On("Search", mock.Anything, entity.SearchRequest{CurrentPage: 1, ItemsPerPage: 20}).
		Return(&entity.SearchResult{Products: []entity.Product{{ID: 1}}, TotalProducts: 41}, nil)

	router := setupSearchRouter(searchService, time.Second)

	// Act
	w := performRequest(router, http.MethodGet, "/api/search", nil)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)

	var resp entity.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 41, resp.TotalProducts)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 1, resp.CurrentPage)
	assert.Equal(t, 20, resp.ItemsPerPage)
	searchService.AssertExpectations(t)
}

func TestSearchHandler_Get_QueryParameters(t *testing.T) {
	// Arrange
	categoryID := int64(10)
	expected := entity.SearchRequest{
		SearchQuery:        "phone",
		CurrentPage:        2,
		ItemsPerPage:       5,
		SelectedCategoryID: &categoryID,
		FilterIDs:          []int64{1, 3},
	}

	searchService := new(MockSearchService)
	searchService.On("Search", mock.Anything, expected).
		Return(&entity.SearchResult{Products: []entity.Product{}, TotalProducts: 0}, nil)

	router := setupSearchRouter(searchService, time.Second)

	// Act
	w := performRequest(router, http.MethodGet, "/api/search?q=phone&page=2&limit=5&category_id=10&filter_ids=1&filter_ids=3", nil)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	searchService.AssertExpectations(t)
}

func TestSearchHandler_Get_InvalidNumber(t *testing.T) {
	// Arrange
	searchService := new(MockSearchService)
	router := setupSearchRouter(searchService, time.Second)

	// Act
	w := performRequest(router, http.MethodGet, "/api/search?page=abc", nil)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	searchService.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSearchHandler_Post_ValidationErrorFromService(t *testing.T) {
	// Arrange
	searchService := new(MockSearchService)
	searchService.On("Search", mock.Anything, mock.Anything).
		Return(nil, &service.Error{Kind: service.ErrValidation, Reason: "current_page must be positive, got 0"})

	router := setupSearchRouter(searchService, time.Second)

	// Act
	w := performRequest(router, http.MethodPost, "/api/search", `{"search_query": "phone", "items_per_page": 10}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "current_page")
}

func TestSearchHandler_Post_AppliesTimeout(t *testing.T) {
	// Arrange
	searchService := new(MockSearchService)
	searchService.On("Search", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 50*time.Millisecond
	}), mock.Anything).Return(nil, &service.Error{Kind: service.ErrTimeout, Err: context.DeadlineExceeded})

	router := setupSearchRouter(searchService, 50*time.Millisecond)

	// Act
	w := performRequest(router, http.MethodPost, "/api/search", `{"current_page": 1, "items_per_page": 10}`)

	// Assert
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	searchService.AssertExpectations(t)
}

func TestSearchHandler_Post_TooLongQuery(t *testing.T) {
	// Arrange
	searchService := new(MockSearchService)
	router := setupSearchRouter(searchService, time.Second)

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	body, _ := json.Marshal(entity.SearchQueryRequest{SearchQuery: string(long), CurrentPage: 1, ItemsPerPage: 10})

	// Act
	w := performRequest(router, http.MethodPost, "/api/search", string(body))

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	searchService.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}
