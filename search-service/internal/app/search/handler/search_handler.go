package handler

import (
	"context"
	"net/http"
	"time"

	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// SearchHandler - публичный фасетный поиск по каталогу
type SearchHandler struct {
	searchService   service.SearchServiceInterface
	validator       *validator.Validate
	defaultPageSize int
	timeout         time.Duration
}

func NewSearchHandler(searchService service.SearchServiceInterface, defaultPageSize int, timeout time.Duration) *SearchHandler {
	return &SearchHandler{
		searchService:   searchService,
		validator:       validator.New(),
		defaultPageSize: defaultPageSize,
		timeout:         timeout,
	}
}

// SearchGet обрабатывает GET /api/search?q=&page=&limit=&category_id=&filter_ids=1&filter_ids=2
// Отсутствующие page и limit берутся по умолчанию
func (h *SearchHandler) SearchGet(c *gin.Context) {
	var req entity.SearchQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid query parameters", Message: err.Error()})
		return
	}

	if _, ok := c.GetQuery("page"); !ok {
		req.CurrentPage = 1
	}
	if _, ok := c.GetQuery("limit"); !ok {
		req.ItemsPerPage = h.defaultPageSize
	}

	h.search(c, req)
}

// SearchPost обрабатывает POST /api/search с телом SearchQueryRequest
func (h *SearchHandler) SearchPost(c *gin.Context) {
	var req entity.SearchQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	h.search(c, req)
}

func (h *SearchHandler) search(c *gin.Context, req entity.SearchQueryRequest) {
	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.searchService.Search(ctx, req.ToSearchRequest())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.SearchResponse{
		Products:      result.Products,
		TotalProducts: result.TotalProducts,
		CurrentPage:   req.CurrentPage,
		ItemsPerPage:  req.ItemsPerPage,
		TotalPages:    service.TotalPages(result.TotalProducts, req.ItemsPerPage),
	})
}
