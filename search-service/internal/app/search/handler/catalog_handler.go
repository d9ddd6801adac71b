package handler

import (
	"errors"
	"net/http"
	"strconv"

	"facetsearch/pkg/logger"
	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// CatalogHandler обрабатывает административные запросы схемы фасетов:
// категории, фасеты, значения и привязки значений к товарам
type CatalogHandler struct {
	schemaService      *service.SchemaService
	valueService       *service.ValueService
	attributionService *service.AttributionService
	validator          *validator.Validate
}

func NewCatalogHandler(
	schemaService *service.SchemaService,
	valueService *service.ValueService,
	attributionService *service.AttributionService,
) *CatalogHandler {
	return &CatalogHandler{
		schemaService:      schemaService,
		valueService:       valueService,
		attributionService: attributionService,
		validator:          validator.New(),
	}
}

// === CATEGORIES HANDLERS ===

// CreateCategory обрабатывает POST /api/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req entity.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.schemaService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

// GetCategory обрабатывает GET /api/categories/:id
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	category, err := h.schemaService.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// GetAllCategories обрабатывает GET /api/categories
func (h *CatalogHandler) GetAllCategories(c *gin.Context) {
	categories, err := h.schemaService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.CategoryListResponse{
		Categories: categories,
		Total:      len(categories),
	})
}

// UpdateCategory обрабатывает PUT /api/categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req entity.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.schemaService.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory обрабатывает DELETE /api/categories/:id
// Удаляет категорию вместе с фасетами, 409 если в категории остались товары
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.schemaService.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Category deleted successfully"})
}

// GetCategoryFilterDescriptions обрабатывает GET /api/categories/:id/filter-descriptions
func (h *CatalogHandler) GetCategoryFilterDescriptions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	descriptions, err := h.schemaService.GetFilterDescriptionsByCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.FilterDescriptionListResponse{
		FilterDescriptions: descriptions,
		Total:              len(descriptions),
	})
}

// GetCategoryFacets обрабатывает GET /api/categories/:id/filters
// Отдает фасеты категории со значениями для построения фильтров (кеш Redis)
func (h *CatalogHandler) GetCategoryFacets(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	facets, err := h.valueService.GetValuesByCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.FacetListResponse{Facets: facets, Total: len(facets)})
}

// === FILTER DESCRIPTIONS HANDLERS ===

func (h *CatalogHandler) CreateFilterDescription(c *gin.Context) {
	var req entity.CreateFilterDescriptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	description, err := h.schemaService.CreateFilterDescription(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, description)
}

func (h *CatalogHandler) GetFilterDescription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	description, err := h.schemaService.GetFilterDescription(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, description)
}

func (h *CatalogHandler) GetAllFilterDescriptions(c *gin.Context) {
	descriptions, err := h.schemaService.ListFilterDescriptions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.FilterDescriptionListResponse{
		FilterDescriptions: descriptions,
		Total:              len(descriptions),
	})
}

// GetManagerFilterDescriptions обрабатывает GET /api/filter-descriptions/manager/:managerId
func (h *CatalogHandler) GetManagerFilterDescriptions(c *gin.Context) {
	managerID, ok := paramID(c, "managerId")
	if !ok {
		return
	}

	descriptions, err := h.schemaService.GetFilterDescriptionsByManager(c.Request.Context(), managerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.FilterDescriptionListResponse{
		FilterDescriptions: descriptions,
		Total:              len(descriptions),
	})
}

func (h *CatalogHandler) UpdateFilterDescription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req entity.UpdateFilterDescriptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	description, err := h.schemaService.UpdateFilterDescription(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, description)
}

// DeleteFilterDescription удаляет фасет каскадом вместе со значениями и привязками
func (h *CatalogHandler) DeleteFilterDescription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.schemaService.DeleteFilterDescription(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Filter description deleted successfully"})
}

// GetDescriptionValues обрабатывает GET /api/filter-descriptions/:id/values
func (h *CatalogHandler) GetDescriptionValues(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	values, err := h.valueService.GetValuesByDescription(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.FilterValueListResponse{Filters: values, Total: len(values)})
}

// === FILTER VALUES HANDLERS ===

func (h *CatalogHandler) CreateFilterValue(c *gin.Context) {
	var req entity.FilterValueRequest
	if !h.bindJSON(c, &req) {
		return
	}

	value, err := h.valueService.CreateValue(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, value)
}

func (h *CatalogHandler) GetFilterValue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	value, err := h.valueService.GetValue(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, value)
}

func (h *CatalogHandler) GetManagerFilterValues(c *gin.Context) {
	managerID, ok := paramID(c, "managerId")
	if !ok {
		return
	}

	values, err := h.valueService.GetValuesByManager(c.Request.Context(), managerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.FilterValueListResponse{Filters: values, Total: len(values)})
}

func (h *CatalogHandler) UpdateFilterValue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req entity.FilterValueRequest
	if !h.bindJSON(c, &req) {
		return
	}

	value, err := h.valueService.UpdateValue(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, value)
}

func (h *CatalogHandler) DeleteFilterValue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.valueService.DeleteValue(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Filter deleted successfully"})
}

// === FILTER PRODUCTS HANDLERS ===

// AttachFilter обрабатывает POST /api/filter-products
// Повторная привязка той же пары обновляет value
func (h *CatalogHandler) AttachFilter(c *gin.Context) {
	var req entity.AttachFilterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	fp, err := h.attributionService.Attach(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, fp)
}

// DetachFilter обрабатывает DELETE /api/filter-products?product_id=&filter_id=
func (h *CatalogHandler) DetachFilter(c *gin.Context) {
	var req entity.DetachFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid query parameters"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	if err := h.attributionService.Detach(c.Request.Context(), req.ProductID, req.FilterID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Filter detached successfully"})
}

func (h *CatalogHandler) GetProductFilters(c *gin.Context) {
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}

	items, err := h.attributionService.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.FilterProductListResponse{FilterProducts: items, Total: len(items)})
}

func (h *CatalogHandler) GetCategoryFilterProducts(c *gin.Context) {
	categoryID, ok := paramID(c, "categoryId")
	if !ok {
		return
	}

	items, err := h.attributionService.ListByCategory(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.FilterProductListResponse{FilterProducts: items, Total: len(items)})
}

// === HELPERS ===

// bindJSON разбирает и валидирует тело, при ошибке сам отвечает 400
func (h *CatalogHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return false
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return false
	}

	return true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError переводит ошибку сервиса в HTTP статус
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	title := "Internal error"

	switch {
	case errors.Is(err, service.ErrValidation):
		status, title = http.StatusBadRequest, "Validation failed"
	case errors.Is(err, service.ErrNotFound):
		status, title = http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrConflict):
		status, title = http.StatusConflict, "Conflict"
	case errors.Is(err, service.ErrTimeout):
		status, title = http.StatusGatewayTimeout, "Request timed out"
	case errors.Is(err, service.ErrStore):
		status, title = http.StatusServiceUnavailable, "Storage unavailable"
	}

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		_ = c.Error(err)
		c.JSON(status, entity.ErrorResponse{Error: title})
		return
	}

	c.JSON(status, entity.ErrorResponse{Error: title, Message: err.Error()})
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			return fieldError.Field() + " is " + fieldError.Tag()
		}
	}
	return "Validation failed"
}
