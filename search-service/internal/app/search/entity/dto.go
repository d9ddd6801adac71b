package entity

import "strings"

type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ManagerID   int64   `json:"manager_id" validate:"required,gt=0"`
}

type UpdateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type CreateFilterDescriptionRequest struct {
	Name          string  `json:"name" validate:"required,min=1,max=100"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	CategoryID    int64   `json:"category_id" validate:"required,gt=0"`
	MeasureName   *string `json:"measure_name" validate:"omitempty,max=32"`
	PossibleValue *string `json:"possible_value" validate:"omitempty,max=500"`
}

// UpdateFilterDescriptionRequest - частичное обновление, nil поля не меняются
type UpdateFilterDescriptionRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	MeasureName   *string `json:"measure_name" validate:"omitempty,max=32"`
	PossibleValue *string `json:"possible_value" validate:"omitempty,max=500"`
}

// FilterValueRequest - создание и изменение значения фасета
// Допустимо ровно одно: possible_value либо is_ranged с min_value <= max_value
type FilterValueRequest struct {
	DescriptionID int64    `json:"description_id" validate:"required,gt=0"`
	PossibleValue *string  `json:"possible_value" validate:"omitempty,min=1,max=200"`
	IsRanged      bool     `json:"is_ranged"`
	MinValue      *float64 `json:"min_value"`
	MaxValue      *float64 `json:"max_value"`
}

// Spec переводит плоский запрос в вариант значения
// Пустое или пробельное possible_value отклоняется: такое значение нельзя выбрать в фильтре
func (r FilterValueRequest) Spec() (ValueSpec, error) {
	if r.PossibleValue != nil && strings.TrimSpace(*r.PossibleValue) == "" {
		return nil, ErrInvalidValueSpec
	}

	rec := FilterValueRecord{
		DescriptionID: r.DescriptionID,
		PossibleValue: r.PossibleValue,
		IsRanged:      r.IsRanged,
		MinValue:      r.MinValue,
		MaxValue:      r.MaxValue,
	}

	fv, err := rec.ToFilterValue()
	if err != nil {
		return nil, err
	}
	return fv.Spec, nil
}

type AttachFilterRequest struct {
	FilterID  int64    `json:"filter_id" validate:"required,gt=0"`
	ProductID int64    `json:"product_id" validate:"required,gt=0"`
	Value     *float64 `json:"value"`
}

type DetachFilterRequest struct {
	FilterID  int64 `json:"filter_id" form:"filter_id" validate:"required,gt=0"`
	ProductID int64 `json:"product_id" form:"product_id" validate:"required,gt=0"`
}

// SearchQueryRequest - тело POST /api/search и query-параметры GET /api/search
type SearchQueryRequest struct {
	SearchQuery        string  `json:"search_query" form:"q" validate:"max=200"`
	CurrentPage        int     `json:"current_page" form:"page"`
	ItemsPerPage       int     `json:"items_per_page" form:"limit"`
	SelectedCategoryID *int64  `json:"selected_category_id" form:"category_id"`
	FilterIDs          []int64 `json:"filter_ids" form:"filter_ids"`
}

func (r SearchQueryRequest) ToSearchRequest() SearchRequest {
	return SearchRequest{
		SearchQuery:        r.SearchQuery,
		CurrentPage:        r.CurrentPage,
		ItemsPerPage:       r.ItemsPerPage,
		SelectedCategoryID: r.SelectedCategoryID,
		FilterIDs:          r.FilterIDs,
	}
}

type SearchResponse struct {
	Products      []Product `json:"products"`
	TotalProducts int       `json:"total_products"`
	CurrentPage   int       `json:"current_page"`
	ItemsPerPage  int       `json:"items_per_page"`
	TotalPages    int       `json:"total_pages"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type CategoryListResponse struct {
	Categories []Category `json:"categories"`
	Total      int        `json:"total"`
}

type FilterDescriptionListResponse struct {
	FilterDescriptions []FilterDescription `json:"filter_descriptions"`
	Total              int                 `json:"total"`
}

type FilterValueListResponse struct {
	Filters []FilterValue `json:"filters"`
	Total   int           `json:"total"`
}

type FacetListResponse struct {
	Facets []Facet `json:"facets"`
	Total  int     `json:"total"`
}

type FilterProductListResponse struct {
	FilterProducts []FilterProduct `json:"filter_products"`
	Total          int             `json:"total"`
}
