package entity

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidValueSpec возвращается, когда строка значения фильтра заполнена наполовину
// или одновременно описывает дискретное и диапазонное значение
var ErrInvalidValueSpec = errors.New("invalid filter value spec")

// Category представляет категорию товаров, владеющую набором фасетов
type Category struct {
	ID          int64     `json:"id" db:"id" gorm:"primaryKey"`
	Name        string    `json:"name" db:"name" gorm:"size:100;not null"`
	Description *string   `json:"description,omitempty" db:"description"`
	ManagerID   int64     `json:"manager_id" db:"manager_id" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// FilterDescription - фасет (атрибут) категории, например "Цвет" или "Объем памяти"
type FilterDescription struct {
	ID            int64     `json:"id" db:"id" gorm:"primaryKey"`
	Name          string    `json:"name" db:"name" gorm:"size:100;not null;uniqueIndex:idx_description_category_name"`
	Description   *string   `json:"description,omitempty" db:"description"`
	CategoryID    int64     `json:"category_id" db:"category_id" gorm:"not null;uniqueIndex:idx_description_category_name;index"`
	MeasureName   *string   `json:"measure_name,omitempty" db:"measure_name" gorm:"size:32"`
	PossibleValue *string   `json:"possible_value,omitempty" db:"possible_value"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ValueKind различает варианты значения фасета
type ValueKind string

const (
	ValueKindDiscrete ValueKind = "discrete"
	ValueKindRanged   ValueKind = "ranged"
)

// ValueSpec - закрытый вариант значения фасета: Discrete или Ranged
type ValueSpec interface {
	Kind() ValueKind
	isValueSpec()
}

// Discrete - перечислимое значение ("Красный", "128")
type Discrete struct {
	Value string
}

func (Discrete) Kind() ValueKind { return ValueKindDiscrete }
func (Discrete) isValueSpec()    {}

// Ranged - числовой интервал [Min, Max], товары попадают в него по своей величине
type Ranged struct {
	Min float64
	Max float64
}

func (Ranged) Kind() ValueKind { return ValueKindRanged }
func (Ranged) isValueSpec()    {}

// Contains проверяет попадание величины в интервал включительно
func (r Ranged) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FilterValue - конкретное значение фасета
type FilterValue struct {
	ID            int64
	DescriptionID int64
	Spec          ValueSpec
}

// IsRanged сообщает, является ли значение диапазоном
func (v FilterValue) IsRanged() bool {
	_, ok := v.Spec.(Ranged)
	return ok
}

// FilterValueRecord - строковое представление значения в таблице filter_values
// Nullable-колонки переводятся в ValueSpec через ToFilterValue
type FilterValueRecord struct {
	ID            int64    `json:"id" db:"id" gorm:"primaryKey"`
	DescriptionID int64    `json:"description_id" db:"description_id" gorm:"not null;index"`
	PossibleValue *string  `json:"possible_value,omitempty" db:"possible_value"`
	IsRanged      bool     `json:"is_ranged" db:"is_ranged" gorm:"not null;default:false"`
	MinValue      *float64 `json:"min_value,omitempty" db:"min_value"`
	MaxValue      *float64 `json:"max_value,omitempty" db:"max_value"`
}

func (FilterValueRecord) TableName() string {
	return "filter_values"
}

// ToFilterValue собирает вариант из строки и отвергает невалидные комбинации полей
func (r FilterValueRecord) ToFilterValue() (FilterValue, error) {
	fv := FilterValue{ID: r.ID, DescriptionID: r.DescriptionID}

	if r.IsRanged {
		if r.PossibleValue != nil || r.MinValue == nil || r.MaxValue == nil || *r.MinValue > *r.MaxValue {
			return FilterValue{}, ErrInvalidValueSpec
		}
		fv.Spec = Ranged{Min: *r.MinValue, Max: *r.MaxValue}
		return fv, nil
	}

	if r.PossibleValue == nil || r.MinValue != nil || r.MaxValue != nil {
		return FilterValue{}, ErrInvalidValueSpec
	}
	fv.Spec = Discrete{Value: *r.PossibleValue}
	return fv, nil
}

// Record раскладывает вариант обратно по колонкам
func (v FilterValue) Record() FilterValueRecord {
	rec := FilterValueRecord{ID: v.ID, DescriptionID: v.DescriptionID}

	switch spec := v.Spec.(type) {
	case Discrete:
		value := spec.Value
		rec.PossibleValue = &value
	case Ranged:
		minValue, maxValue := spec.Min, spec.Max
		rec.IsRanged = true
		rec.MinValue = &minValue
		rec.MaxValue = &maxValue
	}

	return rec
}

// MarshalJSON отдает значение в плоском виде, как его видит клиент
func (v FilterValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Record())
}

func (v *FilterValue) UnmarshalJSON(data []byte) error {
	var rec FilterValueRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	parsed, err := rec.ToFilterValue()
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ResolvedFilterValue - значение вместе с категорией его фасета
// Используется планировщиком для отбрасывания фильтров чужой категории
type ResolvedFilterValue struct {
	FilterValue
	CategoryID int64
}

// FilterProduct - привязка значения фасета к товару
// Value заполняется только для диапазонных фасетов и хранит измерение товара
type FilterProduct struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	FilterID  int64     `json:"filter_id" gorm:"not null;uniqueIndex:idx_filter_product;index:idx_filter_products_filter_id"`
	ProductID int64     `json:"product_id" gorm:"not null;uniqueIndex:idx_filter_product;index"`
	Value     *float64  `json:"value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FilterProduct) TableName() string {
	return "filter_products"
}

// Product - read model товара, которым владеет внешний каталог
type Product struct {
	ID          int64          `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"size:200;not null"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	Quantity    int            `json:"quantity"`
	CategoryID  int64          `json:"category_id" gorm:"not null;index"`
	ImageURL    *string        `json:"image_url,omitempty"`
	ManagerID   int64          `json:"manager_id"`
	IsActive    bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Product) TableName() string {
	return "products"
}

// Facet - фасет категории со всеми его значениями, кешируется в Redis
type Facet struct {
	Description FilterDescription `json:"description"`
	Values      []FilterValue     `json:"values"`
}

// SearchRequest - параметры поиска по каталогу
type SearchRequest struct {
	SearchQuery        string
	CurrentPage        int
	ItemsPerPage       int
	SelectedCategoryID *int64
	FilterIDs          []int64
}

// SearchResult - страница товаров и общее количество совпадений
type SearchResult struct {
	Products      []Product `json:"products"`
	TotalProducts int       `json:"total_products"`
}

// ProductEvent - событие жизненного цикла товара из топика product_events
type ProductEvent struct {
	EventType  string    `json:"event_type"` // PRODUCT_CREATED, PRODUCT_UPDATED, PRODUCT_DEACTIVATED, PRODUCT_DELETED
	ProductID  int64     `json:"product_id"`
	CategoryID int64     `json:"category_id"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	ProductEventDeleted     = "PRODUCT_DELETED"
	ProductEventDeactivated = "PRODUCT_DEACTIVATED"
)

// FacetEvent - событие изменения фасетов, публикуется в топик facet_events
type FacetEvent struct {
	EventType  string    `json:"event_type"`
	CategoryID int64     `json:"category_id,omitempty"`
	FilterID   int64     `json:"filter_id,omitempty"`
	ProductID  int64     `json:"product_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	FacetEventAttached      = "ATTRIBUTION_ATTACHED"
	FacetEventDetached      = "ATTRIBUTION_DETACHED"
	FacetEventSchemaChanged = "FILTER_SCHEMA_CHANGED"
)
