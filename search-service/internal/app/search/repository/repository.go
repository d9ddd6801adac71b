package repository

import (
	"context"
	"errors"

	"facetsearch/search-service/internal/app/search/entity"
)

var (
	ErrCategoryNotFound          = errors.New("category not found")
	ErrCategoryHasProducts       = errors.New("cannot delete category with existing products")
	ErrFilterDescriptionNotFound = errors.New("filter description not found")
	ErrFilterValueNotFound       = errors.New("filter value not found")
	ErrAttributionNotFound       = errors.New("filter product not found")
	ErrDuplicateKey              = errors.New("duplicate key")
	ErrForeignKey                = errors.New("foreign key violation")
	ErrCorruptRow                = errors.New("corrupt row")
)

// CategoryRepository - категории (pgx)
type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id int64) (*entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, category *entity.Category) error
	// Delete удаляет категорию вместе с фасетами, значениями и привязками
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

// FilterDescriptionRepository - реестр фасетов категорий (pgx)
type FilterDescriptionRepository interface {
	Create(ctx context.Context, description *entity.FilterDescription) error
	GetByID(ctx context.Context, id int64) (*entity.FilterDescription, error)
	GetAll(ctx context.Context) ([]entity.FilterDescription, error)
	GetByCategory(ctx context.Context, categoryID int64) ([]entity.FilterDescription, error)
	GetByManager(ctx context.Context, managerID int64) ([]entity.FilterDescription, error)
	Update(ctx context.Context, description *entity.FilterDescription) error
	// Delete удаляет фасет вместе с его значениями и привязками
	Delete(ctx context.Context, id int64) error
}

// FilterValueRepository - значения фасетов (pgx)
type FilterValueRepository interface {
	Create(ctx context.Context, value *entity.FilterValue) error
	GetByID(ctx context.Context, id int64) (*entity.ResolvedFilterValue, error)
	// GetByIDs возвращает только найденные значения, отсутствующие id пропускаются
	GetByIDs(ctx context.Context, ids []int64) ([]entity.ResolvedFilterValue, error)
	GetByDescription(ctx context.Context, descriptionID int64) ([]entity.FilterValue, error)
	GetByCategory(ctx context.Context, categoryID int64) ([]entity.FilterValue, error)
	GetByManager(ctx context.Context, managerID int64) ([]entity.FilterValue, error)
	Update(ctx context.Context, value *entity.FilterValue) error
	// Delete удаляет значение вместе с привязками к товарам
	Delete(ctx context.Context, id int64) error
}

// AttributionRepository - привязки значений к товарам (gorm)
type AttributionRepository interface {
	// Upsert создает привязку или обновляет value существующей пары (filter_id, product_id)
	Upsert(ctx context.Context, fp *entity.FilterProduct) error
	Delete(ctx context.Context, productID, filterID int64) error
	GetByProduct(ctx context.Context, productID int64) ([]entity.FilterProduct, error)
	GetByCategory(ctx context.Context, categoryID int64) ([]entity.FilterProduct, error)
	ProductIDsByFilter(ctx context.Context, filterID int64) ([]int64, error)
	ProductIDsByRange(ctx context.Context, descriptionID int64, minValue, maxValue float64) ([]int64, error)
	DeleteByProduct(ctx context.Context, productID int64) (int64, error)
	DeleteOrphans(ctx context.Context) (int64, error)
}

// ProductRepository - read model товаров внешнего каталога (gorm)
type ProductRepository interface {
	AllActiveIDs(ctx context.Context) ([]int64, error)
	IDsInCategory(ctx context.Context, categoryID int64) ([]int64, error)
	IDsMatchingText(ctx context.Context, query string) ([]int64, error)
	// FetchByIDs сохраняет порядок ids, отсутствующие товары пропускаются
	FetchByIDs(ctx context.Context, ids []int64) ([]entity.Product, error)
	Exists(ctx context.Context, id int64) (bool, error)
}
