package repository

import (
	"context"
	"fmt"

	"facetsearch/pkg/metrics"
	"facetsearch/search-service/internal/app/search/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type attributionRepository struct {
	db *gorm.DB
}

// NewAttributionRepository создает хранилище привязок filter_products
// Выборки по filter_id опираются на индекс idx_filter_products_filter_id
func NewAttributionRepository(db *gorm.DB) AttributionRepository {
	return &attributionRepository{db: db}
}

// Upsert вставляет привязку, при конфликте (filter_id, product_id) обновляет value
func (r *attributionRepository) Upsert(ctx context.Context, fp *entity.FilterProduct) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "filter_products")
	defer timer.ObserveDuration()

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "filter_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(fp)

	if result.Error != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		return fmt.Errorf("failed to upsert filter product: %w", mapPgError(result.Error))
	}

	return nil
}

// Delete снимает значение с товара
func (r *attributionRepository) Delete(ctx context.Context, productID, filterID int64) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, "filter_products")
	defer timer.ObserveDuration()

	result := r.db.WithContext(ctx).
		Where("product_id = ? AND filter_id = ?", productID, filterID).
		Delete(&entity.FilterProduct{})

	if result.Error != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpDelete)
		return fmt.Errorf("failed to delete filter product: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrAttributionNotFound
	}

	return nil
}

func (r *attributionRepository) GetByProduct(ctx context.Context, productID int64) ([]entity.FilterProduct, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "filter_products")
	defer timer.ObserveDuration()

	fps := make([]entity.FilterProduct, 0)
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("filter_id ASC").Find(&fps).Error; err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get product filters: %w", err)
	}

	return fps, nil
}

// GetByCategory возвращает все привязки к значениям фасетов категории
func (r *attributionRepository) GetByCategory(ctx context.Context, categoryID int64) ([]entity.FilterProduct, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "filter_products")
	defer timer.ObserveDuration()

	fps := make([]entity.FilterProduct, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN filter_values fv ON fv.id = filter_products.filter_id").
		Joins("JOIN filter_descriptions fd ON fd.id = fv.description_id").
		Where("fd.category_id = ?", categoryID).
		Order("filter_products.id ASC").
		Find(&fps).Error
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get category filters: %w", err)
	}

	return fps, nil
}

// ProductIDsByFilter - товары, у которых есть данное значение
func (r *attributionRepository) ProductIDsByFilter(ctx context.Context, filterID int64) ([]int64, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "filter_products")
	defer timer.ObserveDuration()

	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).
		Model(&entity.FilterProduct{}).
		Where("filter_id = ?", filterID).
		Order("product_id ASC").
		Pluck("product_id", &ids).Error
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to select products by filter: %w", err)
	}

	return ids, nil
}

// ProductIDsByRange - товары, чье измерение по фасету лежит в [min, max]
// Учитываются привязки к любому значению фасета, а не только к запрошенному интервалу
func (r *attributionRepository) ProductIDsByRange(ctx context.Context, descriptionID int64, minValue, maxValue float64) ([]int64, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "filter_products")
	defer timer.ObserveDuration()

	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).
		Model(&entity.FilterProduct{}).
		Joins("JOIN filter_values fv ON fv.id = filter_products.filter_id").
		Where("fv.description_id = ? AND filter_products.value BETWEEN ? AND ?", descriptionID, minValue, maxValue).
		Distinct("filter_products.product_id").
		Order("filter_products.product_id ASC").
		Pluck("filter_products.product_id", &ids).Error
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to select products by range: %w", err)
	}

	return ids, nil
}

// DeleteByProduct снимает все значения с товара (товар удален или деактивирован)
func (r *attributionRepository) DeleteByProduct(ctx context.Context, productID int64) (int64, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, "filter_products")
	defer timer.ObserveDuration()

	result := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&entity.FilterProduct{})
	if result.Error != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpDelete)
		return 0, fmt.Errorf("failed to purge product filters: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteOrphans удаляет привязки к отсутствующим, удаленным или неактивным товарам
// и к уже удаленным значениям фасетов
func (r *attributionRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, "filter_products")
	defer timer.ObserveDuration()

	result := r.db.WithContext(ctx).
		Where(`NOT EXISTS (SELECT 1 FROM products p WHERE p.id = filter_products.product_id AND p.is_active AND p.deleted_at IS NULL)`).
		Or(`NOT EXISTS (SELECT 1 FROM filter_values fv WHERE fv.id = filter_products.filter_id)`).
		Delete(&entity.FilterProduct{})
	if result.Error != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpDelete)
		return 0, fmt.Errorf("failed to sweep orphan filter products: %w", result.Error)
	}

	return result.RowsAffected, nil
}
