package repository

import (
	"context"
	"fmt"
	"strings"

	"facetsearch/pkg/metrics"
	"facetsearch/search-service/internal/app/search/entity"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает read model товаров
// Удаленные (deleted_at) товары отсекаются soft delete scope'ом gorm
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// AllActiveIDs - вселенная поиска: все активные неудаленные товары по возрастанию id
func (r *productRepository) AllActiveIDs(ctx context.Context) ([]int64, error) {
	return r.pluckIDs(r.active(ctx))
}

func (r *productRepository) IDsInCategory(ctx context.Context, categoryID int64) ([]int64, error) {
	return r.pluckIDs(r.active(ctx).Where("category_id = ?", categoryID))
}

// IDsMatchingText - подстрочное совпадение без учета регистра по имени и описанию
func (r *productRepository) IDsMatchingText(ctx context.Context, query string) ([]int64, error) {
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
	return r.pluckIDs(r.active(ctx).Where("name ILIKE ? OR description ILIKE ?", pattern, pattern))
}

// FetchByIDs загружает активные товары и раскладывает их в порядке ids
// Неактивные и удаленные пропускаются, результат может быть короче ids
func (r *productRepository) FetchByIDs(ctx context.Context, ids []int64) ([]entity.Product, error) {
	if len(ids) == 0 {
		return []entity.Product{}, nil
	}

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")
	defer timer.ObserveDuration()

	var products []entity.Product
	if err := r.active(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	byID := make(map[int64]entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	ordered := make([]entity.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}

	return ordered, nil
}

// Exists проверяет, что товар существует, активен и не удален
func (r *productRepository) Exists(ctx context.Context, id int64) (bool, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")
	defer timer.ObserveDuration()

	var count int64
	if err := r.active(ctx).Where("id = ?", id).Count(&count).Error; err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return false, fmt.Errorf("failed to check product: %w", err)
	}

	return count > 0, nil
}

func (r *productRepository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&entity.Product{}).Where("is_active = ?", true)
}

func (r *productRepository) pluckIDs(q *gorm.DB) ([]int64, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")
	defer timer.ObserveDuration()

	ids := make([]int64, 0)
	if err := q.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to select product ids: %w", err)
	}

	return ids, nil
}
