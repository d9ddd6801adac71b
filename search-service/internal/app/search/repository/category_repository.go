package repository

import (
	"context"
	"errors"
	"fmt"

	"facetsearch/pkg/metrics"
	"facetsearch/search-service/internal/app/search/entity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const serviceName = "search-service"

type categoryRepository struct {
	db *pgxpool.Pool // Пул соединений с PostgreSQL для категорий
}

// NewCategoryRepository создает новый репозиторий категорий
func NewCategoryRepository(db *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create создает категорию, id выдает bigserial
func (r *categoryRepository) Create(ctx context.Context, category *entity.Category) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "categories")
	defer timer.ObserveDuration()

	query := `
		INSERT INTO categories (name, description, manager_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query, category.Name, category.Description, category.ManagerID, category.CreatedAt).
		Scan(&category.ID)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		return fmt.Errorf("failed to create category: %w", mapPgError(err))
	}

	return nil
}

// GetByID получает категорию по ID
func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "categories")
	defer timer.ObserveDuration()

	query := `SELECT id, name, description, manager_id, created_at FROM categories WHERE id = $1`

	var category entity.Category
	err := r.db.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.ManagerID,
		&category.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}

	return &category, nil
}

// GetAll получает все категории, отсортированные по имени
func (r *categoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "categories")
	defer timer.ObserveDuration()

	query := `SELECT id, name, description, manager_id, created_at FROM categories ORDER BY name ASC, id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	categories := make([]entity.Category, 0)
	for rows.Next() {
		var category entity.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description, &category.ManagerID, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// Update обновляет имя и описание категории
func (r *categoryRepository) Update(ctx context.Context, category *entity.Category) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, "categories")
	defer timer.ObserveDuration()

	query := `
		UPDATE categories
		SET name = $1, description = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(ctx, query, category.Name, category.Description, category.ID)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpUpdate)
		return fmt.Errorf("failed to update category: %w", mapPgError(err))
	}

	if result.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// Delete удаляет категорию в одной транзакции вместе с фасетами, значениями и привязками
// Товары категории принадлежат внешнему каталогу, поэтому при их наличии удаление запрещено
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, "categories")
	defer timer.ObserveDuration()

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var productCount int
		checkQuery := `SELECT COUNT(*) FROM products WHERE category_id = $1 AND deleted_at IS NULL`
		if err := tx.QueryRow(ctx, checkQuery, id).Scan(&productCount); err != nil {
			return fmt.Errorf("failed to check products in category: %w", err)
		}
		if productCount > 0 {
			return ErrCategoryHasProducts
		}

		if err := deleteCategoryFacets(ctx, tx, id); err != nil {
			return err
		}

		result, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete category: %w", mapPgError(err))
		}
		if result.RowsAffected() == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrForeignKey) {
			// Товар появился между проверкой и удалением
			return ErrCategoryHasProducts
		}
		if !errors.Is(err, ErrCategoryHasProducts) && !errors.Is(err, ErrCategoryNotFound) {
			metrics.RecordDbError(serviceName, metrics.DbOpDelete)
		}
		return err
	}

	return nil
}

// Exists проверяет наличие категории
func (r *categoryRepository) Exists(ctx context.Context, id int64) (bool, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "categories")
	defer timer.ObserveDuration()

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists); err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return false, fmt.Errorf("failed to check category: %w", err)
	}

	return exists, nil
}

// mapPgError переводит коды ограничений PostgreSQL в ошибки репозитория
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrForeignKey, pgErr.ConstraintName)
		}
	}
	return err
}
