package repository

import (
	"context"
	"errors"
	"fmt"

	"facetsearch/pkg/metrics"
	"facetsearch/search-service/internal/app/search/entity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const descriptionColumns = `fd.id, fd.name, fd.description, fd.category_id, fd.measure_name, fd.possible_value, fd.created_at`

type filterDescriptionRepository struct {
	db *pgxpool.Pool
}

// NewFilterDescriptionRepository создает репозиторий фасетов
func NewFilterDescriptionRepository(db *pgxpool.Pool) FilterDescriptionRepository {
	return &filterDescriptionRepository{db: db}
}

// Create сохраняет фасет; несуществующая категория дает ErrForeignKey
func (r *filterDescriptionRepository) Create(ctx context.Context, d *entity.FilterDescription) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "filter_descriptions")
	defer timer.ObserveDuration()

	query := `
		INSERT INTO filter_descriptions (name, description, category_id, measure_name, possible_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query, d.Name, d.Description, d.CategoryID, d.MeasureName, d.PossibleValue, d.CreatedAt).
		Scan(&d.ID)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		return fmt.Errorf("failed to create filter description: %w", mapPgError(err))
	}

	return nil
}

func (r *filterDescriptionRepository) GetByID(ctx context.Context, id int64) (*entity.FilterDescription, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "filter_descriptions")
	defer timer.ObserveDuration()

	query := `SELECT ` + descriptionColumns + ` FROM filter_descriptions fd WHERE fd.id = $1`

	d, err := scanDescription(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFilterDescriptionNotFound
		}
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get filter description: %w", err)
	}

	return d, nil
}

func (r *filterDescriptionRepository) GetAll(ctx context.Context) ([]entity.FilterDescription, error) {
	query := `SELECT ` + descriptionColumns + ` FROM filter_descriptions fd ORDER BY fd.category_id, fd.id`
	return r.list(ctx, query)
}

// GetByCategory возвращает фасеты категории в порядке создания
func (r *filterDescriptionRepository) GetByCategory(ctx context.Context, categoryID int64) ([]entity.FilterDescription, error) {
	query := `SELECT ` + descriptionColumns + ` FROM filter_descriptions fd WHERE fd.category_id = $1 ORDER BY fd.id`
	return r.list(ctx, query, categoryID)
}

// GetByManager возвращает фасеты всех категорий менеджера
func (r *filterDescriptionRepository) GetByManager(ctx context.Context, managerID int64) ([]entity.FilterDescription, error) {
	query := `
		SELECT ` + descriptionColumns + `
		FROM filter_descriptions fd
		JOIN categories c ON c.id = fd.category_id
		WHERE c.manager_id = $1
		ORDER BY fd.category_id, fd.id
	`
	return r.list(ctx, query, managerID)
}

func (r *filterDescriptionRepository) Update(ctx context.Context, d *entity.FilterDescription) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, "filter_descriptions")
	defer timer.ObserveDuration()

	query := `
		UPDATE filter_descriptions
		SET name = $1, description = $2, measure_name = $3, possible_value = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(ctx, query, d.Name, d.Description, d.MeasureName, d.PossibleValue, d.ID)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpUpdate)
		return fmt.Errorf("failed to update filter description: %w", mapPgError(err))
	}
	if result.RowsAffected() == 0 {
		return ErrFilterDescriptionNotFound
	}

	return nil
}

// Delete удаляет фасет, его значения и привязки в одной транзакции
func (r *filterDescriptionRepository) Delete(ctx context.Context, id int64) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, "filter_descriptions")
	defer timer.ObserveDuration()

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM filter_products
			WHERE filter_id IN (SELECT id FROM filter_values WHERE description_id = $1)
		`, id); err != nil {
			return fmt.Errorf("failed to delete filter products: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM filter_values WHERE description_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete filter values: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM filter_descriptions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete filter description: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrFilterDescriptionNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrFilterDescriptionNotFound) {
		metrics.RecordDbError(serviceName, metrics.DbOpDelete)
	}

	return err
}

func (r *filterDescriptionRepository) list(ctx context.Context, query string, args ...any) ([]entity.FilterDescription, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "filter_descriptions")
	defer timer.ObserveDuration()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get filter descriptions: %w", err)
	}
	defer rows.Close()

	descriptions := make([]entity.FilterDescription, 0)
	for rows.Next() {
		d, err := scanDescription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filter description: %w", err)
		}
		descriptions = append(descriptions, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filter descriptions: %w", err)
	}

	return descriptions, nil
}

func scanDescription(row pgx.Row) (*entity.FilterDescription, error) {
	var d entity.FilterDescription
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.CategoryID, &d.MeasureName, &d.PossibleValue, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// deleteCategoryFacets снимает все фасеты категории внутри транзакции удаления категории
func deleteCategoryFacets(ctx context.Context, tx pgx.Tx, categoryID int64) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM filter_products
		WHERE filter_id IN (
			SELECT fv.id FROM filter_values fv
			JOIN filter_descriptions fd ON fd.id = fv.description_id
			WHERE fd.category_id = $1
		)
	`, categoryID); err != nil {
		return fmt.Errorf("failed to delete category filter products: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM filter_values
		WHERE description_id IN (SELECT id FROM filter_descriptions WHERE category_id = $1)
	`, categoryID); err != nil {
		return fmt.Errorf("failed to delete category filter values: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM filter_descriptions WHERE category_id = $1`, categoryID); err != nil {
		return fmt.Errorf("failed to delete category filter descriptions: %w", err)
	}

	return nil
}
