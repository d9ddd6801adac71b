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

const valueColumns = `fv.id, fv.description_id, fv.possible_value, fv.is_ranged, fv.min_value, fv.max_value`

type filterValueRepository struct {
	db *pgxpool.Pool
}

// NewFilterValueRepository создает репозиторий значений фасетов
func NewFilterValueRepository(db *pgxpool.Pool) FilterValueRepository {
	return &filterValueRepository{db: db}
}

func (r *filterValueRepository) Create(ctx context.Context, value *entity.FilterValue) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "filter_values")
	defer timer.ObserveDuration()

	rec := value.Record()
	query := `
		INSERT INTO filter_values (description_id, possible_value, is_ranged, min_value, max_value)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query, rec.DescriptionID, rec.PossibleValue, rec.IsRanged, rec.MinValue, rec.MaxValue).
		Scan(&value.ID)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		return fmt.Errorf("failed to create filter value: %w", mapPgError(err))
	}

	return nil
}

// GetByID возвращает значение вместе с категорией его фасета
func (r *filterValueRepository) GetByID(ctx context.Context, id int64) (*entity.ResolvedFilterValue, error) {
	values, err := r.GetByIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrFilterValueNotFound
	}
	return &values[0], nil
}

func (r *filterValueRepository) GetByIDs(ctx context.Context, ids []int64) ([]entity.ResolvedFilterValue, error) {
	if len(ids) == 0 {
		return []entity.ResolvedFilterValue{}, nil
	}

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "filter_values")
	defer timer.ObserveDuration()

	query := `
		SELECT ` + valueColumns + `, fd.category_id
		FROM filter_values fv
		JOIN filter_descriptions fd ON fd.id = fv.description_id
		WHERE fv.id = ANY($1)
		ORDER BY fv.id
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get filter values: %w", err)
	}
	defer rows.Close()

	resolved := make([]entity.ResolvedFilterValue, 0, len(ids))
	for rows.Next() {
		var rec entity.FilterValueRecord
		var categoryID int64
		if err := rows.Scan(&rec.ID, &rec.DescriptionID, &rec.PossibleValue, &rec.IsRanged, &rec.MinValue, &rec.MaxValue, &categoryID); err != nil {
			return nil, fmt.Errorf("failed to scan filter value: %w", err)
		}

		fv, err := rec.ToFilterValue()
		if err != nil {
			return nil, fmt.Errorf("%w: filter value %d", ErrCorruptRow, rec.ID)
		}
		resolved = append(resolved, entity.ResolvedFilterValue{FilterValue: fv, CategoryID: categoryID})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filter values: %w", err)
	}

	return resolved, nil
}

func (r *filterValueRepository) GetByDescription(ctx context.Context, descriptionID int64) ([]entity.FilterValue, error) {
	query := `SELECT ` + valueColumns + ` FROM filter_values fv WHERE fv.description_id = $1 ORDER BY fv.id`
	return r.list(ctx, query, descriptionID)
}

func (r *filterValueRepository) GetByCategory(ctx context.Context, categoryID int64) ([]entity.FilterValue, error) {
	query := `
		SELECT ` + valueColumns + `
		FROM filter_values fv
		JOIN filter_descriptions fd ON fd.id = fv.description_id
		WHERE fd.category_id = $1
		ORDER BY fv.description_id, fv.id
	`
	return r.list(ctx, query, categoryID)
}

func (r *filterValueRepository) GetByManager(ctx context.Context, managerID int64) ([]entity.FilterValue, error) {
	query := `
		SELECT ` + valueColumns + `
		FROM filter_values fv
		JOIN filter_descriptions fd ON fd.id = fv.description_id
		JOIN categories c ON c.id = fd.category_id
		WHERE c.manager_id = $1
		ORDER BY fv.description_id, fv.id
	`
	return r.list(ctx, query, managerID)
}

// Update переписывает все колонки варианта, чтобы смена вида значения не оставляла хвостов
func (r *filterValueRepository) Update(ctx context.Context, value *entity.FilterValue) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, "filter_values")
	defer timer.ObserveDuration()

	rec := value.Record()
	query := `
		UPDATE filter_values
		SET description_id = $1, possible_value = $2, is_ranged = $3, min_value = $4, max_value = $5
		WHERE id = $6
	`

	result, err := r.db.Exec(ctx, query, rec.DescriptionID, rec.PossibleValue, rec.IsRanged, rec.MinValue, rec.MaxValue, rec.ID)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpUpdate)
		return fmt.Errorf("failed to update filter value: %w", mapPgError(err))
	}
	if result.RowsAffected() == 0 {
		return ErrFilterValueNotFound
	}

	return nil
}

func (r *filterValueRepository) Delete(ctx context.Context, id int64) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, "filter_values")
	defer timer.ObserveDuration()

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM filter_products WHERE filter_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete filter products: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM filter_values WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete filter value: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrFilterValueNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrFilterValueNotFound) {
		metrics.RecordDbError(serviceName, metrics.DbOpDelete)
	}

	return err
}

func (r *filterValueRepository) list(ctx context.Context, query string, args ...any) ([]entity.FilterValue, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "filter_values")
	defer timer.ObserveDuration()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get filter values: %w", err)
	}
	defer rows.Close()

	values := make([]entity.FilterValue, 0)
	for rows.Next() {
		var rec entity.FilterValueRecord
		if err := rows.Scan(&rec.ID, &rec.DescriptionID, &rec.PossibleValue, &rec.IsRanged, &rec.MinValue, &rec.MaxValue); err != nil {
			return nil, fmt.Errorf("failed to scan filter value: %w", err)
		}

		fv, err := rec.ToFilterValue()
		if err != nil {
			return nil, fmt.Errorf("%w: filter value %d", ErrCorruptRow, rec.ID)
		}
		values = append(values, fv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filter values: %w", err)
	}

	return values, nil
}
