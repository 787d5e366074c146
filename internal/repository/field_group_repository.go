package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// FieldGroupRepository manages field group persistence. Upsert is keyed on id so
// re-seeding updates groups in place.
type FieldGroupRepository interface {
	Upsert(ctx context.Context, group *domain.FieldGroup) error
	GetByID(ctx context.Context, id string) (*domain.FieldGroup, error)
	ListBySubcategory(ctx context.Context, subcategoryID string) ([]domain.FieldGroup, error)
	ListByFieldID(ctx context.Context, fieldID string) ([]domain.FieldGroup, error)
	Delete(ctx context.Context, id string) error
}

type fieldGroupRepository struct {
	pool *pgxpool.Pool
}

// NewFieldGroupRepository builds the repository.
func NewFieldGroupRepository(pool *pgxpool.Pool) FieldGroupRepository {
	return &fieldGroupRepository{pool: pool}
}

func (r *fieldGroupRepository) Upsert(ctx context.Context, group *domain.FieldGroup) error {
	const query = `
        INSERT INTO field_groups (id, name, category_id, subcategory_id, field_ids, order_index, is_collapsible, is_collapsed_by_default)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            category_id = EXCLUDED.category_id,
            subcategory_id = EXCLUDED.subcategory_id,
            field_ids = EXCLUDED.field_ids,
            order_index = EXCLUDED.order_index,
            is_collapsible = EXCLUDED.is_collapsible,
            is_collapsed_by_default = EXCLUDED.is_collapsed_by_default,
            updated_at = NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		group.ID,
		group.Name,
		group.CategoryID,
		group.SubcategoryID,
		group.FieldIDs,
		group.OrderIndex,
		group.IsCollapsible,
		group.IsCollapsedByDefault,
	).Scan(&group.CreatedAt, &group.UpdatedAt)
}

func (r *fieldGroupRepository) GetByID(ctx context.Context, id string) (*domain.FieldGroup, error) {
	const query = `
        SELECT id, name, category_id, subcategory_id, field_ids, order_index, is_collapsible, is_collapsed_by_default, created_at, updated_at
        FROM field_groups WHERE id=$1`
	var group domain.FieldGroup
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.CategoryID,
		&group.SubcategoryID,
		&group.FieldIDs,
		&group.OrderIndex,
		&group.IsCollapsible,
		&group.IsCollapsedByDefault,
		&group.CreatedAt,
		&group.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListBySubcategory returns groups in resolution order (order_index, then id for
// deterministic ties).
func (r *fieldGroupRepository) ListBySubcategory(ctx context.Context, subcategoryID string) ([]domain.FieldGroup, error) {
	const query = `
        SELECT id, name, category_id, subcategory_id, field_ids, order_index, is_collapsible, is_collapsed_by_default, created_at, updated_at
        FROM field_groups WHERE subcategory_id=$1 ORDER BY order_index, id`
	rows, err := r.pool.Query(ctx, query, subcategoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FieldGroup
	for rows.Next() {
		var group domain.FieldGroup
		if err := rows.Scan(
			&group.ID,
			&group.Name,
			&group.CategoryID,
			&group.SubcategoryID,
			&group.FieldIDs,
			&group.OrderIndex,
			&group.IsCollapsible,
			&group.IsCollapsedByDefault,
			&group.CreatedAt,
			&group.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, group)
	}
	return result, rows.Err()
}

// ListByFieldID finds every group referencing a field, across subcategories. Used to
// recompute affected schema caches after a field definition changes.
func (r *fieldGroupRepository) ListByFieldID(ctx context.Context, fieldID string) ([]domain.FieldGroup, error) {
	const query = `
        SELECT id, name, category_id, subcategory_id, field_ids, order_index, is_collapsible, is_collapsed_by_default, created_at, updated_at
        FROM field_groups WHERE $1 = ANY(field_ids) ORDER BY order_index, id`
	rows, err := r.pool.Query(ctx, query, fieldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FieldGroup
	for rows.Next() {
		var group domain.FieldGroup
		if err := rows.Scan(
			&group.ID,
			&group.Name,
			&group.CategoryID,
			&group.SubcategoryID,
			&group.FieldIDs,
			&group.OrderIndex,
			&group.IsCollapsible,
			&group.IsCollapsedByDefault,
			&group.CreatedAt,
			&group.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, group)
	}
	return result, rows.Err()
}

func (r *fieldGroupRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM field_groups WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
