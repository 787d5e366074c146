package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// SubcategoryRepository manages subcategory persistence including the embedded resolved
// schema cache (form_fields jsonb column).
type SubcategoryRepository interface {
	Create(ctx context.Context, subcategory *domain.Subcategory) error
	Update(ctx context.Context, subcategory *domain.Subcategory) error
	UpdateFormFields(ctx context.Context, id string, fields []domain.FormField) error
	GetByID(ctx context.Context, id string) (*domain.Subcategory, error)
	GetByName(ctx context.Context, categoryID, name string) (*domain.Subcategory, error)
	ListByCategory(ctx context.Context, categoryID string) ([]domain.Subcategory, error)
}

type subcategoryRepository struct {
	pool *pgxpool.Pool
}

// NewSubcategoryRepository builds the repository.
func NewSubcategoryRepository(pool *pgxpool.Pool) SubcategoryRepository {
	return &subcategoryRepository{pool: pool}
}

func (r *subcategoryRepository) Create(ctx context.Context, subcategory *domain.Subcategory) error {
	fields, err := marshalFormFields(subcategory.FormFields)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO subcategories (id, category_id, name, description, form_fields, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		subcategory.ID,
		subcategory.CategoryID,
		subcategory.Name,
		subcategory.Description,
		fields,
		subcategory.IsActive,
	).Scan(&subcategory.CreatedAt, &subcategory.UpdatedAt)
}

func (r *subcategoryRepository) Update(ctx context.Context, subcategory *domain.Subcategory) error {
	fields, err := marshalFormFields(subcategory.FormFields)
	if err != nil {
		return err
	}
	const query = `
        UPDATE subcategories SET name=$1, description=$2, form_fields=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		subcategory.Name,
		subcategory.Description,
		fields,
		subcategory.IsActive,
		subcategory.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateFormFields persists only the resolved schema cache. Concurrent recomputes are
// last-writer-wins; schema edits are rare administrative traffic.
func (r *subcategoryRepository) UpdateFormFields(ctx context.Context, id string, fields []domain.FormField) error {
	payload, err := marshalFormFields(fields)
	if err != nil {
		return err
	}
	const query = `UPDATE subcategories SET form_fields=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, payload, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *subcategoryRepository) GetByID(ctx context.Context, id string) (*domain.Subcategory, error) {
	const query = `
        SELECT id, category_id, name, description, form_fields, is_active, created_at, updated_at
        FROM subcategories WHERE id=$1`
	return r.fetchSingle(ctx, r.pool.QueryRow(ctx, query, id))
}

func (r *subcategoryRepository) GetByName(ctx context.Context, categoryID, name string) (*domain.Subcategory, error) {
	const query = `
        SELECT id, category_id, name, description, form_fields, is_active, created_at, updated_at
        FROM subcategories WHERE category_id=$1 AND LOWER(name)=LOWER($2)`
	return r.fetchSingle(ctx, r.pool.QueryRow(ctx, query, categoryID, name))
}

func (r *subcategoryRepository) fetchSingle(ctx context.Context, row pgx.Row) (*domain.Subcategory, error) {
	var subcategory domain.Subcategory
	var fields []byte
	if err := row.Scan(
		&subcategory.ID,
		&subcategory.CategoryID,
		&subcategory.Name,
		&subcategory.Description,
		&fields,
		&subcategory.IsActive,
		&subcategory.CreatedAt,
		&subcategory.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalFormFields(fields, &subcategory.FormFields); err != nil {
		return nil, err
	}
	return &subcategory, nil
}

func (r *subcategoryRepository) ListByCategory(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	const query = `
        SELECT id, category_id, name, description, form_fields, is_active, created_at, updated_at
        FROM subcategories WHERE category_id=$1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Subcategory
	for rows.Next() {
		var subcategory domain.Subcategory
		var fields []byte
		if err := rows.Scan(
			&subcategory.ID,
			&subcategory.CategoryID,
			&subcategory.Name,
			&subcategory.Description,
			&fields,
			&subcategory.IsActive,
			&subcategory.CreatedAt,
			&subcategory.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := unmarshalFormFields(fields, &subcategory.FormFields); err != nil {
			return nil, err
		}
		result = append(result, subcategory)
	}
	return result, rows.Err()
}

func marshalFormFields(fields []domain.FormField) ([]byte, error) {
	if fields == nil {
		fields = []domain.FormField{}
	}
	return json.Marshal(fields)
}

func unmarshalFormFields(payload []byte, target *[]domain.FormField) error {
	if len(payload) == 0 {
		*target = []domain.FormField{}
		return nil
	}
	return json.Unmarshal(payload, target)
}
