package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// FormFieldRepository is the form field registry's persistence. Upsert is keyed on id,
// not (label, subcategory): seeding the same logical field twice with different labels
// collapses to one row so templates can rename fields without orphaning historical
// ticket formData keyed by id.
type FormFieldRepository interface {
	Upsert(ctx context.Context, field *domain.FormField) error
	GetByID(ctx context.Context, id string) (*domain.FormField, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.FormField, error)
	SearchByLabel(ctx context.Context, term string, limit int) ([]domain.FormField, error)
	Deactivate(ctx context.Context, id string) error
}

type formFieldRepository struct {
	pool *pgxpool.Pool
}

// NewFormFieldRepository builds the repository.
func NewFormFieldRepository(pool *pgxpool.Pool) FormFieldRepository {
	return &formFieldRepository{pool: pool}
}

func (r *formFieldRepository) Upsert(ctx context.Context, field *domain.FormField) error {
	validation, err := marshalValidation(field.Validation)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO form_fields (id, label, field_type, options, is_required, is_hidden, description, order_index, validation, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (id) DO UPDATE SET
            label = EXCLUDED.label,
            field_type = EXCLUDED.field_type,
            options = EXCLUDED.options,
            is_required = EXCLUDED.is_required,
            is_hidden = EXCLUDED.is_hidden,
            description = EXCLUDED.description,
            order_index = EXCLUDED.order_index,
            validation = EXCLUDED.validation,
            is_active = EXCLUDED.is_active,
            updated_at = NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		field.ID,
		field.Label,
		field.Type,
		field.Options,
		field.IsRequired,
		field.IsHidden,
		field.Description,
		field.OrderIndex,
		validation,
		field.IsActive,
	).Scan(&field.CreatedAt, &field.UpdatedAt)
}

func (r *formFieldRepository) GetByID(ctx context.Context, id string) (*domain.FormField, error) {
	const query = fieldSelect + ` WHERE id=$1`
	var field domain.FormField
	if err := scanField(r.pool.QueryRow(ctx, query, id), &field); err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *formFieldRepository) GetByIDs(ctx context.Context, ids []string) (map[string]domain.FormField, error) {
	if len(ids) == 0 {
		return map[string]domain.FormField{}, nil
	}
	const query = fieldSelect + ` WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.FormField, len(ids))
	for rows.Next() {
		var field domain.FormField
		if err := scanField(rows, &field); err != nil {
			return nil, err
		}
		result[field.ID] = field
	}
	return result, rows.Err()
}

func (r *formFieldRepository) SearchByLabel(ctx context.Context, term string, limit int) ([]domain.FormField, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = fieldSelect + ` WHERE LOWER(label) LIKE LOWER($1) ORDER BY label LIMIT $2`
	rows, err := r.pool.Query(ctx, query, "%"+term+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FormField
	for rows.Next() {
		var field domain.FormField
		if err := scanField(rows, &field); err != nil {
			return nil, err
		}
		result = append(result, field)
	}
	return result, rows.Err()
}

func (r *formFieldRepository) Deactivate(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE form_fields SET is_active=FALSE, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const fieldSelect = `
        SELECT id, label, field_type, options, is_required, is_hidden, description, order_index, validation, is_active, created_at, updated_at
        FROM form_fields`

func scanField(row pgx.Row, field *domain.FormField) error {
	var validation []byte
	if err := row.Scan(
		&field.ID,
		&field.Label,
		&field.Type,
		&field.Options,
		&field.IsRequired,
		&field.IsHidden,
		&field.Description,
		&field.OrderIndex,
		&validation,
		&field.IsActive,
		&field.CreatedAt,
		&field.UpdatedAt,
	); err != nil {
		return err
	}
	if len(validation) > 0 {
		if err := json.Unmarshal(validation, &field.Validation); err != nil {
			return err
		}
	}
	return nil
}

func marshalValidation(rules []domain.ValidationRule) ([]byte, error) {
	if rules == nil {
		rules = []domain.ValidationRule{}
	}
	return json.Marshal(rules)
}
