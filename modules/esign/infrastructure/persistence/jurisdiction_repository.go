package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/showconnect/esign/modules/esign/domain/entities/jurisdiction"
	"github.com/showconnect/esign/modules/esign/infrastructure/persistence/models"
	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/serrors"
)

const addendumColumns = `
	id, tenant_id, jurisdiction_code, name, addendum_html, is_active,
	created_at, updated_at`

type PgJurisdictionRepository struct{}

func NewJurisdictionRepository() jurisdiction.Repository {
	return &PgJurisdictionRepository{}
}

func scanAddendum(row pgx.Row) (*jurisdiction.Addendum, error) {
	var m models.JurisdictionAddendum
	if err := row.Scan(
		&m.ID, &m.TenantID, &m.JurisdictionCode, &m.JurisdictionName, &m.AddendumHTML,
		&m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainAddendum(&m)
}

func (r *PgJurisdictionRepository) GetByCode(ctx context.Context, code string) (*jurisdiction.Addendum, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	addendum, err := scanAddendum(tx.QueryRow(ctx, `
		SELECT `+addendumColumns+`
		FROM jurisdiction_addendums
		WHERE jurisdiction_code = $1 AND tenant_id = $2 AND is_active = TRUE`,
		code, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.NewNotFound("jurisdiction")
	}
	return addendum, err
}

func (r *PgJurisdictionRepository) Upsert(ctx context.Context, addendum *jurisdiction.Addendum) (*jurisdiction.Addendum, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	id := addendum.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row, err := scanAddendum(tx.QueryRow(ctx, `
		INSERT INTO jurisdiction_addendums (
			id, tenant_id, jurisdiction_code, name, addendum_html, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (tenant_id, jurisdiction_code) DO UPDATE SET
			name = EXCLUDED.name,
			addendum_html = EXCLUDED.addendum_html,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING `+addendumColumns,
		id.String(), tenantID, addendum.Code, addendum.Name,
		addendum.AddendumHTML, addendum.IsActive))
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *PgJurisdictionRepository) List(ctx context.Context) ([]*jurisdiction.Addendum, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT `+addendumColumns+`
		FROM jurisdiction_addendums
		WHERE tenant_id = $1
		ORDER BY jurisdiction_code`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*jurisdiction.Addendum
	for rows.Next() {
		addendum, err := scanAddendum(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, addendum)
	}
	return results, rows.Err()
}
