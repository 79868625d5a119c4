package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/showconnect/esign/modules/esign/domain/entities/doctemplate"
	"github.com/showconnect/esign/modules/esign/infrastructure/persistence/models"
	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/serrors"
)

const templateColumns = `
	id, tenant_id, template_code, name, description, html_content,
	jurisdiction, version, is_active, created_by, created_at, updated_at`

type PgTemplateRepository struct{}

func NewTemplateRepository() doctemplate.Repository {
	return &PgTemplateRepository{}
}

func scanTemplate(row pgx.Row) (*doctemplate.Template, error) {
	var m models.WaiverTemplate
	if err := row.Scan(
		&m.ID, &m.TenantID, &m.TemplateCode, &m.Name, &m.Description,
		&m.HTMLContent, &m.Jurisdiction, &m.Version, &m.IsActive, &m.CreatedBy,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainTemplate(&m)
}

func (r *PgTemplateRepository) Create(ctx context.Context, tpl *doctemplate.Template) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO waiver_templates (
			id, tenant_id, template_code, name, description, html_content,
			jurisdiction, version, is_active, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		tpl.ID.String(), tpl.TenantID, tpl.Code, tpl.Name,
		nilIfEmpty(tpl.Description), tpl.HTMLContent, nilIfEmpty(tpl.Jurisdiction),
		tpl.Version, tpl.IsActive, nilIfEmpty(tpl.CreatedBy), tpl.CreatedAt,
		tpl.UpdatedAt,
	)
	return err
}

func (r *PgTemplateRepository) GetByCode(ctx context.Context, code string) (*doctemplate.Template, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tpl, err := scanTemplate(tx.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM waiver_templates
		WHERE template_code = $1 AND tenant_id = $2 AND is_active = TRUE`,
		code, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.NewNotFound("template")
	}
	return tpl, err
}

// Update bumps the version so requests created against the old body keep a
// truthful template_version snapshot.
func (r *PgTemplateRepository) Update(ctx context.Context, tpl *doctemplate.Template) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE waiver_templates
		SET name = $1, description = $2, html_content = $3, jurisdiction = $4,
			is_active = $5, version = version + 1, updated_at = NOW()
		WHERE template_code = $6 AND tenant_id = $7`,
		tpl.Name, nilIfEmpty(tpl.Description), tpl.HTMLContent,
		nilIfEmpty(tpl.Jurisdiction), tpl.IsActive, tpl.Code, tenantID)
	return err
}

func (r *PgTemplateRepository) List(ctx context.Context, jurisdictionCode string) ([]*doctemplate.Template, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + templateColumns + `
		FROM waiver_templates
		WHERE tenant_id = $1 AND is_active = TRUE`
	args := []any{tenantID}
	if jurisdictionCode != "" {
		query += " AND jurisdiction = $2"
		args = append(args, jurisdictionCode)
	}
	query += " ORDER BY name"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*doctemplate.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, tpl)
	}
	return results, rows.Err()
}

func (r *PgTemplateRepository) Deactivate(ctx context.Context, code string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE waiver_templates SET is_active = FALSE, updated_at = NOW()
		WHERE template_code = $1 AND tenant_id = $2`,
		code, tenantID)
	return err
}
