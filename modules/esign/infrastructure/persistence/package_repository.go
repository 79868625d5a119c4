package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signpackage"
	"github.com/showconnect/esign/modules/esign/infrastructure/persistence/models"
	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/repo"
	"github.com/showconnect/esign/pkg/serrors"
)

const packageColumns = `
	id, package_code, tenant_id, external_ref, external_type, template_code,
	template_version, document_name, document_content, jurisdiction,
	merge_variables, event_date, status, total_signers, completed_signers,
	expires_at, callback_url, created_by, created_at, completed_at`

const roleColumns = `
	id, package_id, role_name, signer_name, signer_email, signer_phone,
	date_of_birth, is_minor, is_package_admin, request_id, consolidated_group,
	status, signed_at`

type PgPackageRepository struct{}

func NewPackageRepository() signpackage.Repository {
	return &PgPackageRepository{}
}

func scanPackage(row pgx.Row) (*signpackage.Package, error) {
	var m models.SigningPackage
	if err := row.Scan(
		&m.ID, &m.PackageCode, &m.TenantID, &m.ExternalRef, &m.ExternalType,
		&m.TemplateCode, &m.TemplateVersion, &m.DocumentName, &m.DocumentContent,
		&m.Jurisdiction, &m.MergeVariables, &m.EventDate, &m.Status,
		&m.TotalSigners, &m.CompletedSigners, &m.ExpiresAt, &m.CallbackURL,
		&m.CreatedBy, &m.CreatedAt, &m.CompletedAt,
	); err != nil {
		return nil, err
	}
	return toDomainPackage(&m)
}

func scanRole(row pgx.Row) (*signpackage.Role, error) {
	var m models.SigningRole
	if err := row.Scan(
		&m.ID, &m.PackageID, &m.RoleName, &m.SignerName, &m.SignerEmail,
		&m.SignerPhone, &m.DateOfBirth, &m.IsMinor, &m.IsPackageAdmin,
		&m.RequestID, &m.ConsolidatedGroup, &m.Status, &m.SignedAt,
	); err != nil {
		return nil, err
	}
	return toDomainRole(&m)
}

func (r *PgPackageRepository) Create(ctx context.Context, pkg *signpackage.Package) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m, err := toDBPackage(pkg)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO signing_packages (
			id, package_code, tenant_id, external_ref, external_type,
			template_code, template_version, document_name, document_content,
			jurisdiction, merge_variables, event_date, status, total_signers,
			completed_signers, expires_at, callback_url, created_by, created_at,
			completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20)`,
		m.ID, m.PackageCode, m.TenantID, m.ExternalRef, m.ExternalType,
		m.TemplateCode, m.TemplateVersion, m.DocumentName, m.DocumentContent,
		m.Jurisdiction, m.MergeVariables, m.EventDate, m.Status, m.TotalSigners,
		m.CompletedSigners, m.ExpiresAt, m.CallbackURL, m.CreatedBy, m.CreatedAt,
		m.CompletedAt,
	)
	return err
}

func (r *PgPackageRepository) GetByID(ctx context.Context, id uuid.UUID) (*signpackage.Package, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	pkg, err := scanPackage(tx.QueryRow(ctx, `
		SELECT `+packageColumns+`
		FROM signing_packages WHERE id = $1 AND tenant_id = $2`,
		id.String(), tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.NewNotFound("package")
	}
	return pkg, err
}

func (r *PgPackageRepository) GetByCode(ctx context.Context, code string) (*signpackage.Package, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	pkg, err := scanPackage(tx.QueryRow(ctx, `
		SELECT `+packageColumns+`
		FROM signing_packages WHERE package_code = $1 AND tenant_id = $2`,
		code, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.NewNotFound("package")
	}
	return pkg, err
}

func (r *PgPackageRepository) List(ctx context.Context, params *signpackage.FindParams) ([]*signpackage.Package, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &signpackage.FindParams{}
	}

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if params.Status != "" {
		args = append(args, string(params.Status))
		where = append(where, "status = $"+itoa(len(args)))
	}
	if params.ExternalRef != "" {
		args = append(args, params.ExternalRef)
		where = append(where, "external_ref = $"+itoa(len(args)))
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := tx.Query(ctx, `
		SELECT `+packageColumns+`
		FROM signing_packages
		WHERE `+joinAnd(where)+`
		ORDER BY created_at DESC `+repo.FormatLimitOffset(limit, params.Offset),
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*signpackage.Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, pkg)
	}
	return results, rows.Err()
}

func (r *PgPackageRepository) UpdateProgress(ctx context.Context, id uuid.UUID, completedSigners int, status signpackage.Status, completedAt *time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE signing_packages
		SET completed_signers = $1, status = $2, completed_at = $3
		WHERE id = $4`,
		completedSigners, string(status), completedAt, id.String())
	return err
}

func (r *PgPackageRepository) CreateRole(ctx context.Context, role *signpackage.Role) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var requestID *string
	if role.RequestID != nil {
		s := role.RequestID.String()
		requestID = &s
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO signing_roles (
			id, package_id, role_name, signer_name, signer_email, signer_phone,
			date_of_birth, is_minor, is_package_admin, request_id,
			consolidated_group, status, signed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		role.ID.String(), role.PackageID.String(), role.RoleName,
		role.SignerName, nilIfEmpty(role.SignerEmail), nilIfEmpty(role.SignerPhone),
		nilIfEmpty(role.DateOfBirth), role.IsMinor, role.IsPackageAdmin,
		requestID, role.ConsolidatedGroup.String(), string(role.Status),
		role.SignedAt,
	)
	return err
}

func (r *PgPackageRepository) Roles(ctx context.Context, packageID uuid.UUID) ([]*signpackage.Role, error) {
	return r.queryRoles(ctx, `
		SELECT `+roleColumns+`
		FROM signing_roles WHERE package_id = $1 ORDER BY role_name`,
		packageID.String())
}

func (r *PgPackageRepository) RoleByID(ctx context.Context, id uuid.UUID) (*signpackage.Role, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	role, err := scanRole(tx.QueryRow(ctx, `
		SELECT `+roleColumns+`
		FROM signing_roles WHERE id = $1`, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.NewNotFound("role")
	}
	return role, err
}

func (r *PgPackageRepository) RoleByRequestID(ctx context.Context, requestID uuid.UUID) (*signpackage.Role, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	role, err := scanRole(tx.QueryRow(ctx, `
		SELECT `+roleColumns+`
		FROM signing_roles WHERE request_id = $1 LIMIT 1`, requestID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.NewNotFound("role")
	}
	return role, err
}

func (r *PgPackageRepository) RolesByGroup(ctx context.Context, group uuid.UUID) ([]*signpackage.Role, error) {
	return r.queryRoles(ctx, `
		SELECT `+roleColumns+`
		FROM signing_roles WHERE consolidated_group = $1`,
		group.String())
}

func (r *PgPackageRepository) queryRoles(ctx context.Context, query string, args ...any) ([]*signpackage.Role, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*signpackage.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, role)
	}
	return results, rows.Err()
}

func (r *PgPackageRepository) MarkRolesSigned(ctx context.Context, requestID uuid.UUID, at time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE signing_roles SET status = 'signed', signed_at = $1 WHERE request_id = $2`,
		at, requestID.String())
	return err
}

func (r *PgPackageRepository) UpdateRolesStatusByRequestID(ctx context.Context, requestID uuid.UUID, status signpackage.RoleStatus) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE signing_roles SET status = $1 WHERE request_id = $2`,
		string(status), requestID.String())
	return err
}

func (r *PgPackageRepository) ReassignRole(ctx context.Context, roleID uuid.UUID, name, email, phone, dateOfBirth string, requestID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE signing_roles
		SET signer_name = $1, signer_email = $2, signer_phone = $3,
			date_of_birth = $4, request_id = $5, status = 'sent', signed_at = NULL
		WHERE id = $6`,
		name, nilIfEmpty(email), nilIfEmpty(phone), nilIfEmpty(dateOfBirth),
		requestID.String(), roleID.String())
	return err
}

func (r *PgPackageRepository) CountSignedGroups(ctx context.Context, packageID uuid.UUID) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(DISTINCT consolidated_group)
		FROM signing_roles
		WHERE package_id = $1 AND status = 'signed'`,
		packageID.String()).Scan(&count)
	return count, err
}
