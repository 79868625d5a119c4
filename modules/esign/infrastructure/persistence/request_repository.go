package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/modules/esign/infrastructure/persistence/models"
	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/repo"
	"github.com/showconnect/esign/pkg/serrors"
)

const requestColumns = `
	id, reference_code, tenant_id, external_ref, external_type, document_name,
	document_content, document_url, template_code, template_version, jurisdiction,
	signer_name, signer_email, signer_phone, verification_method, status,
	decline_reason, package_id, roles_display, callback_url, created_by,
	created_at, expires_at, signed_at`

const tokenColumns = `
	id, request_id, token, verification_code, code_expires_at, code_attempts,
	is_verified, verified_at, created_at`

type PgRequestRepository struct{}

func NewRequestRepository() signrequest.Repository {
	return &PgRequestRepository{}
}

func scanRequest(row pgx.Row) (*signrequest.Request, error) {
	var m models.SignatureRequest
	if err := row.Scan(
		&m.ID, &m.ReferenceCode, &m.TenantID, &m.ExternalRef, &m.ExternalType,
		&m.DocumentName, &m.DocumentContent, &m.DocumentURL, &m.TemplateCode,
		&m.TemplateVersion, &m.Jurisdiction, &m.SignerName, &m.SignerEmail,
		&m.SignerPhone, &m.Method, &m.Status, &m.DeclineReason, &m.PackageID,
		&m.RolesDisplay, &m.CallbackURL, &m.CreatedBy, &m.CreatedAt,
		&m.ExpiresAt, &m.SignedAt,
	); err != nil {
		return nil, err
	}
	return toDomainRequest(&m)
}

func scanToken(row pgx.Row) (*signrequest.Token, error) {
	var m models.SignatureToken
	if err := row.Scan(
		&m.ID, &m.RequestID, &m.Token, &m.VerificationCode, &m.CodeExpiresAt,
		&m.CodeAttempts, &m.IsVerified, &m.VerifiedAt, &m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainToken(&m)
}

func (r *PgRequestRepository) Create(ctx context.Context, req *signrequest.Request, token *signrequest.Token) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	m := toDBRequest(req)
	if _, err := tx.Exec(ctx, `
		INSERT INTO signature_requests (
			id, reference_code, tenant_id, external_ref, external_type,
			document_name, document_content, document_url, template_code,
			template_version, jurisdiction, signer_name, signer_email,
			signer_phone, verification_method, status, decline_reason,
			package_id, roles_display, callback_url, created_by, created_at,
			expires_at, signed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		m.ID, m.ReferenceCode, m.TenantID, m.ExternalRef, m.ExternalType,
		m.DocumentName, m.DocumentContent, m.DocumentURL, m.TemplateCode,
		m.TemplateVersion, m.Jurisdiction, m.SignerName, m.SignerEmail,
		m.SignerPhone, m.Method, m.Status, m.DeclineReason, m.PackageID,
		m.RolesDisplay, m.CallbackURL, m.CreatedBy, m.CreatedAt, m.ExpiresAt,
		m.SignedAt,
	); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO signature_tokens (id, request_id, token, code_attempts, is_verified, created_at)
		VALUES ($1, $2, $3, 0, FALSE, $4)`,
		token.ID.String(), token.RequestID.String(), token.Value, token.CreatedAt,
	)
	return err
}

func (r *PgRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*signrequest.Request, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	req, err := scanRequest(tx.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM signature_requests WHERE id = $1 AND tenant_id = $2`,
		id.String(), tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.NewNotFound("request")
	}
	return req, err
}

func (r *PgRequestRepository) GetByReferenceCode(ctx context.Context, code string) (*signrequest.Request, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	req, err := scanRequest(tx.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM signature_requests WHERE reference_code = $1 AND tenant_id = $2`,
		code, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.NewNotFound("request")
	}
	return req, err
}

// GetByToken is the signer-surface lookup: it is keyed by the capability
// token alone, never tenant-scoped.
func (r *PgRequestRepository) GetByToken(ctx context.Context, token string) (*signrequest.Request, *signrequest.Token, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, nil, err
	}

	tok, err := scanToken(tx.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM signature_tokens WHERE token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, serrors.NewNotFound("request")
	}
	if err != nil {
		return nil, nil, err
	}

	req, err := scanRequest(tx.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM signature_requests WHERE id = $1`, tok.RequestID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, serrors.NewNotFound("request")
	}
	if err != nil {
		return nil, nil, err
	}
	return req, tok, nil
}

func (r *PgRequestRepository) GetTokenByRequestID(ctx context.Context, requestID uuid.UUID) (*signrequest.Token, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := scanToken(tx.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM signature_tokens WHERE request_id = $1`, requestID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.NewNotFound("token")
	}
	return tok, err
}

func (r *PgRequestRepository) List(ctx context.Context, params *signrequest.FindParams) ([]*signrequest.Request, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &signrequest.FindParams{}
	}

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	appendFilter := func(clause string, value string) {
		if value != "" {
			args = append(args, value)
			where = append(where, clause+" = $"+itoa(len(args)))
		}
	}
	appendFilter("status", string(params.Status))
	appendFilter("external_ref", params.ExternalRef)
	appendFilter("external_type", params.ExternalType)
	appendFilter("signer_email", params.SignerEmail)
	appendFilter("created_by", params.CreatedBy)
	appendFilter("jurisdiction", params.Jurisdiction)

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + requestColumns + `
		FROM signature_requests
		WHERE ` + joinAnd(where) + `
		ORDER BY created_at DESC ` + repo.FormatLimitOffset(limit, params.Offset)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*signrequest.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, req)
	}
	return results, rows.Err()
}

func (r *PgRequestRepository) ListExpired(ctx context.Context, now time.Time) ([]*signrequest.Request, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+requestColumns+`
		FROM signature_requests
		WHERE expires_at < $1
		  AND status NOT IN ('signed', 'expired', 'cancelled', 'declined')`,
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*signrequest.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, req)
	}
	return results, rows.Err()
}

func (r *PgRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status signrequest.Status) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if status == signrequest.StatusSigned {
		_, err = tx.Exec(ctx, `
			UPDATE signature_requests SET status = $1, signed_at = NOW() WHERE id = $2`,
			string(status), id.String())
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE signature_requests SET status = $1 WHERE id = $2`,
		string(status), id.String())
	return err
}

func (r *PgRequestRepository) UpdateDeclined(ctx context.Context, id uuid.UUID, reason string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE signature_requests SET status = 'declined', decline_reason = $1 WHERE id = $2`,
		nilIfEmpty(reason), id.String())
	return err
}

func (r *PgRequestRepository) AttachPackage(ctx context.Context, id uuid.UUID, packageID uuid.UUID, rolesDisplay string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE signature_requests SET package_id = $1, roles_display = $2 WHERE id = $3`,
		packageID.String(), rolesDisplay, id.String())
	return err
}

func (r *PgRequestRepository) SetVerificationCode(ctx context.Context, tokenID uuid.UUID, code string, expiresAt time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE signature_tokens
		SET verification_code = $1, code_expires_at = $2, code_attempts = 0
		WHERE id = $3`,
		code, expiresAt, tokenID.String())
	return err
}

func (r *PgRequestRepository) IncrementCodeAttempts(ctx context.Context, tokenID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE signature_tokens SET code_attempts = code_attempts + 1 WHERE id = $1`,
		tokenID.String())
	return err
}

func (r *PgRequestRepository) MarkVerified(ctx context.Context, tokenID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE signature_tokens SET is_verified = TRUE, verified_at = NOW() WHERE id = $1`,
		tokenID.String())
	return err
}

func (r *PgRequestRepository) CreateSignature(ctx context.Context, sig *signrequest.Signature) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO signatures (
			id, request_id, signature_type, typed_name, signature_image,
			signer_ip, user_agent, consent_text, verification_method_used, signed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sig.ID.String(), sig.RequestID.String(), string(sig.Kind),
		nilIfEmpty(sig.TypedName), nilIfEmpty(sig.ImageData),
		nilIfEmpty(sig.SignerIP), nilIfEmpty(sig.UserAgent),
		nilIfEmpty(sig.ConsentText), nilIfEmpty(sig.VerificationMethodUsed),
		sig.SignedAt,
	)
	return err
}

func (r *PgRequestRepository) GetSignatureByRequestID(ctx context.Context, requestID uuid.UUID) (*signrequest.Signature, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var m models.Signature
	err = tx.QueryRow(ctx, `
		SELECT id, request_id, signature_type, typed_name, signature_image,
			signer_ip, user_agent, consent_text, verification_method_used, signed_at
		FROM signatures WHERE request_id = $1`, requestID.String()).Scan(
		&m.ID, &m.RequestID, &m.SignatureType, &m.TypedName, &m.SignatureImage,
		&m.SignerIP, &m.UserAgent, &m.ConsentText, &m.VerificationMethodUsed,
		&m.SignedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.NewNotFound("signature")
	}
	if err != nil {
		return nil, err
	}
	return toDomainSignature(&m)
}
