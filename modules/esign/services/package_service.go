package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signpackage"
	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/modules/esign/domain/entities/doctemplate"
	"github.com/showconnect/esign/modules/esign/domain/entities/jurisdiction"
	"github.com/showconnect/esign/modules/esign/infrastructure/notify"
	"github.com/showconnect/esign/modules/esign/infrastructure/webhooks"
	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/eventbus"
	"github.com/showconnect/esign/pkg/metrics"
	"github.com/showconnect/esign/pkg/serrors"
)

type CreatePackageParams struct {
	ExternalRef     string
	ExternalType    string
	DocumentName    string
	DocumentContent string
	TemplateCode    string
	Jurisdiction    string
	MergeVariables  map[string]string
	EventDate       string
	Assignments     []signpackage.Assignment
	CallbackURL     string
	CreatedBy       string
}

type ReplaceSignerParams struct {
	RoleID      uuid.UUID
	Name        string
	Email       string
	Phone       string
	DateOfBirth string
}

// PackageStatus is the aggregate view of a package with its roles.
type PackageStatus struct {
	Package *signpackage.Package
	Roles   []*signpackage.Role
}

// PackageService builds multi-party signing packages: one request per
// consolidated signer, one role row per original assignment, and keeps
// completion counts in sync as tied requests reach signed.
type PackageService struct {
	repo      signpackage.Repository
	requests  signrequest.Repository
	resolver  contentResolver
	notifier  notify.Notifier
	publisher eventbus.EventBus
	pool      *pgxpool.Pool
	ageTable  []signpackage.AgeRequirement
	baseURL   string
	ttl       time.Duration
}

// NewPackageService wires the service and subscribes its completion and
// decline handlers. pool may be nil in tests; the handlers then run against
// whatever executor the repositories resolve themselves.
func NewPackageService(
	repo signpackage.Repository,
	requests signrequest.Repository,
	templates doctemplate.Repository,
	jurisdictions jurisdiction.Repository,
	notifier notify.Notifier,
	publisher eventbus.EventBus,
	pool *pgxpool.Pool,
	baseURL string,
	ttl time.Duration,
) *PackageService {
	s := &PackageService{
		repo:      repo,
		requests:  requests,
		resolver:  contentResolver{templates: templates, jurisdictions: jurisdictions},
		notifier:  notifier,
		publisher: publisher,
		pool:      pool,
		ageTable:  signpackage.DefaultAgeRequirements,
		baseURL:   baseURL,
		ttl:       ttl,
	}
	publisher.Subscribe(s.onRequestSigned)
	publisher.Subscribe(s.onRequestDeclined)
	return s
}

// backgroundContext builds the context event handlers run with: tenant plus
// the pool, since the publishing request's context is not carried through
// the bus.
func (s *PackageService) backgroundContext(tenantID string) context.Context {
	ctx := composables.WithTenantID(context.Background(), tenantID)
	if s.pool != nil {
		ctx = composables.WithPool(ctx, s.pool)
	}
	return ctx
}

// AgeRequirements exposes the role age table for the admin API.
func (s *PackageService) AgeRequirements() []signpackage.AgeRequirement {
	return s.ageTable
}

// Create runs the full consolidation pipeline: age validation, admin
// validation, identity grouping, two-phase content resolution, then one
// request per group and one role row per assignment.
func (s *PackageService) Create(ctx context.Context, params CreatePackageParams) (*PackageStatus, error) {
	if len(params.Assignments) == 0 {
		return nil, serrors.NewValidationError("at least one signer assignment is required")
	}
	for _, a := range params.Assignments {
		if a.Name == "" || a.Role == "" {
			return nil, serrors.NewValidationError("every assignment needs a role and a signer name")
		}
		if a.Email == "" && a.Phone == "" {
			return nil, serrors.NewValidationError(fmt.Sprintf("assignment for %s needs an email or phone", a.Name))
		}
	}
	if err := webhooks.ValidateCallbackURL(params.CallbackURL); err != nil {
		return nil, serrors.NewValidationError(err.Error())
	}

	assignments := make([]signpackage.Assignment, len(params.Assignments))
	copy(assignments, params.Assignments)

	if violations := signpackage.ValidateAges(assignments, params.EventDate, s.ageTable, time.Now()); len(violations) > 0 {
		return nil, serrors.NewValidationError("age requirements not met", violations...)
	}
	if !signpackage.ValidateAdmin(assignments) {
		return nil, serrors.NewValidationError("only one signer may be flagged as package admin")
	}
	if !hasAdminFlag(assignments) {
		assignments[0].IsPackageAdmin = true
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	base, err := s.resolver.resolveBase(ctx, params.DocumentContent, params.TemplateCode, params.Jurisdiction, params.MergeVariables)
	if err != nil {
		return nil, err
	}
	documentName := params.DocumentName
	if documentName == "" {
		documentName = base.DocumentName
	}
	if documentName == "" {
		return nil, serrors.NewValidationError("document name is required")
	}

	groups := signpackage.Consolidate(assignments)
	now := time.Now()

	pkg := &signpackage.Package{
		ID:              uuid.New(),
		Code:            signrequest.NewReferenceCode("PKG"),
		TenantID:        tenantID,
		ExternalRef:     params.ExternalRef,
		ExternalType:    params.ExternalType,
		TemplateCode:    params.TemplateCode,
		TemplateVersion: base.TemplateVersion,
		DocumentName:    documentName,
		DocumentContent: base.Body,
		Jurisdiction:    params.Jurisdiction,
		MergeVariables:  params.MergeVariables,
		EventDate:       params.EventDate,
		Status:          signpackage.StatusPending,
		TotalSigners:    len(groups),
		ExpiresAt:       now.Add(s.ttl),
		CallbackURL:     params.CallbackURL,
		CreatedBy:       params.CreatedBy,
		CreatedAt:       now,
	}

	type pendingSend struct {
		req *signrequest.Request
		tok *signrequest.Token
	}
	var sends []pendingSend
	var roles []*signpackage.Role

	err = composables.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, pkg); err != nil {
			return err
		}
		for _, group := range groups {
			primary := group.Primary()
			roleNames := group.RoleNames()

			// Second resolution pass on a fresh copy of the base body, so
			// one signer's identity never leaks into another's document.
			content := signpackage.ResolveVariables(
				base.Body,
				signpackage.SignerVariables(primary, roleNames, params.EventDate),
			)

			req := &signrequest.Request{
				ID:              uuid.New(),
				ReferenceCode:   signrequest.NewReferenceCode("SIG"),
				TenantID:        tenantID,
				ExternalRef:     params.ExternalRef,
				ExternalType:    params.ExternalType,
				DocumentName:    documentName,
				DocumentContent: content,
				TemplateCode:    params.TemplateCode,
				TemplateVersion: base.TemplateVersion,
				Jurisdiction:    params.Jurisdiction,
				SignerName:      primary.Name,
				SignerEmail:     primary.Email,
				SignerPhone:     primary.Phone,
				Method:          signrequest.DetectMethod(primary.Email, primary.Phone),
				Status:          signrequest.StatusPending,
				PackageID:       &pkg.ID,
				RolesDisplay:    strings.Join(roleNames, ", "),
				CallbackURL:     params.CallbackURL,
				CreatedBy:       params.CreatedBy,
				CreatedAt:       now,
				ExpiresAt:       pkg.ExpiresAt,
			}
			tok := &signrequest.Token{
				ID:        uuid.New(),
				RequestID: req.ID,
				Value:     signrequest.NewTokenValue(),
				CreatedAt: now,
			}
			if err := s.requests.Create(txCtx, req, tok); err != nil {
				return err
			}
			metrics.RequestsCreated.Inc()
			sends = append(sends, pendingSend{req: req, tok: tok})

			groupID := uuid.New()
			for _, a := range group.Assignments {
				role := &signpackage.Role{
					ID:                uuid.New(),
					PackageID:         pkg.ID,
					RoleName:          a.Role,
					SignerName:        a.Name,
					SignerEmail:       a.Email,
					SignerPhone:       a.Phone,
					DateOfBirth:       a.DateOfBirth,
					IsMinor:           a.IsMinor != nil && *a.IsMinor,
					IsPackageAdmin:    a.IsPackageAdmin,
					RequestID:         &req.ID,
					ConsolidatedGroup: groupID,
					Status:            signpackage.RoleStatusSent,
				}
				if err := s.repo.CreateRole(txCtx, role); err != nil {
					return err
				}
				roles = append(roles, role)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Dispatch after the transaction committed; delivery failure never
	// unwinds created records.
	for _, send := range sends {
		signURL := fmt.Sprintf("%s/sign/%s", s.baseURL, send.tok.Value)
		if err := s.notifier.SendRequestLink(ctx, send.req, signURL); err != nil {
			composables.UseLogger(ctx).
				WithError(err).
				WithField("reference_code", send.req.ReferenceCode).
				Warn("sign link delivery failed")
			continue
		}
		if err := transitionStatus(ctx, s.requests, send.req, signrequest.StatusSent); err != nil {
			return nil, err
		}
		s.publisher.Publish(signrequest.CreatedEvent{Result: *send.req})
	}

	return &PackageStatus{Package: pkg, Roles: roles}, nil
}

func hasAdminFlag(assignments []signpackage.Assignment) bool {
	for _, a := range assignments {
		if a.IsPackageAdmin {
			return true
		}
	}
	return false
}

func (s *PackageService) GetByID(ctx context.Context, id uuid.UUID) (*PackageStatus, error) {
	pkg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withRoles(ctx, pkg)
}

func (s *PackageService) GetByCode(ctx context.Context, code string) (*PackageStatus, error) {
	pkg, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.withRoles(ctx, pkg)
}

func (s *PackageService) List(ctx context.Context, params *signpackage.FindParams) ([]*signpackage.Package, error) {
	return s.repo.List(ctx, params)
}

func (s *PackageService) withRoles(ctx context.Context, pkg *signpackage.Package) (*PackageStatus, error) {
	roles, err := s.repo.Roles(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}
	return &PackageStatus{Package: pkg, Roles: roles}, nil
}

const batchLimit = 50

type BatchResult struct {
	Found    []*PackageStatus
	NotFound []string
}

// GetBatch loads up to 50 packages by code in one call, deduplicating the
// input and reporting unknown codes instead of failing the whole batch.
func (s *PackageService) GetBatch(ctx context.Context, codes []string) (*BatchResult, error) {
	seen := make(map[string]struct{}, len(codes))
	deduped := make([]string, 0, len(codes))
	for _, code := range codes {
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		deduped = append(deduped, code)
	}
	if len(deduped) == 0 {
		return nil, serrors.NewValidationError("at least one package code is required")
	}
	if len(deduped) > batchLimit {
		return nil, serrors.NewValidationError(fmt.Sprintf("at most %d package codes per batch", batchLimit))
	}

	result := &BatchResult{}
	for _, code := range deduped {
		status, err := s.GetByCode(ctx, code)
		if err != nil {
			if _, ok := err.(*serrors.NotFoundError); ok {
				result.NotFound = append(result.NotFound, code)
				continue
			}
			return nil, err
		}
		result.Found = append(result.Found, status)
	}
	return result, nil
}

// ReplaceSigner swaps the signer behind a not-yet-signed role. The old
// request is cancelled, never edited, so the record of who was originally
// asked survives; every sibling role of the consolidated group repoints to a
// brand-new request and resets to sent.
func (s *PackageService) ReplaceSigner(ctx context.Context, packageID uuid.UUID, params ReplaceSignerParams) (*signrequest.Request, string, error) {
	if params.Name == "" {
		return nil, "", serrors.NewValidationError("replacement signer name is required")
	}
	if params.Email == "" && params.Phone == "" {
		return nil, "", serrors.NewValidationError("replacement signer email or phone is required")
	}

	pkg, err := s.repo.GetByID(ctx, packageID)
	if err != nil {
		return nil, "", err
	}
	if pkg.Status == signpackage.StatusComplete || pkg.Status == signpackage.StatusCancelled {
		return nil, "", serrors.NewStateConflict(string(pkg.Status))
	}

	role, err := s.repo.RoleByID(ctx, params.RoleID)
	if err != nil {
		return nil, "", err
	}
	if role.PackageID != packageID {
		return nil, "", serrors.NewNotFound("role")
	}
	if role.Status == signpackage.RoleStatusSigned {
		return nil, "", serrors.NewStateConflict(string(role.Status))
	}

	siblings, err := s.repo.RolesByGroup(ctx, role.ConsolidatedGroup)
	if err != nil {
		return nil, "", err
	}
	roleNames := make([]string, 0, len(siblings))
	for _, sib := range siblings {
		roleNames = append(roleNames, sib.RoleName)
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, "", err
	}

	assignment := signpackage.Assignment{
		Role:        role.RoleName,
		Name:        params.Name,
		Email:       params.Email,
		Phone:       params.Phone,
		DateOfBirth: params.DateOfBirth,
	}
	content := signpackage.ResolveVariables(
		pkg.DocumentContent,
		signpackage.SignerVariables(assignment, roleNames, pkg.EventDate),
	)

	now := time.Now()
	newReq := &signrequest.Request{
		ID:              uuid.New(),
		ReferenceCode:   signrequest.NewReferenceCode("SIG"),
		TenantID:        tenantID,
		ExternalRef:     pkg.ExternalRef,
		ExternalType:    pkg.ExternalType,
		DocumentName:    pkg.DocumentName,
		DocumentContent: content,
		TemplateCode:    pkg.TemplateCode,
		TemplateVersion: pkg.TemplateVersion,
		Jurisdiction:    pkg.Jurisdiction,
		SignerName:      params.Name,
		SignerEmail:     params.Email,
		SignerPhone:     params.Phone,
		Method:          signrequest.DetectMethod(params.Email, params.Phone),
		Status:          signrequest.StatusPending,
		PackageID:       &pkg.ID,
		RolesDisplay:    strings.Join(roleNames, ", "),
		CallbackURL:     pkg.CallbackURL,
		CreatedBy:       pkg.CreatedBy,
		CreatedAt:       now,
		ExpiresAt:       pkg.ExpiresAt,
	}
	newTok := &signrequest.Token{
		ID:        uuid.New(),
		RequestID: newReq.ID,
		Value:     signrequest.NewTokenValue(),
		CreatedAt: now,
	}

	oldRequestID := role.RequestID
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, newReq, newTok); err != nil {
			return err
		}
		for _, sib := range siblings {
			if err := s.repo.ReassignRole(txCtx, sib.ID, params.Name, params.Email, params.Phone, params.DateOfBirth, newReq.ID); err != nil {
				return err
			}
		}
		if oldRequestID != nil {
			old, err := s.requests.GetByID(txCtx, *oldRequestID)
			if err != nil {
				return err
			}
			if !old.Status.IsTerminal() {
				if err := transitionStatus(txCtx, s.requests, old, signrequest.StatusCancelled); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	metrics.RequestsCreated.Inc()

	signURL := fmt.Sprintf("%s/sign/%s", s.baseURL, newTok.Value)
	if err := s.notifier.SendRequestLink(ctx, newReq, signURL); err != nil {
		composables.UseLogger(ctx).
			WithError(err).
			WithField("reference_code", newReq.ReferenceCode).
			Warn("replacement sign link delivery failed")
	} else if err := transitionStatus(ctx, s.requests, newReq, signrequest.StatusSent); err != nil {
		return nil, "", err
	}

	return newReq, signURL, nil
}

// onRequestSigned is the completion aggregation: siblings of the signed
// request flip to signed, and completed signers are recounted as distinct
// consolidated groups, never raw role rows.
func (s *PackageService) onRequestSigned(event signrequest.SignedEvent) {
	if event.Result.PackageID == nil {
		return
	}
	ctx := s.backgroundContext(event.Result.TenantID)
	log := composables.UseLogger(ctx).WithField("reference_code", event.Result.ReferenceCode)

	signedAt := time.Now()
	if event.Result.SignedAt != nil {
		signedAt = *event.Result.SignedAt
	}
	if err := s.repo.MarkRolesSigned(ctx, event.Result.ID, signedAt); err != nil {
		log.WithError(err).Error("marking package roles signed failed")
		return
	}

	pkg, err := s.repo.GetByID(ctx, *event.Result.PackageID)
	if err != nil {
		log.WithError(err).Error("loading package for completion aggregation failed")
		return
	}

	signedGroups, err := s.repo.CountSignedGroups(ctx, pkg.ID)
	if err != nil {
		log.WithError(err).Error("counting signed groups failed")
		return
	}

	status := signpackage.StatusPartial
	var completedAt *time.Time
	if signedGroups >= pkg.TotalSigners {
		status = signpackage.StatusComplete
		at := time.Now()
		completedAt = &at
	}
	if err := s.repo.UpdateProgress(ctx, pkg.ID, signedGroups, status, completedAt); err != nil {
		log.WithError(err).Error("updating package progress failed")
	}
}

// onRequestDeclined notifies the package admin with the replacement link for
// the declined role.
func (s *PackageService) onRequestDeclined(event signrequest.DeclinedEvent) {
	if event.Result.PackageID == nil {
		return
	}
	ctx := s.backgroundContext(event.Result.TenantID)
	log := composables.UseLogger(ctx).WithField("reference_code", event.Result.ReferenceCode)

	if err := s.repo.UpdateRolesStatusByRequestID(ctx, event.Result.ID, signpackage.RoleStatusDeclined); err != nil {
		log.WithError(err).Error("marking package roles declined failed")
		return
	}

	declinedRole, err := s.repo.RoleByRequestID(ctx, event.Result.ID)
	if err != nil {
		log.WithError(err).Error("loading declined role failed")
		return
	}

	roles, err := s.repo.Roles(ctx, *event.Result.PackageID)
	if err != nil {
		log.WithError(err).Error("loading package roles failed")
		return
	}
	var admin *signpackage.Role
	for _, r := range roles {
		if r.IsPackageAdmin {
			admin = r
			break
		}
	}
	if admin == nil || admin.RequestID == nil || *admin.RequestID == event.Result.ID {
		return
	}

	adminReq, err := s.requests.GetByID(ctx, *admin.RequestID)
	if err != nil {
		log.WithError(err).Error("loading admin request failed")
		return
	}

	replaceURL := fmt.Sprintf("%s/packages/%s/roles/%s/replace",
		s.baseURL, event.Result.PackageID.String(), declinedRole.ID.String())
	if err := s.notifier.SendDeclineNotice(ctx, adminReq, event.Result.SignerName, event.Reason, replaceURL); err != nil {
		log.WithError(err).Error("decline notice delivery failed")
	}
}
