package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signpackage"
	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/modules/esign/domain/entities/doctemplate"
	"github.com/showconnect/esign/modules/esign/domain/entities/jurisdiction"
	"github.com/showconnect/esign/pkg/serrors"
)

type fakeRequestRepo struct {
	mu         sync.Mutex
	requests   map[uuid.UUID]*signrequest.Request
	tokens     map[uuid.UUID]*signrequest.Token
	signatures map[uuid.UUID]*signrequest.Signature
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{
		requests:   make(map[uuid.UUID]*signrequest.Request),
		tokens:     make(map[uuid.UUID]*signrequest.Token),
		signatures: make(map[uuid.UUID]*signrequest.Signature),
	}
}

func cloneRequest(r *signrequest.Request) *signrequest.Request {
	out := *r
	return &out
}

func cloneToken(t *signrequest.Token) *signrequest.Token {
	out := *t
	return &out
}

func (f *fakeRequestRepo) Create(_ context.Context, req *signrequest.Request, token *signrequest.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.ID] = cloneRequest(req)
	f.tokens[token.ID] = cloneToken(token)
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*signrequest.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, serrors.NewNotFound("request")
	}
	return cloneRequest(req), nil
}

func (f *fakeRequestRepo) GetByReferenceCode(_ context.Context, code string) (*signrequest.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.ReferenceCode == code {
			return cloneRequest(req), nil
		}
	}
	return nil, serrors.NewNotFound("request")
}

func (f *fakeRequestRepo) GetByToken(_ context.Context, token string) (*signrequest.Request, *signrequest.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tok := range f.tokens {
		if tok.Value == token {
			req, ok := f.requests[tok.RequestID]
			if !ok {
				return nil, nil, serrors.NewNotFound("request")
			}
			return cloneRequest(req), cloneToken(tok), nil
		}
	}
	return nil, nil, serrors.NewNotFound("token")
}

func (f *fakeRequestRepo) GetTokenByRequestID(_ context.Context, requestID uuid.UUID) (*signrequest.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tok := range f.tokens {
		if tok.RequestID == requestID {
			return cloneToken(tok), nil
		}
	}
	return nil, serrors.NewNotFound("token")
}

func (f *fakeRequestRepo) List(_ context.Context, params *signrequest.FindParams) ([]*signrequest.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*signrequest.Request
	for _, req := range f.requests {
		if params != nil && params.Status != "" && req.Status != params.Status {
			continue
		}
		if params != nil && params.ExternalRef != "" && req.ExternalRef != params.ExternalRef {
			continue
		}
		out = append(out, cloneRequest(req))
	}
	return out, nil
}

func (f *fakeRequestRepo) ListExpired(_ context.Context, now time.Time) ([]*signrequest.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*signrequest.Request
	for _, req := range f.requests {
		if !req.Status.IsTerminal() && req.IsExpired(now) {
			out = append(out, cloneRequest(req))
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) UpdateStatus(_ context.Context, id uuid.UUID, status signrequest.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return serrors.NewNotFound("request")
	}
	req.Status = status
	if status == signrequest.StatusSigned {
		now := time.Now()
		req.SignedAt = &now
	}
	return nil
}

func (f *fakeRequestRepo) UpdateDeclined(_ context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return serrors.NewNotFound("request")
	}
	req.Status = signrequest.StatusDeclined
	req.DeclineReason = reason
	return nil
}

func (f *fakeRequestRepo) AttachPackage(_ context.Context, id uuid.UUID, packageID uuid.UUID, rolesDisplay string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return serrors.NewNotFound("request")
	}
	req.PackageID = &packageID
	req.RolesDisplay = rolesDisplay
	return nil
}

func (f *fakeRequestRepo) SetVerificationCode(_ context.Context, tokenID uuid.UUID, code string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[tokenID]
	if !ok {
		return serrors.NewNotFound("token")
	}
	tok.VerificationCode = code
	tok.CodeExpiresAt = &expiresAt
	tok.CodeAttempts = 0
	return nil
}

func (f *fakeRequestRepo) IncrementCodeAttempts(_ context.Context, tokenID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[tokenID]
	if !ok {
		return serrors.NewNotFound("token")
	}
	tok.CodeAttempts++
	return nil
}

func (f *fakeRequestRepo) MarkVerified(_ context.Context, tokenID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[tokenID]
	if !ok {
		return serrors.NewNotFound("token")
	}
	now := time.Now()
	tok.IsVerified = true
	tok.VerifiedAt = &now
	return nil
}

func (f *fakeRequestRepo) CreateSignature(_ context.Context, sig *signrequest.Signature) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *sig
	f.signatures[sig.RequestID] = &out
	return nil
}

func (f *fakeRequestRepo) GetSignatureByRequestID(_ context.Context, requestID uuid.UUID) (*signrequest.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sig, ok := f.signatures[requestID]
	if !ok {
		return nil, serrors.NewNotFound("signature")
	}
	out := *sig
	return &out, nil
}

type fakePackageRepo struct {
	mu       sync.Mutex
	packages map[uuid.UUID]*signpackage.Package
	roles    map[uuid.UUID]*signpackage.Role
}

func newFakePackageRepo() *fakePackageRepo {
	return &fakePackageRepo{
		packages: make(map[uuid.UUID]*signpackage.Package),
		roles:    make(map[uuid.UUID]*signpackage.Role),
	}
}

func clonePackage(p *signpackage.Package) *signpackage.Package {
	out := *p
	return &out
}

func cloneRole(r *signpackage.Role) *signpackage.Role {
	out := *r
	return &out
}

func (f *fakePackageRepo) Create(_ context.Context, pkg *signpackage.Package) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packages[pkg.ID] = clonePackage(pkg)
	return nil
}

func (f *fakePackageRepo) GetByID(_ context.Context, id uuid.UUID) (*signpackage.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pkg, ok := f.packages[id]
	if !ok {
		return nil, serrors.NewNotFound("package")
	}
	return clonePackage(pkg), nil
}

func (f *fakePackageRepo) GetByCode(_ context.Context, code string) (*signpackage.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pkg := range f.packages {
		if pkg.Code == code {
			return clonePackage(pkg), nil
		}
	}
	return nil, serrors.NewNotFound("package")
}

func (f *fakePackageRepo) List(_ context.Context, params *signpackage.FindParams) ([]*signpackage.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*signpackage.Package
	for _, pkg := range f.packages {
		if params != nil && params.Status != "" && pkg.Status != params.Status {
			continue
		}
		out = append(out, clonePackage(pkg))
	}
	return out, nil
}

func (f *fakePackageRepo) UpdateProgress(_ context.Context, id uuid.UUID, completedSigners int, status signpackage.Status, completedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pkg, ok := f.packages[id]
	if !ok {
		return serrors.NewNotFound("package")
	}
	pkg.CompletedSigners = completedSigners
	pkg.Status = status
	pkg.CompletedAt = completedAt
	return nil
}

func (f *fakePackageRepo) CreateRole(_ context.Context, role *signpackage.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[role.ID] = cloneRole(role)
	return nil
}

func (f *fakePackageRepo) Roles(_ context.Context, packageID uuid.UUID) ([]*signpackage.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*signpackage.Role
	for _, role := range f.roles {
		if role.PackageID == packageID {
			out = append(out, cloneRole(role))
		}
	}
	return out, nil
}

func (f *fakePackageRepo) RoleByID(_ context.Context, id uuid.UUID) (*signpackage.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[id]
	if !ok {
		return nil, serrors.NewNotFound("role")
	}
	return cloneRole(role), nil
}

func (f *fakePackageRepo) RoleByRequestID(_ context.Context, requestID uuid.UUID) (*signpackage.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, role := range f.roles {
		if role.RequestID != nil && *role.RequestID == requestID {
			return cloneRole(role), nil
		}
	}
	return nil, serrors.NewNotFound("role")
}

func (f *fakePackageRepo) RolesByGroup(_ context.Context, group uuid.UUID) ([]*signpackage.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*signpackage.Role
	for _, role := range f.roles {
		if role.ConsolidatedGroup == group {
			out = append(out, cloneRole(role))
		}
	}
	return out, nil
}

func (f *fakePackageRepo) MarkRolesSigned(_ context.Context, requestID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, role := range f.roles {
		if role.RequestID != nil && *role.RequestID == requestID {
			role.Status = signpackage.RoleStatusSigned
			signedAt := at
			role.SignedAt = &signedAt
		}
	}
	return nil
}

func (f *fakePackageRepo) UpdateRolesStatusByRequestID(_ context.Context, requestID uuid.UUID, status signpackage.RoleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, role := range f.roles {
		if role.RequestID != nil && *role.RequestID == requestID {
			role.Status = status
		}
	}
	return nil
}

func (f *fakePackageRepo) ReassignRole(_ context.Context, roleID uuid.UUID, name, email, phone, dateOfBirth string, requestID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[roleID]
	if !ok {
		return serrors.NewNotFound("role")
	}
	role.SignerName = name
	role.SignerEmail = email
	role.SignerPhone = phone
	role.DateOfBirth = dateOfBirth
	id := requestID
	role.RequestID = &id
	role.Status = signpackage.RoleStatusSent
	role.SignedAt = nil
	return nil
}

func (f *fakePackageRepo) CountSignedGroups(_ context.Context, packageID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	groups := make(map[uuid.UUID]struct{})
	for _, role := range f.roles {
		if role.PackageID == packageID && role.Status == signpackage.RoleStatusSigned {
			groups[role.ConsolidatedGroup] = struct{}{}
		}
	}
	return len(groups), nil
}

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]*doctemplate.Template
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[string]*doctemplate.Template)}
}

func (f *fakeTemplateRepo) Create(_ context.Context, tpl *doctemplate.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *tpl
	f.templates[tpl.Code] = &out
	return nil
}

func (f *fakeTemplateRepo) GetByCode(_ context.Context, code string) (*doctemplate.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.templates[code]
	if !ok {
		return nil, serrors.NewNotFound("template")
	}
	out := *tpl
	return &out, nil
}

func (f *fakeTemplateRepo) Update(_ context.Context, tpl *doctemplate.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.templates[tpl.Code]
	if !ok {
		return serrors.NewNotFound("template")
	}
	out := *tpl
	out.Version = existing.Version + 1
	f.templates[tpl.Code] = &out
	return nil
}

func (f *fakeTemplateRepo) List(_ context.Context, jurisdictionCode string) ([]*doctemplate.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*doctemplate.Template
	for _, tpl := range f.templates {
		if jurisdictionCode != "" && tpl.Jurisdiction != jurisdictionCode {
			continue
		}
		cp := *tpl
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeTemplateRepo) Deactivate(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.templates[code]
	if !ok {
		return serrors.NewNotFound("template")
	}
	tpl.IsActive = false
	return nil
}

type fakeJurisdictionRepo struct {
	mu        sync.Mutex
	addendums map[string]*jurisdiction.Addendum
}

func newFakeJurisdictionRepo() *fakeJurisdictionRepo {
	return &fakeJurisdictionRepo{addendums: make(map[string]*jurisdiction.Addendum)}
}

func (f *fakeJurisdictionRepo) GetByCode(_ context.Context, code string) (*jurisdiction.Addendum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.addendums[strings.ToUpper(code)]
	if !ok {
		return nil, serrors.NewNotFound("jurisdiction")
	}
	out := *a
	return &out, nil
}

func (f *fakeJurisdictionRepo) Upsert(_ context.Context, addendum *jurisdiction.Addendum) (*jurisdiction.Addendum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *addendum
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	f.addendums[strings.ToUpper(addendum.Code)] = &out
	cp := out
	return &cp, nil
}

func (f *fakeJurisdictionRepo) List(_ context.Context) ([]*jurisdiction.Addendum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*jurisdiction.Addendum
	for _, a := range f.addendums {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

type notifierCall struct {
	kind string
	to   string
	body string
}

type fakeNotifier struct {
	mu       sync.Mutex
	calls    []notifierCall
	failWith error
}

func (f *fakeNotifier) record(kind, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.calls = append(f.calls, notifierCall{kind: kind, to: to, body: body})
	return nil
}

func (f *fakeNotifier) callsOf(kind string) []notifierCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notifierCall
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, req *signrequest.Request, code string) error {
	to := req.SignerEmail
	if req.Method == signrequest.MethodSMS {
		to = req.SignerPhone
	}
	return f.record("code", to, code)
}

func (f *fakeNotifier) SendRequestLink(_ context.Context, req *signrequest.Request, signURL string) error {
	return f.record("link", req.SignerEmail, signURL)
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, req *signrequest.Request) error {
	return f.record("confirmation", req.SignerEmail, "")
}

func (f *fakeNotifier) SendDeclineNotice(_ context.Context, adminReq *signrequest.Request, declinedName, reason, replaceURL string) error {
	return f.record("decline-notice", adminReq.SignerEmail, replaceURL)
}

func (f *fakeNotifier) SendCancellation(_ context.Context, req *signrequest.Request) error {
	return f.record("cancellation", req.SignerEmail, "")
}

func (f *fakeNotifier) SendExpiration(_ context.Context, req *signrequest.Request) error {
	return f.record("expiration", req.SignerEmail, "")
}
