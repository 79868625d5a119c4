package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

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

type CreateRequestParams struct {
	ExternalRef     string
	ExternalType    string
	DocumentName    string
	DocumentContent string
	DocumentURL     string
	TemplateCode    string
	MergeVariables  map[string]string
	Jurisdiction    string
	SignerName      string
	SignerEmail     string
	SignerPhone     string
	CallbackURL     string
	CreatedBy       string
}

type SubmitSignatureParams struct {
	Kind        signrequest.SignatureKind
	TypedName   string
	ImageData   string
	ConsentText string
}

// LifecycleService owns every status change of a signature request. All
// transitions go through the central table; notification and webhook fan-out
// happens after the write committed, via published events.
type LifecycleService struct {
	repo      signrequest.Repository
	resolver  contentResolver
	notifier  notify.Notifier
	publisher eventbus.EventBus
	baseURL   string
	ttl       time.Duration
}

func NewLifecycleService(
	repo signrequest.Repository,
	templates doctemplate.Repository,
	jurisdictions jurisdiction.Repository,
	notifier notify.Notifier,
	publisher eventbus.EventBus,
	baseURL string,
	ttl time.Duration,
) *LifecycleService {
	return &LifecycleService{
		repo:      repo,
		resolver:  contentResolver{templates: templates, jurisdictions: jurisdictions},
		notifier:  notifier,
		publisher: publisher,
		baseURL:   baseURL,
		ttl:       ttl,
	}
}

func (s *LifecycleService) SignURL(tokenValue string) string {
	return fmt.Sprintf("%s/sign/%s", s.baseURL, tokenValue)
}

// Create persists a new request with its capability token and dispatches the
// signing link. Delivery failure leaves the request pending; the record
// itself is never rolled back over a notification problem.
func (s *LifecycleService) Create(ctx context.Context, params CreateRequestParams) (*signrequest.Request, string, error) {
	if params.SignerName == "" {
		return nil, "", serrors.NewValidationError("signer name is required")
	}
	if params.SignerEmail == "" && params.SignerPhone == "" {
		return nil, "", serrors.NewValidationError("signer email or phone is required")
	}
	if err := webhooks.ValidateCallbackURL(params.CallbackURL); err != nil {
		return nil, "", serrors.NewValidationError(err.Error())
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, "", err
	}

	documentName := params.DocumentName
	content := params.DocumentContent
	var templateVersion *int
	needsResolution := (content == "" && params.TemplateCode != "") ||
		(content != "" && (len(params.MergeVariables) > 0 || params.Jurisdiction != ""))
	if needsResolution {
		resolved, err := s.resolver.resolveBase(ctx, params.DocumentContent, params.TemplateCode, params.Jurisdiction, params.MergeVariables)
		if err != nil {
			return nil, "", err
		}
		content = resolved.Body
		templateVersion = resolved.TemplateVersion
		if documentName == "" {
			documentName = resolved.DocumentName
		}
	}
	if documentName == "" {
		return nil, "", serrors.NewValidationError("document name is required")
	}
	if content == "" && params.DocumentURL == "" {
		return nil, "", serrors.NewValidationError("document content, template code or document url is required")
	}

	now := time.Now()
	req := &signrequest.Request{
		ID:              uuid.New(),
		ReferenceCode:   signrequest.NewReferenceCode("SIG"),
		TenantID:        tenantID,
		ExternalRef:     params.ExternalRef,
		ExternalType:    params.ExternalType,
		DocumentName:    documentName,
		DocumentContent: content,
		DocumentURL:     params.DocumentURL,
		TemplateCode:    params.TemplateCode,
		TemplateVersion: templateVersion,
		Jurisdiction:    params.Jurisdiction,
		SignerName:      params.SignerName,
		SignerEmail:     params.SignerEmail,
		SignerPhone:     params.SignerPhone,
		Method:          signrequest.DetectMethod(params.SignerEmail, params.SignerPhone),
		Status:          signrequest.StatusPending,
		CallbackURL:     params.CallbackURL,
		CreatedBy:       params.CreatedBy,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}
	tok := &signrequest.Token{
		ID:        uuid.New(),
		RequestID: req.ID,
		Value:     signrequest.NewTokenValue(),
		CreatedAt: now,
	}

	if err := composables.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.Create(txCtx, req, tok)
	}); err != nil {
		return nil, "", err
	}
	metrics.RequestsCreated.Inc()

	signURL := s.SignURL(tok.Value)
	if err := s.notifier.SendRequestLink(ctx, req, signURL); err != nil {
		composables.UseLogger(ctx).
			WithError(err).
			WithField("reference_code", req.ReferenceCode).
			Warn("sign link delivery failed, request stays pending")
	} else if err := transitionStatus(ctx, s.repo, req, signrequest.StatusSent); err != nil {
		return nil, "", err
	}

	s.publisher.Publish(signrequest.CreatedEvent{Result: *req})
	return req, signURL, nil
}

// GetByToken resolves the signer-facing view. First access of a pending or
// sent request advances it to viewed; later accesses never regress it.
func (s *LifecycleService) GetByToken(ctx context.Context, tokenValue string) (*signrequest.Request, *signrequest.Token, error) {
	req, tok, err := resolveSigningToken(ctx, s.repo, s.publisher, tokenValue)
	if err != nil {
		return nil, nil, err
	}

	if req.Status == signrequest.StatusPending || req.Status == signrequest.StatusSent {
		if err := transitionStatus(ctx, s.repo, req, signrequest.StatusViewed); err != nil {
			return nil, nil, err
		}
	}
	return req, tok, nil
}

// Submit records the signature. Requires a verified token and a non-terminal
// status; the signature row and the signed transition commit together.
func (s *LifecycleService) Submit(ctx context.Context, tokenValue string, params SubmitSignatureParams) (*signrequest.Request, error) {
	req, tok, err := resolveSigningToken(ctx, s.repo, s.publisher, tokenValue)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, serrors.NewStateConflict(string(req.Status))
	}
	if !tok.IsVerified {
		return nil, serrors.NewError("VERIFICATION_REQUIRED", "identity verification is required before signing")
	}
	// A verified token is not enough on its own: the request itself must
	// have walked the table to a status signed is reachable from.
	if err := ensureTransition(req.Status, signrequest.StatusSigned); err != nil {
		return nil, err
	}

	switch params.Kind {
	case signrequest.KindTyped:
		if params.TypedName == "" {
			return nil, serrors.NewValidationError("typed name is required for a typed signature")
		}
	case signrequest.KindDrawn:
		if params.ImageData == "" {
			return nil, serrors.NewValidationError("signature image is required for a drawn signature")
		}
	default:
		return nil, serrors.NewValidationError(fmt.Sprintf("unknown signature type %q", params.Kind))
	}

	now := time.Now()
	sig := &signrequest.Signature{
		ID:                     uuid.New(),
		RequestID:              req.ID,
		Kind:                   params.Kind,
		TypedName:              params.TypedName,
		ImageData:              params.ImageData,
		SignerIP:               composables.UseClientIP(ctx),
		UserAgent:              composables.UseUserAgent(ctx),
		ConsentText:            params.ConsentText,
		VerificationMethodUsed: string(req.Method),
		SignedAt:               now,
	}

	if err := composables.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateSignature(txCtx, sig); err != nil {
			return err
		}
		return s.repo.UpdateStatus(txCtx, req.ID, signrequest.StatusSigned)
	}); err != nil {
		return nil, err
	}
	req.Status = signrequest.StatusSigned
	req.SignedAt = &now
	metrics.SignaturesCompleted.Inc()

	s.publisher.Publish(signrequest.SignedEvent{Result: *req, Signature: *sig})
	return req, nil
}

// Decline is the signer-initiated terminal transition, with an optional
// truncated free-text reason.
func (s *LifecycleService) Decline(ctx context.Context, tokenValue, reason string) (*signrequest.Request, error) {
	req, _, err := resolveSigningToken(ctx, s.repo, s.publisher, tokenValue)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(req.Status, signrequest.StatusDeclined); err != nil {
		return nil, err
	}

	reason = truncateReason(reason)
	if err := s.repo.UpdateDeclined(ctx, req.ID, reason); err != nil {
		return nil, err
	}
	req.Status = signrequest.StatusDeclined
	req.DeclineReason = reason

	s.publisher.Publish(signrequest.DeclinedEvent{Result: *req, Reason: reason})
	return req, nil
}

// Cancel is the operator-initiated terminal transition, addressed by id.
func (s *LifecycleService) Cancel(ctx context.Context, id uuid.UUID) (*signrequest.Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := transitionStatus(ctx, s.repo, req, signrequest.StatusCancelled); err != nil {
		return nil, err
	}

	s.publisher.Publish(signrequest.CancelledEvent{Result: *req})
	return req, nil
}

func (s *LifecycleService) GetByID(ctx context.Context, id uuid.UUID) (*signrequest.Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *LifecycleService) GetByReferenceCode(ctx context.Context, code string) (*signrequest.Request, error) {
	return s.repo.GetByReferenceCode(ctx, code)
}

func (s *LifecycleService) List(ctx context.Context, params *signrequest.FindParams) ([]*signrequest.Request, error) {
	return s.repo.List(ctx, params)
}

func (s *LifecycleService) GetSignature(ctx context.Context, requestID uuid.UUID) (*signrequest.Signature, error) {
	return s.repo.GetSignatureByRequestID(ctx, requestID)
}
