package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/modules/esign/infrastructure/notify"
	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/configuration"
	"github.com/showconnect/esign/pkg/eventbus"
	"github.com/showconnect/esign/pkg/metrics"
	"github.com/showconnect/esign/pkg/serrors"
)

const (
	destinationWindow = time.Hour
	// Token counters live as long as a request possibly can; the cap itself
	// is lifetime-scoped, not windowed.
	tokenCounterWindow = 14 * 24 * time.Hour
)

// VerificationService issues and confirms the numeric codes that bind a
// signing session to the signer's contact address. Code issuance passes three
// independent abuse layers; a block at any layer advances no counter.
type VerificationService struct {
	repo      signrequest.Repository
	notifier  notify.Notifier
	counters  CounterStore
	publisher eventbus.EventBus
	verifyCfg configuration.VerificationOptions
	limitCfg  configuration.RateLimitOptions
	demoMode  bool
}

func NewVerificationService(
	repo signrequest.Repository,
	notifier notify.Notifier,
	counters CounterStore,
	publisher eventbus.EventBus,
	verifyCfg configuration.VerificationOptions,
	limitCfg configuration.RateLimitOptions,
	demoMode bool,
) *VerificationService {
	return &VerificationService{
		repo:      repo,
		notifier:  notifier,
		counters:  counters,
		publisher: publisher,
		verifyCfg: verifyCfg,
		limitCfg:  limitCfg,
		demoMode:  demoMode,
	}
}

// normalizeDestination case-folds an email; a phone keeps digits and the
// leading plus so formatting variants of one number share a counter.
func normalizeDestination(req *signrequest.Request, method signrequest.VerificationMethod) string {
	if method != signrequest.MethodSMS && req.SignerEmail != "" {
		return strings.ToLower(strings.TrimSpace(req.SignerEmail))
	}
	var b strings.Builder
	for i, c := range req.SignerPhone {
		if c >= '0' && c <= '9' || (c == '+' && i == 0) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// resolveSendMethod narrows the request's method to the channel the signer
// asked for. Empty means "whatever the request supports".
func resolveSendMethod(req *signrequest.Request, requested string) (signrequest.VerificationMethod, error) {
	switch requested {
	case "":
		return req.Method, nil
	case string(signrequest.MethodEmail):
		if req.Method == signrequest.MethodSMS || req.SignerEmail == "" {
			return "", serrors.NewValidationError("email verification is not available for this request")
		}
		return signrequest.MethodEmail, nil
	case string(signrequest.MethodSMS):
		if req.Method == signrequest.MethodEmail || req.SignerPhone == "" {
			return "", serrors.NewValidationError("sms verification is not available for this request")
		}
		return signrequest.MethodSMS, nil
	default:
		return "", serrors.NewValidationError(fmt.Sprintf("unknown verification method %q", requested))
	}
}

func maskedDestination(req *signrequest.Request, method signrequest.VerificationMethod) string {
	switch method {
	case signrequest.MethodEmail:
		return notify.MaskEmail(req.SignerEmail)
	case signrequest.MethodSMS:
		return notify.MaskPhone(req.SignerPhone)
	default:
		return notify.MaskEmail(req.SignerEmail) + ", " + notify.MaskPhone(req.SignerPhone)
	}
}

// CodeDispatch reports which channel a code went out on, with the
// destination masked for display on the signing page.
type CodeDispatch struct {
	Method      signrequest.VerificationMethod
	Destination string
}

// SendCode issues a fresh verification code. Resending always invalidates the
// previous code and resets the attempt counter. Issuing a code while the
// request is viewed advances it to verified, a one-time nudge. An already
// verified token short-circuits with a nil dispatch: resending would only
// burn budgets.
func (s *VerificationService) SendCode(ctx context.Context, tokenValue, method string) (*CodeDispatch, error) {
	req, tok, err := resolveSigningToken(ctx, s.repo, s.publisher, tokenValue)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, serrors.NewStateConflict(string(req.Status))
	}
	if tok.IsVerified {
		return nil, nil
	}
	sendVia, err := resolveSendMethod(req, method)
	if err != nil {
		return nil, err
	}

	destKey := "dest:" + normalizeDestination(req, sendVia)
	tokenKey := "token:" + tok.ID.String()

	if s.limitCfg.Enabled {
		sent, err := s.counters.Count(ctx, destKey)
		if err != nil {
			return nil, err
		}
		if sent >= s.limitCfg.DestinationPerHour {
			metrics.CodesBlocked.WithLabelValues("destination").Inc()
			return nil, serrors.NewRateLimit("destination", "too many codes sent to this address, try again later")
		}
		issued, err := s.counters.Count(ctx, tokenKey)
		if err != nil {
			return nil, err
		}
		if issued >= s.limitCfg.TokenLifetime {
			metrics.CodesBlocked.WithLabelValues("token").Inc()
			return nil, serrors.NewRateLimit("token", "code request limit reached for this signing link")
		}
	}

	code := s.generateCode()
	expiresAt := time.Now().Add(s.verifyCfg.CodeExpiry)
	if err := s.repo.SetVerificationCode(ctx, tok.ID, code, expiresAt); err != nil {
		return nil, err
	}

	dispatchReq := *req
	dispatchReq.Method = sendVia
	if err := s.notifier.SendVerificationCode(ctx, &dispatchReq, code); err != nil {
		composables.UseLogger(ctx).
			WithError(err).
			WithField("reference_code", req.ReferenceCode).
			Error("verification code delivery failed")
		return nil, serrors.NewNotifierError(err)
	}

	// Counters advance only after a successful dispatch.
	if s.limitCfg.Enabled {
		if err := s.counters.Incr(ctx, destKey, destinationWindow); err != nil {
			return nil, err
		}
		if err := s.counters.Incr(ctx, tokenKey, tokenCounterWindow); err != nil {
			return nil, err
		}
	}
	metrics.CodesSent.WithLabelValues(string(sendVia)).Inc()

	if req.Status == signrequest.StatusViewed {
		if err := transitionStatus(ctx, s.repo, req, signrequest.StatusVerified); err != nil {
			return nil, err
		}
		s.publisher.Publish(signrequest.VerifiedEvent{Result: *req})
	}
	return &CodeDispatch{Method: sendVia, Destination: maskedDestination(req, sendVia)}, nil
}

// ConfirmCode checks a submitted code. Every attempt below the cap increments
// the counter regardless of outcome; at the cap the attempt is rejected
// outright, even with the correct code.
func (s *VerificationService) ConfirmCode(ctx context.Context, tokenValue, submitted string) error {
	req, tok, err := resolveSigningToken(ctx, s.repo, s.publisher, tokenValue)
	if err != nil {
		return err
	}
	if req.Status.IsTerminal() {
		return serrors.NewStateConflict(string(req.Status))
	}
	if tok.IsVerified {
		return nil
	}

	if tok.CodeAttempts >= s.verifyCfg.MaxAttempts {
		return serrors.NewRateLimit("attempts", "too many incorrect attempts, request a new code")
	}
	if err := s.repo.IncrementCodeAttempts(ctx, tok.ID); err != nil {
		return err
	}

	if tok.VerificationCode == "" {
		return serrors.NewValidationError("no verification code has been issued")
	}
	if tok.CodeExpiresAt == nil || time.Now().After(*tok.CodeExpiresAt) {
		return serrors.NewValidationError("verification code has expired, request a new one")
	}
	if subtle.ConstantTimeCompare([]byte(tok.VerificationCode), []byte(submitted)) != 1 {
		return serrors.NewValidationError("incorrect verification code")
	}

	return s.repo.MarkVerified(ctx, tok.ID)
}

func (s *VerificationService) generateCode() string {
	if s.demoMode {
		return s.verifyCfg.DemoCode
	}
	var b strings.Builder
	for i := 0; i < s.verifyCfg.CodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			panic(err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String()
}
