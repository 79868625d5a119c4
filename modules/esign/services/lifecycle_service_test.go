package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/eventbus"
	"github.com/showconnect/esign/pkg/serrors"
)

type lifecycleFixture struct {
	svc      *LifecycleService
	repo     *fakeRequestRepo
	notifier *fakeNotifier
	bus      eventbus.EventBus
	ctx      context.Context
}

func newLifecycleFixture(t *testing.T, ttl time.Duration) *lifecycleFixture {
	t.Helper()
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{}
	bus := eventbus.NewEventPublisher(logrus.New())
	svc := NewLifecycleService(
		repo, newFakeTemplateRepo(), newFakeJurisdictionRepo(),
		notifier, bus, "http://localhost:3000", ttl,
	)
	return &lifecycleFixture{
		svc:      svc,
		repo:     repo,
		notifier: notifier,
		bus:      bus,
		ctx:      composables.WithTenantID(context.Background(), "default"),
	}
}

// verifiedSigner creates a request and puts it where code confirmation
// would leave it: token verified, status verified.
func (f *lifecycleFixture) verifiedSigner(t *testing.T) (*signrequest.Request, string) {
	t.Helper()
	req, signURL, err := f.svc.Create(f.ctx, validCreateParams())
	require.NoError(t, err)
	tokenValue := strings.TrimPrefix(signURL, "http://localhost:3000/sign/")

	tok, err := f.repo.GetTokenByRequestID(f.ctx, req.ID)
	require.NoError(t, err)
	require.NoError(t, f.repo.MarkVerified(f.ctx, tok.ID))
	require.NoError(t, f.repo.UpdateStatus(f.ctx, req.ID, signrequest.StatusVerified))
	req.Status = signrequest.StatusVerified
	return req, tokenValue
}

func validCreateParams() CreateRequestParams {
	return CreateRequestParams{
		DocumentName:    "Liability Waiver",
		DocumentContent: "<p>I agree.</p>",
		SignerName:      "Jane Doe",
		SignerEmail:     "jane@example.com",
	}
}

func TestLifecycle_Create(t *testing.T) {
	f := newLifecycleFixture(t, 7*24*time.Hour)

	req, signURL, err := f.svc.Create(f.ctx, validCreateParams())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(req.ReferenceCode, "SIG-"))
	assert.Len(t, req.ReferenceCode, 12)
	assert.Equal(t, signrequest.StatusSent, req.Status)
	assert.Equal(t, signrequest.MethodEmail, req.Method)
	assert.Equal(t, "default", req.TenantID)
	assert.True(t, strings.HasPrefix(signURL, "http://localhost:3000/sign/"))
	assert.Len(t, f.notifier.callsOf("link"), 1)

	tok, err := f.repo.GetTokenByRequestID(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, tok.Value, 64)
	assert.False(t, tok.IsVerified)
}

func TestLifecycle_CreateValidation(t *testing.T) {
	f := newLifecycleFixture(t, time.Hour)

	params := validCreateParams()
	params.SignerEmail = ""
	_, _, err := f.svc.Create(f.ctx, params)
	var vErr *serrors.ValidationError
	assert.ErrorAs(t, err, &vErr)

	params = validCreateParams()
	params.CallbackURL = "http://169.254.169.254/latest"
	_, _, err = f.svc.Create(f.ctx, params)
	assert.ErrorAs(t, err, &vErr)
}

func TestLifecycle_CreateKeepsPendingWhenDeliveryFails(t *testing.T) {
	f := newLifecycleFixture(t, time.Hour)
	f.notifier.failWith = assert.AnError

	req, _, err := f.svc.Create(f.ctx, validCreateParams())
	require.NoError(t, err)
	assert.Equal(t, signrequest.StatusPending, req.Status)
}

func TestLifecycle_ViewedNudgeIsIdempotent(t *testing.T) {
	f := newLifecycleFixture(t, time.Hour)
	req, signURL, err := f.svc.Create(f.ctx, validCreateParams())
	require.NoError(t, err)
	tokenValue := strings.TrimPrefix(signURL, "http://localhost:3000/sign/")

	got, _, err := f.svc.GetByToken(f.ctx, tokenValue)
	require.NoError(t, err)
	assert.Equal(t, signrequest.StatusViewed, got.Status)

	// later accesses never regress or re-fire
	got, _, err = f.svc.GetByToken(f.ctx, tokenValue)
	require.NoError(t, err)
	assert.Equal(t, signrequest.StatusViewed, got.Status)

	require.NoError(t, f.repo.UpdateStatus(f.ctx, req.ID, signrequest.StatusVerified))
	got, _, err = f.svc.GetByToken(f.ctx, tokenValue)
	require.NoError(t, err)
	assert.Equal(t, signrequest.StatusVerified, got.Status)
}

func TestLifecycle_UnknownTokenIsGone(t *testing.T) {
	f := newLifecycleFixture(t, time.Hour)
	_, _, err := f.svc.GetByToken(f.ctx, "deadbeef")
	assert.ErrorIs(t, err, ErrLinkGone)
}

func TestLifecycle_LazyExpiry(t *testing.T) {
	f := newLifecycleFixture(t, -time.Minute)
	req, signURL, err := f.svc.Create(f.ctx, validCreateParams())
	require.NoError(t, err)
	tokenValue := strings.TrimPrefix(signURL, "http://localhost:3000/sign/")

	var expiredEvents int
	f.bus.Subscribe(func(e signrequest.ExpiredEvent) { expiredEvents++ })

	_, _, err = f.svc.GetByToken(f.ctx, tokenValue)
	assert.ErrorIs(t, err, ErrLinkGone)
	assert.Equal(t, 1, expiredEvents)

	stored, err := f.repo.GetByID(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, signrequest.StatusExpired, stored.Status)

	// an expired token stays indistinguishable from an unknown one
	_, _, err = f.svc.GetByToken(f.ctx, tokenValue)
	assert.ErrorIs(t, err, ErrLinkGone)
	assert.Equal(t, 1, expiredEvents)
}

func TestLifecycle_SubmitRequiresVerification(t *testing.T) {
	f := newLifecycleFixture(t, time.Hour)
	_, signURL, err := f.svc.Create(f.ctx, validCreateParams())
	require.NoError(t, err)
	tokenValue := strings.TrimPrefix(signURL, "http://localhost:3000/sign/")

	_, err = f.svc.Submit(f.ctx, tokenValue, SubmitSignatureParams{
		Kind:      signrequest.KindTyped,
		TypedName: "Jane Doe",
	})
	require.Error(t, err)
	var base *serrors.Base
	require.ErrorAs(t, err, &base)
	assert.Equal(t, "VERIFICATION_REQUIRED", base.Code)
}

func TestLifecycle_SubmitRejectsStatusJump(t *testing.T) {
	f := newLifecycleFixture(t, time.Hour)
	req, signURL, err := f.svc.Create(f.ctx, validCreateParams())
	require.NoError(t, err)
	tokenValue := strings.TrimPrefix(signURL, "http://localhost:3000/sign/")

	// token verified but the request never moved past sent
	tok, err := f.repo.GetTokenByRequestID(f.ctx, req.ID)
	require.NoError(t, err)
	require.NoError(t, f.repo.MarkVerified(f.ctx, tok.ID))

	_, err = f.svc.Submit(f.ctx, tokenValue, SubmitSignatureParams{
		Kind:      signrequest.KindTyped,
		TypedName: "Jane Doe",
	})
	var base *serrors.Base
	require.ErrorAs(t, err, &base)
	assert.Equal(t, "INVALID_TRANSITION", base.Code)

	stored, err := f.repo.GetByID(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, signrequest.StatusSent, stored.Status)
}

func TestLifecycle_Submit(t *testing.T) {
	f := newLifecycleFixture(t, time.Hour)
	req, tokenValue := f.verifiedSigner(t)

	var signedEvents int
	f.bus.Subscribe(func(e signrequest.SignedEvent) { signedEvents++ })

	signed, err := f.svc.Submit(f.ctx, tokenValue, SubmitSignatureParams{
		Kind:        signrequest.KindTyped,
		TypedName:   "Jane Doe",
		ConsentText: "I agree to sign electronically.",
	})
	require.NoError(t, err)
	assert.Equal(t, signrequest.StatusSigned, signed.Status)
	assert.Equal(t, 1, signedEvents)

	sig, err := f.svc.GetSignature(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, signrequest.KindTyped, sig.Kind)
	assert.Equal(t, "Jane Doe", sig.TypedName)
	assert.Equal(t, "email", sig.VerificationMethodUsed)

	// signing twice conflicts, nothing more is written
	_, err = f.svc.Submit(f.ctx, tokenValue, SubmitSignatureParams{
		Kind:      signrequest.KindTyped,
		TypedName: "Jane Doe",
	})
	var conflict *serrors.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "signed", conflict.Status)
	assert.Equal(t, 1, signedEvents)
}

func TestLifecycle_SubmitKindValidation(t *testing.T) {
	f := newLifecycleFixture(t, time.Hour)
	_, tokenValue := f.verifiedSigner(t)

	var vErr *serrors.ValidationError
	_, err := f.svc.Submit(f.ctx, tokenValue, SubmitSignatureParams{Kind: signrequest.KindTyped})
	assert.ErrorAs(t, err, &vErr)
	_, err = f.svc.Submit(f.ctx, tokenValue, SubmitSignatureParams{Kind: signrequest.KindDrawn})
	assert.ErrorAs(t, err, &vErr)
	_, err = f.svc.Submit(f.ctx, tokenValue, SubmitSignatureParams{Kind: "stamped"})
	assert.ErrorAs(t, err, &vErr)
}

func TestLifecycle_Decline(t *testing.T) {
	f := newLifecycleFixture(t, time.Hour)
	_, signURL, err := f.svc.Create(f.ctx, validCreateParams())
	require.NoError(t, err)
	tokenValue := strings.TrimPrefix(signURL, "http://localhost:3000/sign/")

	longReason := strings.Repeat("x", 600)
	declined, err := f.svc.Decline(f.ctx, tokenValue, longReason)
	require.NoError(t, err)
	assert.Equal(t, signrequest.StatusDeclined, declined.Status)
	assert.Len(t, declined.DeclineReason, 500)

	_, err = f.svc.Decline(f.ctx, tokenValue, "again")
	var conflict *serrors.StateConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestLifecycle_Cancel(t *testing.T) {
	f := newLifecycleFixture(t, time.Hour)
	req, _, err := f.svc.Create(f.ctx, validCreateParams())
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, signrequest.StatusCancelled, cancelled.Status)

	_, err = f.svc.Cancel(f.ctx, req.ID)
	var conflict *serrors.StateConflictError
	assert.ErrorAs(t, err, &conflict)
}
