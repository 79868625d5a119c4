package notify

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", MaskEmail("john@example.com"))
	assert.Equal(t, "a***@example.com", MaskEmail("a@example.com"))
	assert.Equal(t, "***", MaskEmail("not-an-email"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "***4567", MaskPhone("+15551234567"))
	assert.Equal(t, "***123", MaskPhone("123"))
}

type recordingEmail struct {
	to   []string
	fail bool
}

func (r *recordingEmail) Send(_ context.Context, to, _, _ string) error {
	if r.fail {
		return assert.AnError
	}
	r.to = append(r.to, to)
	return nil
}

type recordingSMS struct {
	to   []string
	fail bool
}

func (r *recordingSMS) Send(_ context.Context, to, _ string) error {
	if r.fail {
		return assert.AnError
	}
	r.to = append(r.to, to)
	return nil
}

func testRequest(method signrequest.VerificationMethod) *signrequest.Request {
	return &signrequest.Request{
		SignerName:   "Jane Doe",
		SignerEmail:  "jane@example.com",
		SignerPhone:  "+15551234567",
		Method:       method,
		DocumentName: "Liability Waiver",
	}
}

func TestService_RoutesByMethod(t *testing.T) {
	log := logrus.New()

	t.Run("email only", func(t *testing.T) {
		email := &recordingEmail{}
		sms := &recordingSMS{}
		svc := NewService(email, sms, log)
		require.NoError(t, svc.SendConfirmation(context.Background(), testRequest(signrequest.MethodEmail)))
		assert.Equal(t, []string{"jane@example.com"}, email.to)
		assert.Empty(t, sms.to)
	})

	t.Run("sms only", func(t *testing.T) {
		email := &recordingEmail{}
		sms := &recordingSMS{}
		svc := NewService(email, sms, log)
		require.NoError(t, svc.SendConfirmation(context.Background(), testRequest(signrequest.MethodSMS)))
		assert.Empty(t, email.to)
		assert.Equal(t, []string{"+15551234567"}, sms.to)
	})

	t.Run("both channels", func(t *testing.T) {
		email := &recordingEmail{}
		sms := &recordingSMS{}
		svc := NewService(email, sms, log)
		require.NoError(t, svc.SendConfirmation(context.Background(), testRequest(signrequest.MethodBoth)))
		assert.Len(t, email.to, 1)
		assert.Len(t, sms.to, 1)
	})
}

func TestService_PartialFailureStillDelivers(t *testing.T) {
	email := &recordingEmail{fail: true}
	sms := &recordingSMS{}
	svc := NewService(email, sms, logrus.New())
	err := svc.SendConfirmation(context.Background(), testRequest(signrequest.MethodBoth))
	assert.NoError(t, err)
	assert.Len(t, sms.to, 1)
}

func TestService_AllChannelsFailed(t *testing.T) {
	email := &recordingEmail{fail: true}
	sms := &recordingSMS{fail: true}
	svc := NewService(email, sms, logrus.New())
	err := svc.SendConfirmation(context.Background(), testRequest(signrequest.MethodBoth))
	assert.Error(t, err)
}
