package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/pkg/serrors"
)

// EmailSender delivers a single email message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers a single SMS message.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// Notifier covers every outbound message the signing workflow produces.
// Delivery routing follows the request's verification method: email, sms,
// or both channels.
type Notifier interface {
	SendVerificationCode(ctx context.Context, req *signrequest.Request, code string) error
	SendRequestLink(ctx context.Context, req *signrequest.Request, signURL string) error
	SendConfirmation(ctx context.Context, req *signrequest.Request) error
	SendDeclineNotice(ctx context.Context, adminReq *signrequest.Request, declinedName, reason, replaceURL string) error
	SendCancellation(ctx context.Context, req *signrequest.Request) error
	SendExpiration(ctx context.Context, req *signrequest.Request) error
}

type Service struct {
	email EmailSender
	sms   SMSSender
	log   *logrus.Logger
}

func NewService(email EmailSender, sms SMSSender, log *logrus.Logger) *Service {
	return &Service{email: email, sms: sms, log: log}
}

func (s *Service) SendVerificationCode(ctx context.Context, req *signrequest.Request, code string) error {
	subject := fmt.Sprintf("Your verification code for %s", req.DocumentName)
	emailBody := fmt.Sprintf(
		"Hi %s,\n\nYour verification code is: %s\n\nThis code expires in 5 minutes.\n",
		req.SignerName, code)
	smsBody := fmt.Sprintf("Your signing verification code is %s. It expires in 5 minutes.", code)
	return s.route(ctx, req, subject, emailBody, smsBody)
}

func (s *Service) SendRequestLink(ctx context.Context, req *signrequest.Request, signURL string) error {
	subject := fmt.Sprintf("Signature requested: %s", req.DocumentName)
	emailBody := fmt.Sprintf(
		"Hi %s,\n\nYou have been asked to sign %q.\n\nReview and sign here: %s\n\nThis link expires on %s.\n",
		req.SignerName, req.DocumentName, signURL, req.ExpiresAt.Format("Jan 2, 2006"))
	smsBody := fmt.Sprintf("Signature requested for %s. Sign here: %s", req.DocumentName, signURL)
	return s.route(ctx, req, subject, emailBody, smsBody)
}

func (s *Service) SendConfirmation(ctx context.Context, req *signrequest.Request) error {
	subject := fmt.Sprintf("Signed: %s", req.DocumentName)
	emailBody := fmt.Sprintf(
		"Hi %s,\n\nThank you, your signature for %q has been recorded.\nReference code: %s\n",
		req.SignerName, req.DocumentName, req.ReferenceCode)
	smsBody := fmt.Sprintf("Your signature for %s has been recorded. Reference: %s",
		req.DocumentName, req.ReferenceCode)
	return s.route(ctx, req, subject, emailBody, smsBody)
}

// SendDeclineNotice tells the package admin a signer declined, with the link
// to assign a replacement.
func (s *Service) SendDeclineNotice(ctx context.Context, adminReq *signrequest.Request, declinedName, reason, replaceURL string) error {
	subject := fmt.Sprintf("Signer declined: %s", adminReq.DocumentName)
	reasonLine := ""
	if reason != "" {
		reasonLine = fmt.Sprintf("Reason given: %s\n\n", reason)
	}
	emailBody := fmt.Sprintf(
		"Hi %s,\n\n%s declined to sign %q.\n\n%sYou can assign a replacement signer here: %s\n",
		adminReq.SignerName, declinedName, adminReq.DocumentName, reasonLine, replaceURL)
	smsBody := fmt.Sprintf("%s declined to sign %s. Assign a replacement: %s",
		declinedName, adminReq.DocumentName, replaceURL)
	return s.route(ctx, adminReq, subject, emailBody, smsBody)
}

func (s *Service) SendCancellation(ctx context.Context, req *signrequest.Request) error {
	subject := fmt.Sprintf("Cancelled: %s", req.DocumentName)
	emailBody := fmt.Sprintf(
		"Hi %s,\n\nThe signature request for %q has been cancelled. No action is needed.\n",
		req.SignerName, req.DocumentName)
	smsBody := fmt.Sprintf("The signature request for %s has been cancelled.", req.DocumentName)
	return s.route(ctx, req, subject, emailBody, smsBody)
}

func (s *Service) SendExpiration(ctx context.Context, req *signrequest.Request) error {
	subject := fmt.Sprintf("Expired: %s", req.DocumentName)
	emailBody := fmt.Sprintf(
		"Hi %s,\n\nThe signature request for %q has expired without being signed.\n",
		req.SignerName, req.DocumentName)
	smsBody := fmt.Sprintf("The signature request for %s has expired.", req.DocumentName)
	return s.route(ctx, req, subject, emailBody, smsBody)
}

func (s *Service) route(ctx context.Context, req *signrequest.Request, subject, emailBody, smsBody string) error {
	var errs []string
	sent := false

	if req.Method != signrequest.MethodSMS && req.SignerEmail != "" {
		if err := s.email.Send(ctx, req.SignerEmail, subject, emailBody); err != nil {
			s.log.WithError(err).
				WithField("to", MaskEmail(req.SignerEmail)).
				Error("email delivery failed")
			errs = append(errs, err.Error())
		} else {
			sent = true
		}
	}
	if req.Method != signrequest.MethodEmail && req.SignerPhone != "" {
		if err := s.sms.Send(ctx, req.SignerPhone, smsBody); err != nil {
			s.log.WithError(err).
				WithField("to", MaskPhone(req.SignerPhone)).
				Error("sms delivery failed")
			errs = append(errs, err.Error())
		} else {
			sent = true
		}
	}

	if !sent && len(errs) > 0 {
		return serrors.NewNotifierError(fmt.Errorf("all channels failed: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// MaskEmail keeps the first two characters of the local part and the domain.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local := email[:at]
	if len(local) > 2 {
		local = local[:2]
	}
	return local + "***" + email[at:]
}

// MaskPhone keeps only the last four digits.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "***" + phone
	}
	return "***" + phone[len(phone)-4:]
}
