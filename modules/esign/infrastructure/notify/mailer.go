package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pkg/errors"

	"github.com/showconnect/esign/pkg/configuration"
)

// SMTPMailer sends plain-text email through a single SMTP relay.
type SMTPMailer struct {
	opts configuration.SMTPOptions
}

func NewSMTPMailer(opts configuration.SMTPOptions) *SMTPMailer {
	return &SMTPMailer{opts: opts}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.opts.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.opts.Host, m.opts.Port)
	var auth smtp.Auth
	if m.opts.User != "" {
		auth = smtp.PlainAuth("", m.opts.User, m.opts.Password, m.opts.Host)
	}
	if err := smtp.SendMail(addr, auth, m.opts.From, []string{to}, []byte(msg.String())); err != nil {
		return errors.Wrap(err, "smtp send")
	}
	return nil
}
