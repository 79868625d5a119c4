package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogEmailSender logs instead of delivering. Used in demo mode so the full
// signing flow works without SMTP credentials.
type LogEmailSender struct {
	log *logrus.Logger
}

func NewLogEmailSender(log *logrus.Logger) *LogEmailSender {
	return &LogEmailSender{log: log}
}

func (s *LogEmailSender) Send(_ context.Context, to, subject, body string) error {
	s.log.WithFields(logrus.Fields{
		"channel": "email",
		"to":      MaskEmail(to),
		"subject": subject,
	}).Info("demo notification (not delivered)")
	s.log.Debug(body)
	return nil
}

// LogSMSSender is the SMS counterpart of LogEmailSender.
type LogSMSSender struct {
	log *logrus.Logger
}

func NewLogSMSSender(log *logrus.Logger) *LogSMSSender {
	return &LogSMSSender{log: log}
}

func (s *LogSMSSender) Send(_ context.Context, to, body string) error {
	s.log.WithFields(logrus.Fields{
		"channel": "sms",
		"to":      MaskPhone(to),
		"body":    body,
	}).Info("demo notification (not delivered)")
	return nil
}
