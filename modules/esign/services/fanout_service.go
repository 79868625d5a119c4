package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/modules/esign/infrastructure/notify"
	"github.com/showconnect/esign/modules/esign/infrastructure/webhooks"
	"github.com/showconnect/esign/pkg/eventbus"
)

// FanoutService turns terminal lifecycle events into outbound side effects:
// a webhook POST to the caller's callback URL and a notice to the signer.
// Both are best effort; neither can fail the state change that already
// committed.
type FanoutService struct {
	dispatcher *webhooks.Dispatcher
	notifier   notify.Notifier
	log        *logrus.Logger
	timeout    time.Duration
}

func NewFanoutService(
	dispatcher *webhooks.Dispatcher,
	notifier notify.Notifier,
	publisher eventbus.EventBus,
	log *logrus.Logger,
) *FanoutService {
	s := &FanoutService{
		dispatcher: dispatcher,
		notifier:   notifier,
		log:        log,
		timeout:    30 * time.Second,
	}
	publisher.Subscribe(s.onSigned)
	publisher.Subscribe(s.onDeclined)
	publisher.Subscribe(s.onCancelled)
	publisher.Subscribe(s.onExpired)
	return s
}

func (s *FanoutService) background() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *FanoutService) onSigned(event signrequest.SignedEvent) {
	ctx, cancel := s.background()
	defer cancel()

	req := event.Result
	s.dispatcher.Dispatch(ctx, webhooks.EventCompleted, &req, func(p *webhooks.Payload) {
		p.SignedAt = event.Signature.SignedAt.UTC().Format(time.RFC3339)
		p.SignatureType = string(event.Signature.Kind)
	})
	if err := s.notifier.SendConfirmation(ctx, &req); err != nil {
		s.log.WithError(err).
			WithField("reference_code", req.ReferenceCode).
			Warn("confirmation notice failed")
	}
}

func (s *FanoutService) onDeclined(event signrequest.DeclinedEvent) {
	ctx, cancel := s.background()
	defer cancel()

	req := event.Result
	s.dispatcher.Dispatch(ctx, webhooks.EventDeclined, &req, func(p *webhooks.Payload) {
		p.DeclineReason = event.Reason
	})
}

func (s *FanoutService) onCancelled(event signrequest.CancelledEvent) {
	ctx, cancel := s.background()
	defer cancel()

	req := event.Result
	s.dispatcher.Dispatch(ctx, webhooks.EventCancelled, &req, nil)
	if err := s.notifier.SendCancellation(ctx, &req); err != nil {
		s.log.WithError(err).
			WithField("reference_code", req.ReferenceCode).
			Warn("cancellation notice failed")
	}
}

func (s *FanoutService) onExpired(event signrequest.ExpiredEvent) {
	ctx, cancel := s.background()
	defer cancel()

	req := event.Result
	s.dispatcher.Dispatch(ctx, webhooks.EventExpired, &req, nil)
	if err := s.notifier.SendExpiration(ctx, &req); err != nil {
		s.log.WithError(err).
			WithField("reference_code", req.ReferenceCode).
			Warn("expiration notice failed")
	}
}
