package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/eventbus"
)

// ExpirationService periodically transitions requests past their expiry.
// Each sweep is two-phase: every status transition commits before any
// notification is attempted, so a crash mid-sweep cannot re-notify rows it
// already transitioned on the previous run.
type ExpirationService struct {
	repo      signrequest.Repository
	publisher eventbus.EventBus
	pool      *pgxpool.Pool
	log       *logrus.Logger
	interval  time.Duration
}

func NewExpirationService(
	repo signrequest.Repository,
	publisher eventbus.EventBus,
	pool *pgxpool.Pool,
	log *logrus.Logger,
	interval time.Duration,
) *ExpirationService {
	return &ExpirationService{
		repo:      repo,
		publisher: publisher,
		pool:      pool,
		log:       log,
		interval:  interval,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *ExpirationService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval.String()).Info("expiry sweep started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweep stopped")
			return
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil {
				s.log.WithError(err).Error("expiry sweep failed")
			} else if n > 0 {
				s.log.WithField("expired", n).Info("expiry sweep transitioned requests")
			}
		}
	}
}

// Sweep runs one pass and returns how many requests it expired. Re-running
// against already-terminal rows is a no-op.
func (s *ExpirationService) Sweep(ctx context.Context) (int, error) {
	if s.pool != nil {
		ctx = composables.WithPool(ctx, s.pool)
	}

	expired, err := s.repo.ListExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	// Phase 1: transitions only.
	transitioned := expired[:0]
	for _, req := range expired {
		if err := transitionStatus(ctx, s.repo, req, signrequest.StatusExpired); err != nil {
			s.log.WithError(err).
				WithField("reference_code", req.ReferenceCode).
				Error("expiring request failed")
			continue
		}
		transitioned = append(transitioned, req)
	}

	// Phase 2: notification fan-out over rows that actually transitioned.
	for _, req := range transitioned {
		s.publisher.Publish(signrequest.ExpiredEvent{Result: *req})
	}
	return len(transitioned), nil
}
