package services

import (
	"context"
	"time"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/eventbus"
	"github.com/showconnect/esign/pkg/serrors"
)

// ErrLinkGone is returned for unknown and expired tokens alike, so a caller
// probing token values cannot learn which ones ever existed.
var ErrLinkGone = serrors.NewError("GONE", "this signing link is no longer available")

// resolveSigningToken loads the request behind a capability token and applies
// the lazy expiry check before any other logic: a request past its expiry is
// transitioned to expired on the spot and reported gone.
func resolveSigningToken(
	ctx context.Context,
	repo signrequest.Repository,
	publisher eventbus.EventBus,
	tokenValue string,
) (*signrequest.Request, *signrequest.Token, error) {
	req, tok, err := repo.GetByToken(ctx, tokenValue)
	if err != nil {
		if _, ok := err.(*serrors.NotFoundError); ok {
			return nil, nil, ErrLinkGone
		}
		return nil, nil, err
	}

	if req.Status == signrequest.StatusExpired {
		return nil, nil, ErrLinkGone
	}

	if !req.Status.IsTerminal() && req.IsExpired(time.Now()) {
		if err := transitionStatus(ctx, repo, req, signrequest.StatusExpired); err != nil {
			return nil, nil, err
		}
		if publisher != nil {
			publisher.Publish(signrequest.ExpiredEvent{Result: *req})
		}
		composables.UseLogger(ctx).
			WithField("reference_code", req.ReferenceCode).
			Info("request lazily expired on access")
		return nil, nil, ErrLinkGone
	}

	return req, tok, nil
}
