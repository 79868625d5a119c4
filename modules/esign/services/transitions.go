package services

import (
	"context"
	"fmt"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/pkg/serrors"
)

// ensureTransition rejects any status change absent from the central table.
// A terminal origin maps to a conflict; a forbidden jump between live
// statuses gets its own code so callers can tell a sequencing error from a
// finished request.
func ensureTransition(from, to signrequest.Status) error {
	if signrequest.CanTransition(from, to) {
		return nil
	}
	if from.IsTerminal() {
		return serrors.NewStateConflict(string(from))
	}
	return serrors.NewError("INVALID_TRANSITION", fmt.Sprintf("cannot move a %s request to %s", from, to))
}

// transitionStatus is the single path status writes go through: validate
// against the table, persist, keep the in-memory aggregate in step.
func transitionStatus(ctx context.Context, repo signrequest.Repository, req *signrequest.Request, to signrequest.Status) error {
	if err := ensureTransition(req.Status, to); err != nil {
		return err
	}
	if err := repo.UpdateStatus(ctx, req.ID, to); err != nil {
		return err
	}
	req.Status = to
	return nil
}
