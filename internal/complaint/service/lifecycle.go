package service

import (
	"context"

	"civicledger/internal/complaint/models"
	"civicledger/pkg/domain"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/audit"
	"civicledger/pkg/requestcontext"
)

// Resolve closes the complaint in the reporter's favour and returns the full
// stake to them.
func (s *Service) Resolve(ctx context.Context, id domain.ComplaintID, caller domain.Address) (*models.Complaint, error) {
	return s.transition(ctx, "resolve", id, caller, models.StatusResolved)
}

// Reject closes the complaint and slashes the stake to the configured sink.
func (s *Service) Reject(ctx context.Context, id domain.ComplaintID, caller domain.Address) (*models.Complaint, error) {
	return s.transition(ctx, "reject", id, caller, models.StatusRejected)
}

// Advance moves a complaint along the lifecycle. Terminal targets go through
// Resolve or Reject so a settlement is always recorded.
func (s *Service) Advance(ctx context.Context, id domain.ComplaintID, caller domain.Address, to models.Status) (*models.Complaint, error) {
	switch to {
	case models.StatusResolved:
		return s.Resolve(ctx, id, caller)
	case models.StatusRejected:
		return s.Reject(ctx, id, caller)
	}
	if !to.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown target status")
	}
	return s.transition(ctx, "advance", id, caller, to)
}

// transition enforces the error precedence not found, then unauthorized,
// then invalid transition. The authority check happens before any write.
func (s *Service) transition(ctx context.Context, op string, id domain.ComplaintID, caller domain.Address, to models.Status) (*models.Complaint, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		err = translate(err, "complaint not found")
		s.metrics.IncrementOperation(op, string(dErrors.CodeOf(err)))
		return nil, err
	}

	if !s.authorities.Authorize(ctx, caller) {
		s.metrics.IncrementOperation(op, string(dErrors.CodeForbidden))
		s.emitAudit(ctx, audit.Event{
			Subject:  id.String(),
			Action:   string(audit.EventActionDenied),
			Actor:    caller.String(),
			Decision: "denied",
			Reason:   op + " requires a registry authority",
		})
		return nil, dErrors.New(dErrors.CodeForbidden, "caller is not a registry authority")
	}

	now := requestcontext.Now(ctx)
	updated, settlement, err := s.store.Execute(ctx, id,
		func(c *models.Complaint) error {
			return c.CanTransitionTo(to)
		},
		func(c *models.Complaint) *models.Settlement {
			return c.ApplyTransition(to, now, s.slashSink)
		},
	)
	if err != nil {
		err = translate(err, "complaint not found")
		s.metrics.IncrementOperation(op, string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.metrics.IncrementOperation(op, "ok")
	s.invalidate(ctx)

	event := audit.Event{
		Subject:  id.String(),
		Action:   string(audit.EventComplaintAdvanced),
		Actor:    caller.String(),
		Decision: updated.Status.String(),
	}
	if settlement != nil {
		s.metrics.IncrementSettlement(string(settlement.Kind))
		event.Action = string(audit.EventComplaintResolved)
		if settlement.Kind == models.SettlementSlashed {
			event.Action = string(audit.EventComplaintRejected)
		}
		event.Amount = settlement.Amount.String()
		event.Recipient = settlement.Recipient.String()
	}
	s.emitAudit(ctx, event)
	return updated, nil
}
