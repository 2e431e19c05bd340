package service

import (
	"context"
	"math/big"
	"strings"

	"civicledger/internal/complaint/models"
	"civicledger/pkg/domain"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/audit"
	"civicledger/pkg/requestcontext"
)

// Submission is a reporter's request to open a complaint. Category and
// Urgency are optional; when omitted the classifier fills them in.
type Submission struct {
	Reporter       domain.Address
	Description    string
	Location       string
	Category       string
	Urgency        *models.Urgency
	ProofReference string
	StakeToken     domain.Address
	StakeAmount    *big.Int
}

// Submit opens a complaint and locks its stake. It is the only way a
// complaint comes into existence.
func (s *Service) Submit(ctx context.Context, sub Submission) (domain.ComplaintID, error) {
	if sub.Reporter.IsZero() {
		s.metrics.IncrementOperation("submit", string(dErrors.CodeInvalidInput))
		return 0, dErrors.New(dErrors.CodeInvalidInput, "reporter address is required")
	}

	draft := models.Draft{
		Reporter:       sub.Reporter,
		Description:    sub.Description,
		Location:       sub.Location,
		Category:       sub.Category,
		ProofReference: sub.ProofReference,
		Stake:          models.Stake{Token: sub.StakeToken, Amount: sub.StakeAmount},
	}

	if strings.TrimSpace(sub.Category) == "" || sub.Urgency == nil {
		triage := s.classifier.Classify(sub.Description)
		if strings.TrimSpace(draft.Category) == "" {
			draft.Category = triage.Category
		}
		draft.Urgency = triage.Urgency
		s.metrics.IncrementClassification(triage.Category)
	}
	if sub.Urgency != nil {
		draft.Urgency = *sub.Urgency
	}

	c, err := s.store.Create(ctx, draft, requestcontext.Now(ctx))
	if err != nil {
		err = translate(err, "complaint not found")
		s.metrics.IncrementOperation("submit", string(dErrors.CodeOf(err)))
		return 0, err
	}
	s.metrics.IncrementOperation("submit", "ok")
	s.invalidate(ctx)

	s.emitAudit(ctx, audit.Event{
		Subject:  c.ID.String(),
		Action:   string(audit.EventComplaintSubmitted),
		Actor:    c.Reporter.String(),
		Decision: c.Category + "/" + c.Urgency.String(),
		Amount:   c.Stake.Amount.String(),
	})
	return c.ID, nil
}
