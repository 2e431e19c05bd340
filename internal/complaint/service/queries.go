package service

import (
	"context"
	"math/big"

	"civicledger/internal/complaint/models"
	"civicledger/pkg/domain"
	dErrors "civicledger/pkg/domain-errors"
)

// Get reads one complaint straight from the ledger, bypassing any snapshot.
func (s *Service) Get(ctx context.Context, id domain.ComplaintID) (*models.Complaint, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "complaint not found")
	}
	return c, nil
}

// Count returns the id the next submission will receive.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, translate(err, "")
	}
	return n, nil
}

// ListSince returns at most limit complaints with id below cursor, newest first.
func (s *Service) ListSince(ctx context.Context, cursor domain.ComplaintID, limit int) ([]*models.Complaint, error) {
	if limit < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "limit must not be negative")
	}
	out, err := s.store.ListSince(ctx, cursor, limit)
	if err != nil {
		return nil, translate(err, "")
	}
	return out, nil
}

func (s *Service) ListByReporter(ctx context.Context, reporter domain.Address) ([]domain.ComplaintID, error) {
	ids, err := s.store.ListByReporter(ctx, reporter)
	if err != nil {
		return nil, translate(err, "")
	}
	return ids, nil
}

// Settlement returns the recorded outcome of a terminal complaint.
func (s *Service) Settlement(ctx context.Context, id domain.ComplaintID) (*models.Settlement, error) {
	st, err := s.store.Settlement(ctx, id)
	if err != nil {
		return nil, translate(err, "complaint has no settlement")
	}
	return st, nil
}

// Credited is the total paid out to holder in token by settlements.
func (s *Service) Credited(ctx context.Context, holder, token domain.Address) (*big.Int, error) {
	v, err := s.store.Credited(ctx, holder, token)
	if err != nil {
		return nil, translate(err, "")
	}
	return v, nil
}

// Custody is the stake still locked in token across open complaints.
func (s *Service) Custody(ctx context.Context, token domain.Address) (*big.Int, error) {
	v, err := s.store.Custody(ctx, token)
	if err != nil {
		return nil, translate(err, "")
	}
	return v, nil
}
