// Package adapters connects the complaint ledger to the read-side
// synchronizer without either package importing the other.
package adapters

import (
	"context"
	"math/big"

	"civicledger/internal/complaint/models"
	complaintsync "civicledger/internal/complaint/sync"
	"civicledger/pkg/domain"
)

// Ledger is the read slice of the complaint store.
type Ledger interface {
	Count(ctx context.Context) (uint64, error)
	FindByID(ctx context.Context, id domain.ComplaintID) (*models.Complaint, error)
}

// LedgerSource exposes a ledger as a synchronizer Source, flattening the
// entity back into the registry's raw record shape.
type LedgerSource struct {
	ledger Ledger
}

func NewLedgerSource(l Ledger) *LedgerSource {
	return &LedgerSource{ledger: l}
}

func (s *LedgerSource) Count(ctx context.Context) (uint64, error) {
	return s.ledger.Count(ctx)
}

func (s *LedgerSource) Fetch(ctx context.Context, id uint64) (complaintsync.RawRecord, error) {
	c, err := s.ledger.FindByID(ctx, domain.ComplaintID(id))
	if err != nil {
		return complaintsync.RawRecord{}, err
	}
	return ToRecord(c), nil
}

// ToRecord flattens a complaint into the registry's raw record shape.
func ToRecord(c *models.Complaint) complaintsync.RawRecord {
	return complaintsync.RawRecord{
		ID:             uint64(c.ID),
		Reporter:       c.Reporter.String(),
		Description:    c.Description,
		Location:       c.Location,
		StakeToken:     c.Stake.Token.String(),
		StakeAmount:    new(big.Int).Set(c.Stake.Amount),
		Status:         int64(c.Status),
		Urgency:        int64(c.Urgency),
		Category:       c.Category,
		Timestamp:      c.CreatedAt.Unix(),
		ProofReference: c.ProofReference,
	}
}
