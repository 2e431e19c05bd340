package store

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"civicledger/internal/complaint/models"
	"civicledger/pkg/domain"
	"civicledger/pkg/platform/sentinel"
)

type balanceKey struct {
	holder domain.Address
	token  domain.Address
}

// InMemory is a mutex-serialised complaint ledger. It owns custody of locked
// stakes and records the settlement journal alongside status changes.
type InMemory struct {
	mu          sync.RWMutex
	complaints  []*models.Complaint // index == id
	byReporter  map[domain.Address][]domain.ComplaintID
	settlements map[domain.ComplaintID]*models.Settlement
	credits     map[balanceKey]*big.Int
	custody     map[domain.Address]*big.Int
}

func NewInMemory() *InMemory {
	return &InMemory{
		byReporter:  make(map[domain.Address][]domain.ComplaintID),
		settlements: make(map[domain.ComplaintID]*models.Settlement),
		credits:     make(map[balanceKey]*big.Int),
		custody:     make(map[domain.Address]*big.Int),
	}
}

// Create assigns the next id and takes custody of the stake.
func (s *InMemory) Create(_ context.Context, draft models.Draft, now time.Time) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := domain.ComplaintID(len(s.complaints))
	c, err := models.NewComplaint(id, draft, now)
	if err != nil {
		return nil, err
	}
	s.complaints = append(s.complaints, c)
	s.byReporter[c.Reporter] = append(s.byReporter[c.Reporter], id)
	addTo(s.custody, c.Stake.Token, c.Stake.Amount)
	return c.Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.ComplaintID) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if uint64(id) >= uint64(len(s.complaints)) {
		return nil, fmt.Errorf("complaint %d: %w", id, sentinel.ErrNotFound)
	}
	return s.complaints[id].Clone(), nil
}

// Count returns the next id to be assigned.
func (s *InMemory) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.complaints)), nil
}

// ListSince returns up to limit complaints with id < cursor, newest first.
func (s *InMemory) ListSince(_ context.Context, cursor domain.ComplaintID, limit int) ([]*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	upper := min(uint64(cursor), uint64(len(s.complaints)))
	out := make([]*models.Complaint, 0, min(uint64(max(limit, 0)), upper))
	for i := upper; i > 0 && len(out) < limit; i-- {
		out = append(out, s.complaints[i-1].Clone())
	}
	return out, nil
}

func (s *InMemory) ListByReporter(_ context.Context, reporter domain.Address) ([]domain.ComplaintID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ComplaintID{}, s.byReporter[reporter]...), nil
}

// Execute runs validate and mutate under the write lock. A settlement returned
// by mutate is journaled and moved out of custody before the lock is released,
// so the status change and its economic effect are one step.
func (s *InMemory) Execute(_ context.Context, id domain.ComplaintID,
	validate func(*models.Complaint) error,
	mutate func(*models.Complaint) *models.Settlement,
) (*models.Complaint, *models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uint64(id) >= uint64(len(s.complaints)) {
		return nil, nil, fmt.Errorf("complaint %d: %w", id, sentinel.ErrNotFound)
	}

	// Work on a copy so a failed validation leaves no trace.
	working := s.complaints[id].Clone()
	if err := validate(working); err != nil {
		return nil, nil, err
	}
	settlement := mutate(working)
	if settlement != nil {
		if _, dup := s.settlements[id]; dup {
			return nil, nil, fmt.Errorf("complaint %d already settled: %w", id, sentinel.ErrInvalidState)
		}
		s.settlements[id] = settlement
		addTo(s.custody, settlement.Token, new(big.Int).Neg(settlement.Amount))
		key := balanceKey{holder: settlement.Recipient, token: settlement.Token}
		if s.credits[key] == nil {
			s.credits[key] = new(big.Int)
		}
		s.credits[key].Add(s.credits[key], settlement.Amount)
	}
	s.complaints[id] = working
	return working.Clone(), settlement, nil
}

// Settlement returns the recorded settlement for a terminal complaint.
func (s *InMemory) Settlement(_ context.Context, id domain.ComplaintID) (*models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settlements[id]
	if !ok {
		return nil, fmt.Errorf("settlement %d: %w", id, sentinel.ErrNotFound)
	}
	cp := *st
	cp.Amount = new(big.Int).Set(st.Amount)
	return &cp, nil
}

// Credited sums settlements paid to holder in token.
func (s *InMemory) Credited(_ context.Context, holder, token domain.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v := s.credits[balanceKey{holder: holder, token: token}]; v != nil {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

// Custody returns the total stake still locked in token.
func (s *InMemory) Custody(_ context.Context, token domain.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v := s.custody[token]; v != nil {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func addTo(m map[domain.Address]*big.Int, token domain.Address, delta *big.Int) {
	if m[token] == nil {
		m[token] = new(big.Int)
	}
	m[token].Add(m[token], delta)
}
