package models

import (
	"math/big"
	"strings"
	"time"

	"civicledger/pkg/domain"
	dErrors "civicledger/pkg/domain-errors"
)

// MaxDescriptionLength bounds free-text fields accepted at submission.
const (
	MaxDescriptionLength = 4096
	MaxLocationLength    = 256
	MaxProofLength       = 256
)

// Stake is the refundable deposit locked with a complaint. Amount is in the
// token's base units.
type Stake struct {
	Token  domain.Address
	Amount *big.Int
}

// Complaint is the aggregate root of the registry.
//
// Invariants:
//   - ID, Reporter, Description, Location, ProofReference and CreatedAt never change
//   - Status only moves forward along CanTransitionTo
//   - while non-terminal: Stake.Amount > 0 and StakeLocked
//   - once terminal: !StakeLocked, ResolvedAt set, exactly one Settlement recorded
type Complaint struct {
	ID             domain.ComplaintID
	Reporter       domain.Address
	Description    string
	Location       string
	Category       string
	Urgency        Urgency
	Stake          Stake
	StakeLocked    bool
	Status         Status
	ProofReference string
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}

// Draft is a validated-on-construction submission, before an id is assigned.
type Draft struct {
	Reporter       domain.Address
	Description    string
	Location       string
	Category       string
	Urgency        Urgency
	ProofReference string
	Stake          Stake
}

// Validate trims the free-text fields and checks every value domain.
func (d *Draft) Validate() error {
	d.Description = strings.TrimSpace(d.Description)
	d.Location = strings.TrimSpace(d.Location)
	d.ProofReference = strings.TrimSpace(d.ProofReference)

	switch {
	case d.Reporter.IsZero():
		return dErrors.New(dErrors.CodeInvalidInput, "reporter address is required")
	case d.Description == "":
		return dErrors.New(dErrors.CodeInvalidInput, "description is required")
	case len(d.Description) > MaxDescriptionLength:
		return dErrors.New(dErrors.CodeInvalidInput, "description is too long")
	case d.Location == "":
		return dErrors.New(dErrors.CodeInvalidInput, "location is required")
	case len(d.Location) > MaxLocationLength:
		return dErrors.New(dErrors.CodeInvalidInput, "location is too long")
	case len(d.ProofReference) > MaxProofLength:
		return dErrors.New(dErrors.CodeInvalidInput, "proof reference is too long")
	case d.Stake.Amount == nil || d.Stake.Amount.Sign() <= 0:
		return dErrors.New(dErrors.CodeInvalidInput, "stake amount must be positive")
	case !d.Urgency.IsValid():
		return dErrors.New(dErrors.CodeInvalidInput, "urgency is out of range")
	}

	category, err := ParseCategory(d.Category)
	if err != nil {
		return err
	}
	d.Category = category
	return nil
}

// NewComplaint builds a freshly submitted complaint from a draft.
func NewComplaint(id domain.ComplaintID, d Draft, now time.Time) (*Complaint, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &Complaint{
		ID:             id,
		Reporter:       d.Reporter,
		Description:    d.Description,
		Location:       d.Location,
		Category:       d.Category,
		Urgency:        d.Urgency,
		Stake:          Stake{Token: d.Stake.Token, Amount: new(big.Int).Set(d.Stake.Amount)},
		StakeLocked:    true,
		Status:         StatusSubmitted,
		ProofReference: d.ProofReference,
		CreatedAt:      now,
	}, nil
}

func (c *Complaint) IsActive() bool {
	return !c.Status.IsTerminal()
}

// CanTransitionTo checks the lifecycle graph.
// Use with ApplyTransition inside store Execute callbacks.
func (c *Complaint) CanTransitionTo(to Status) error {
	if !c.IsActive() {
		return dErrors.New(dErrors.CodeInvalidTransition, "complaint is already "+c.Status.String())
	}
	if !c.Status.CanTransitionTo(to) {
		return dErrors.New(dErrors.CodeInvalidTransition, "cannot move complaint from "+c.Status.String()+" to "+to.String())
	}
	return nil
}

// ApplyTransition moves the complaint to `to`. Entering a terminal state
// releases the stake and returns the settlement that must be recorded in the
// same atomic step: the full stake back to the reporter on Resolved, or to
// sink on Rejected. Non-terminal moves return nil.
// Call CanTransitionTo first.
func (c *Complaint) ApplyTransition(to Status, now time.Time, sink domain.Address) *Settlement {
	c.Status = to
	if !to.IsTerminal() {
		return nil
	}

	settled := now
	c.ResolvedAt = &settled
	c.StakeLocked = false

	s := &Settlement{
		ComplaintID: c.ID,
		Token:       c.Stake.Token,
		Amount:      new(big.Int).Set(c.Stake.Amount),
		SettledAt:   now,
	}
	if to == StatusResolved {
		s.Kind = SettlementReturned
		s.Recipient = c.Reporter
	} else {
		s.Kind = SettlementSlashed
		s.Recipient = sink
	}
	return s
}

// Clone returns a deep copy safe to hand out of a store.
func (c *Complaint) Clone() *Complaint {
	if c == nil {
		return nil
	}
	out := *c
	if c.Stake.Amount != nil {
		out.Stake.Amount = new(big.Int).Set(c.Stake.Amount)
	}
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}

// SettlementKind says where a released stake went.
type SettlementKind string

const (
	SettlementReturned SettlementKind = "returned"
	SettlementSlashed  SettlementKind = "slashed"
)

// Settlement is the single economic outcome of a terminal transition.
type Settlement struct {
	ComplaintID domain.ComplaintID
	Kind        SettlementKind
	Recipient   domain.Address
	Token       domain.Address
	Amount      *big.Int
	SettledAt   time.Time
}
