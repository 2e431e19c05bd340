package handler

import (
	"math/big"
	"strings"

	"civicledger/internal/complaint/models"
	"civicledger/pkg/domain"
	dErrors "civicledger/pkg/domain-errors"
)

// SubmitRequest is the body of POST /complaints. The reporter is always the
// session caller, never a body field.
type SubmitRequest struct {
	Description    string `json:"description"`
	Location       string `json:"location"`
	Category       string `json:"category,omitempty"`
	Urgency        string `json:"urgency,omitempty"`
	ProofReference string `json:"proof_reference,omitempty"`
	StakeToken     string `json:"stake_token,omitempty"`
	// StakeAmount is in base units, as a decimal integer string.
	StakeAmount string `json:"stake_amount,omitempty"`

	urgency *models.Urgency
	token   domain.Address
	amount  *big.Int
}

func (r *SubmitRequest) Validate() error {
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	if r.Description == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "description is required")
	}
	if r.Location == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "location is required")
	}

	if u := strings.TrimSpace(r.Urgency); u != "" {
		parsed, err := models.ParseUrgency(u)
		if err != nil {
			return err
		}
		r.urgency = &parsed
	}
	if t := strings.TrimSpace(r.StakeToken); t != "" {
		addr, err := domain.ParseAddress(t)
		if err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "stake_token is not a valid address")
		}
		r.token = addr
	}
	if a := strings.TrimSpace(r.StakeAmount); a != "" {
		v, ok := new(big.Int).SetString(a, 10)
		if !ok || v.Sign() <= 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "stake_amount must be a positive integer")
		}
		r.amount = v
	}
	return nil
}

// AdvanceRequest is the body of POST /admin/complaints/{id}/status.
type AdvanceRequest struct {
	Status string `json:"status"`

	status models.Status
}

func (r *AdvanceRequest) Validate() error {
	s, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	r.status = s
	return nil
}
