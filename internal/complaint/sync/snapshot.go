package sync

import (
	"time"

	"civicledger/internal/complaint/models"
)

// Snapshot sources.
const (
	SourceRegistry = "registry"
	SourceCache    = "cache"
	SourceStale    = "stale"
)

// View is a normalised complaint as served to readers.
type View struct {
	ID             uint64 `json:"id"`
	Reporter       string `json:"reporter"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	StakeToken     string `json:"stake_token"`
	StakedAmount   string `json:"staked_amount"`
	Status         string `json:"status"`
	Urgency        string `json:"urgency"`
	Category       string `json:"category"`
	Timestamp      int64  `json:"timestamp"` // unix ms
	ProofReference string `json:"proof_reference"`
}

// Snapshot is one synchronised window, newest id first.
type Snapshot struct {
	Records   []View    `json:"records"`
	FailedIDs []uint64  `json:"failed_ids"`
	Count     uint64    `json:"count"`
	Window    int       `json:"window"`
	SyncedAt  time.Time `json:"synced_at"`

	// Set by the snapshot service when serving, never persisted.
	Source   string `json:"-"`
	Stale    bool   `json:"-"`
	Degraded bool   `json:"-"`
}

// Normalize converts a raw record into its reader-facing form. decimals
// gives the display exponent for a stake token; nil means NativeDecimals.
func Normalize(r RawRecord, decimals func(token string) int) View {
	if decimals == nil {
		decimals = func(string) int { return NativeDecimals }
	}
	category := r.Category
	if category == "" {
		category = models.CategoryGeneral
	}
	return View{
		ID:             r.ID,
		Reporter:       r.Reporter,
		Description:    r.Description,
		Location:       r.Location,
		StakeToken:     r.StakeToken,
		StakedAmount:   FormatAmount(r.StakeAmount, decimals(r.StakeToken)),
		Status:         models.StatusLabel(r.Status),
		Urgency:        models.UrgencyLabel(r.Urgency),
		Category:       category,
		Timestamp:      r.Timestamp * 1000,
		ProofReference: r.ProofReference,
	}
}

func (s *Snapshot) clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Records = append([]View(nil), s.Records...)
	out.FailedIDs = append([]uint64(nil), s.FailedIDs...)
	return &out
}
