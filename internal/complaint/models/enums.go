package models

import (
	"strings"

	dErrors "civicledger/pkg/domain-errors"
)

// UnknownLabel is shown for ordinals outside the fixed tables.
const UnknownLabel = "Unknown"

// Status is the lifecycle stage of a complaint. Values are the canonical
// ordinals used on the ledger.
type Status uint8

const (
	StatusSubmitted Status = iota
	StatusVerified
	StatusInProgress
	StatusResolved
	StatusRejected
)

var statusLabels = [...]string{
	StatusSubmitted:  "Submitted",
	StatusVerified:   "Verified",
	StatusInProgress: "InProgress",
	StatusResolved:   "Resolved",
	StatusRejected:   "Rejected",
}

// StatusLabel maps a raw ordinal to its label, or UnknownLabel.
func StatusLabel(ordinal int64) string {
	if ordinal < 0 || ordinal >= int64(len(statusLabels)) {
		return UnknownLabel
	}
	return statusLabels[ordinal]
}

func (s Status) String() string { return StatusLabel(int64(s)) }

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// IsValid reports whether s is one of the defined ordinals.
func (s Status) IsValid() bool {
	return int(s) < len(statusLabels)
}

// CanTransitionTo encodes the lifecycle graph:
//
//	Submitted  -> Verified | InProgress | Resolved | Rejected
//	Verified   -> InProgress | Resolved | Rejected
//	InProgress -> Resolved | Rejected
func (s Status) CanTransitionTo(to Status) bool {
	if s.IsTerminal() || !to.IsValid() {
		return false
	}
	switch to {
	case StatusResolved, StatusRejected:
		return true
	case StatusVerified:
		return s == StatusSubmitted
	case StatusInProgress:
		return s == StatusSubmitted || s == StatusVerified
	default:
		return false
	}
}

// ParseStatus accepts a label case-insensitively.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for i, label := range statusLabels {
		if strings.ToLower(label) == norm {
			return Status(i), nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown status: "+s)
}

// Urgency is totally ordered: Low < Medium < High < Critical.
type Urgency uint8

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

var urgencyLabels = [...]string{
	UrgencyLow:      "Low",
	UrgencyMedium:   "Medium",
	UrgencyHigh:     "High",
	UrgencyCritical: "Critical",
}

// UrgencyLabel maps a raw ordinal to its label, or UnknownLabel.
func UrgencyLabel(ordinal int64) string {
	if ordinal < 0 || ordinal >= int64(len(urgencyLabels)) {
		return UnknownLabel
	}
	return urgencyLabels[ordinal]
}

func (u Urgency) String() string { return UrgencyLabel(int64(u)) }

func (u Urgency) IsValid() bool {
	return int(u) < len(urgencyLabels)
}

// ParseUrgency accepts a label case-insensitively.
func ParseUrgency(s string) (Urgency, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for i, label := range urgencyLabels {
		if strings.ToLower(label) == norm {
			return Urgency(i), nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown urgency: "+s)
}

// Categories recognised at submission.
const (
	CategoryGeneral     = "General"
	CategoryWater       = "Water Supply"
	CategoryRoad        = "Road infrastructure"
	CategoryElectricity = "Electricity"
)

var categories = []string{CategoryGeneral, CategoryWater, CategoryRoad, CategoryElectricity}

// Categories returns the fixed category set.
func Categories() []string {
	return append([]string(nil), categories...)
}

// ParseCategory canonicalises a category name, matched case-insensitively.
func ParseCategory(s string) (string, error) {
	norm := strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(c, norm) {
			return c, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown category: "+s)
}
