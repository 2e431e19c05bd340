package domain

import (
	"strconv"
	"strings"

	dErrors "civicledger/pkg/domain-errors"
)

// ComplaintID is the registry-assigned sequence number of a complaint.
// Ids start at 0, are dense and never reused.
type ComplaintID uint64

// ParseComplaintID parses a base-10 complaint id from a path or query value.
func ParseComplaintID(s string) (ComplaintID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "complaint id is required")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "complaint id must be a non-negative integer")
	}
	return ComplaintID(v), nil
}

func (id ComplaintID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
