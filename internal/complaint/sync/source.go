package sync

import (
	"context"
	"math/big"
)

// RawRecord is a complaint exactly as the registry exposes it: enum fields
// are raw ordinals and the stake is in base units.
type RawRecord struct {
	ID             uint64
	Reporter       string
	Description    string
	Location       string
	StakeToken     string
	StakeAmount    *big.Int
	Status         int64
	Urgency        int64
	Category       string
	Timestamp      int64 // unix seconds
	ProofReference string
}

// Source is the read boundary of the registry. The synchronizer only ever
// asks for the count and for one record at a time.
type Source interface {
	Count(ctx context.Context) (uint64, error)
	Fetch(ctx context.Context, id uint64) (RawRecord, error)
}
