package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Ledger stores, caches and the
// registry source return these (optionally wrapped); services translate them
// into domain errors.
//
//   - ErrNotFound: no record under the key
//   - ErrInvalidState: the record cannot take the requested transition
//   - ErrUnavailable: the backing system could not be reached
//
// Validation failures belong in pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
