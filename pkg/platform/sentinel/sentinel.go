package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into coded domain errors.
//
//   - ErrNotFound: record does not exist in the store
//   - ErrConflict: unique key already taken (username, email, delivery number)
//   - ErrInvalidState: conditional update lost; the record no longer has the expected state
//   - ErrUnavailable: backing service temporarily unavailable
//
// Validation failures do not belong here; use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
