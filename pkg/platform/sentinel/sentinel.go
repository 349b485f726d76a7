package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about stored rows, not validation failures:
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: a uniqueness or exclusivity constraint blocked the write
// - ErrInvalidState: entity in wrong state for the requested operation
//
// For rule violations (age limits, date ordering, span caps), use
// pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)
