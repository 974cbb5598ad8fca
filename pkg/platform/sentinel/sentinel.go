package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Store adapters return these
// (optionally wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about stored entities, not validation failures:
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: a uniqueness or concurrent-write conflict was detected
// - ErrInvalidState: entity is in the wrong state for the requested mutation
// - ErrTxRequired: a transaction-scoped operation ran outside a transaction
// - ErrUnavailable: store or feed temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrTxRequired   = errors.New("transaction required")
	ErrUnavailable  = errors.New("unavailable")
)
