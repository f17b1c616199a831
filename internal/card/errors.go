package card

import "errors"

// Lifecycle errors surfaced to callers.
var (
	// ErrNotFound indicates no card exists for the given code.
	ErrNotFound = errors.New("card not found")
	// ErrAlreadyActivated indicates activation was attempted on a non-unused card.
	ErrAlreadyActivated = errors.New("card already activated")
	// ErrIssuanceFailed indicates code generation kept colliding with existing cards.
	ErrIssuanceFailed = errors.New("card issuance failed")
)
