package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an offer or store does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an offer is inactive or not owned by the caller-supplied entity
	ErrInvalidState = errors.New("invalid state")

	// ErrDataQuality marks a payment that cannot be reconciled against a local offer
	ErrDataQuality = errors.New("data quality")

	// ErrConflict marks a write that lost to an equivalent earlier write
	ErrConflict = errors.New("conflict")

	// ErrDuplicatePayment is returned by the ledger when an external payment id is already recorded
	ErrDuplicatePayment = fmt.Errorf("duplicate external payment id: %w", ErrConflict)
)

// ErrInvalidInput is returned for malformed caller input such as a bad month key
var ErrInvalidInput = errors.New("invalid input")
