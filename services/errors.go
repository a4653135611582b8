package services

import "errors"

var (
	// ErrConflict means another transaction committed against the same user first.
	ErrConflict = errors.New("progress conflict")

	// ErrStoreUnavailable wraps any failure of the underlying database.
	ErrStoreUnavailable = errors.New("progress store unavailable")

	// ErrProgressNotFound is returned by reads for users that were never initialized.
	ErrProgressNotFound = errors.New("user progress not found")

	// ErrUnknownCriteriaType marks catalog entries the evaluator cannot measure.
	ErrUnknownCriteriaType = errors.New("unknown criteria type")

	// ErrInvalidCatalog is returned when a catalog fails validation.
	ErrInvalidCatalog = errors.New("invalid achievement catalog")
)
