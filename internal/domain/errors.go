// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyUnitID is returned when a work unit has no identifier.
	ErrEmptyUnitID = errors.New("work unit ID cannot be empty")

	// ErrDuplicateUnitID is returned when two work units share an identifier.
	ErrDuplicateUnitID = errors.New("duplicate work unit ID")

	// ErrInvalidUnitStatus is returned when a status value is not recognised.
	ErrInvalidUnitStatus = errors.New("invalid work unit status")

	// ErrInvalidContent is returned when content does not match its declared kind.
	ErrInvalidContent = errors.New("invalid generated content")

	// ErrNoWorkUnits is returned when a run is started with an empty unit set.
	ErrNoWorkUnits = errors.New("work unit set cannot be empty")
)
