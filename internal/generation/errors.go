package generation

import (
	"context"
	"errors"
	"net"
)

// Common errors returned by the generation package
var (
	// ErrTransient marks a retryable failure: network errors, timeouts,
	// rate limiting and server-side 5xx responses.
	ErrTransient = errors.New("transient generation service error")

	// ErrPermanent marks a failure that retrying cannot fix: malformed input,
	// rejected credentials, blocked content.
	ErrPermanent = errors.New("permanent generation service error")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// ErrorClass is the retry classification of a call error.
type ErrorClass int

const (
	// ClassTransient errors may succeed on retry.
	ClassTransient ErrorClass = iota
	// ClassPermanent errors never retry.
	ClassPermanent
)

func (c ErrorClass) String() string {
	if c == ClassPermanent {
		return "permanent"
	}
	return "transient"
}

// Classify maps an error from a Generator or Checker to a retry class.
// Explicitly tagged errors win; deadline and network errors are transient;
// anything unrecognised is treated as permanent so unknown failures do not
// burn credentials in a retry loop.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassPermanent
	case errors.Is(err, ErrPermanent), errors.Is(err, ErrContentBlocked), errors.Is(err, ErrInvalidConfig):
		return ClassPermanent
	case errors.Is(err, ErrTransient):
		return ClassTransient
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}
	return ClassPermanent
}
