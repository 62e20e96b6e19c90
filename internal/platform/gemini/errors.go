package gemini

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/redact"
	"google.golang.org/genai"
)

// Error definitions for the gemini package.
var (
	// ErrEmptyPayload is returned when a unit has no payload to prompt with.
	ErrEmptyPayload = errors.New("unit payload cannot be empty")

	// ErrEmptyCredential is returned when a call arrives without an API key.
	ErrEmptyCredential = errors.New("credential cannot be empty")
)

// classifyAPIError tags err as transient or permanent from the HTTP status
// the API reported. Errors without a status are returned wrapped but
// untagged so generation.Classify can inspect them (timeouts, net errors).
// Credentials are scrubbed from the message.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}

	code, ok := apiErrorCode(err)
	if !ok {
		return &redactedError{msg: "gemini call failed: " + redact.String(err.Error()), err: err}
	}

	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: gemini returned %d: %s", generation.ErrTransient, code, redact.String(err.Error()))
	default:
		return fmt.Errorf("%w: gemini returned %d: %s", generation.ErrPermanent, code, redact.String(err.Error()))
	}
}

func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

// redactedError keeps the original error in the chain for errors.As while
// rendering only the scrubbed message.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
