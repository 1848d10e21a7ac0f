// Package errkind holds the error kinds shared by the dialogue engine.
// Callers match them with errors.Is; wrapping code adds context with %w.
package errkind

import "errors"

var (
	// Remote service failures.
	ErrMissingContext = errors.New("missing context")
	ErrTimeout        = errors.New("timeout")
	ErrServiceError   = errors.New("service error")

	// Store failures.
	ErrNotFound           = errors.New("not found")
	ErrStaleRead          = errors.New("stale read")
	ErrPersistenceFailure = errors.New("persistence failure")

	// Proposal and arbitration failures.
	ErrMalformedProposal = errors.New("malformed proposal")
	ErrSafetyRejection   = errors.New("safety rejection")
	ErrRepetition        = errors.New("repetition")
	ErrEmptyText         = errors.New("empty text")
	ErrNoViableResponse  = errors.New("no viable response")
)

var all = []error{
	ErrMissingContext, ErrTimeout, ErrServiceError,
	ErrNotFound, ErrStaleRead, ErrPersistenceFailure,
	ErrMalformedProposal, ErrSafetyRejection, ErrRepetition, ErrEmptyText, ErrNoViableResponse,
}

// Name returns the name of the first kind err matches, or "Unknown".
func Name(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range all {
		if errors.Is(err, k) {
			return names[k]
		}
	}
	return "Unknown"
}

var names = map[error]string{
	ErrMissingContext:     "MissingContext",
	ErrTimeout:            "Timeout",
	ErrServiceError:       "ServiceError",
	ErrNotFound:           "NotFound",
	ErrStaleRead:          "StaleRead",
	ErrPersistenceFailure: "PersistenceFailure",
	ErrMalformedProposal:  "MalformedProposal",
	ErrSafetyRejection:    "SafetyRejection",
	ErrRepetition:         "Repetition",
	ErrEmptyText:          "EmptyText",
	ErrNoViableResponse:   "NoViableResponse",
}
