package remote

import (
	"fmt"

	"socialbot-be/pkg/errkind"
)

// Error describes a failed remote call. Kind is one of errkind.ErrMissingContext,
// errkind.ErrTimeout or errkind.ErrServiceError.
type Error struct {
	Kind       error
	Service    string
	Message    string
	StackTrace string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("remote %s: %s", e.Service, errkind.Name(e.Kind))
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func missingContext(service string, keys []string) *Error {
	return &Error{
		Kind:    errkind.ErrMissingContext,
		Service: service,
		Message: fmt.Sprintf("payload is missing %v", keys),
	}
}
