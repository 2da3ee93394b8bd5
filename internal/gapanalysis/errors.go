package gapanalysis

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned under the strict policy when no
// completion-service credential is configured.
var ErrMissingCredential = errors.New("completion service credential is not configured")

// InputError reports a missing or malformed required input field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// IsInputError reports whether err wraps an *InputError.
func IsInputError(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}
