package service

import (
	"errors"
	"strings"
)

// ErrPostingUnavailable is returned when a contact targets a posting that
// does not exist or no longer accepts requests.
var ErrPostingUnavailable = errors.New("posting unavailable")

// ValidationError reports a malformed request.  It is raised before any
// store access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
