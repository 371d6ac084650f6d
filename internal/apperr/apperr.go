package apperr

import (
	"errors"
	"fmt"
)

// Sentinels for the two failure classes that carry no extra detail.
// Compare with errors.Is; wrap with fmt.Errorf("%w") to add context.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError reports a write rejected by an invariant check.
// Field names the offending input so callers can surface it directly.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func Validation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvariantViolation marks a state that should be impossible. It must be
// logged and surfaced as an internal error, never silently repaired.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Msg
}

func Invariant(format string, args ...any) error {
	return &InvariantViolation{Msg: fmt.Sprintf(format, args...)}
}

func IsInvariant(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
