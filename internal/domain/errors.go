package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTransient            = errors.New("temporarily unavailable")
	ErrValidation           = errors.New("validation failed")
	ErrConversionFailed     = errors.New("conversion failed")
	ErrDuplicateOperation   = errors.New("duplicate operation")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrInvalidTransition    = errors.New("invalid transition")
)

// FieldError reports a validation problem tied to a single form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap lets callers match field errors with errors.Is(err, ErrValidation).
func (e *FieldError) Unwrap() error { return ErrValidation }
