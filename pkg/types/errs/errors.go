package errs

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrVersionConflict   = errors.New("version conflict")
	ErrValidation        = errors.New("validation failed")
	ErrAlreadyProcessed  = errors.New("event already processed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Validation builds an error wrapping ErrValidation.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsPermanent reports whether retrying the failed operation cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrRecordNotFound)
}
