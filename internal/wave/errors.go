package wave

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for waves that do not exist, were deleted, or have
// expired (an expired wave cannot be joined).
var ErrNotFound = errors.New("wave not found")

// ErrForbidden is returned when a caller other than the creator tries to
// delete a wave.
var ErrForbidden = errors.New("only the wave creator may do this")

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ProvisioningError records a failed attempt to create a wave's chat room.
// It never reaches a joining user; the engine logs it and retries later.
type ProvisioningError struct {
	WaveID   string
	Attempts int
	Err      error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provision room for wave %s failed after %d attempt(s): %v", e.WaveID, e.Attempts, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden reports whether err is or wraps ErrForbidden.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsProvisioning reports whether err is or wraps a ProvisioningError.
func IsProvisioning(err error) bool {
	var pe *ProvisioningError
	return errors.As(err, &pe)
}
