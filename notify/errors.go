package notify

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sekolahku/notification-engine/model"
)

// ValidationError is returned when the input to a template-based creation call is malformed. It is never retried.
type ValidationError struct {
	message string
}

// Error returns the error message for a ValidationError.
func (e ValidationError) Error() string {
	return e.message
}

// NewValidationError returns a new ValidationError.
func NewValidationError(formatString string, a ...interface{}) ValidationError {
	return ValidationError{message: fmt.Sprintf(formatString, a...)}
}

// DeliveryError is returned when the store rejects a write, after retries where the operation retries.
type DeliveryError struct {
	Err      error
	Attempts int
}

// Error returns the error message for a DeliveryError.
func (e DeliveryError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("notification delivery failed after %d attempts: %s", e.Attempts, e.Err)
	}
	return fmt.Sprintf("notification delivery failed: %s", e.Err)
}

// Unwrap returns the underlying store error.
func (e DeliveryError) Unwrap() error {
	return e.Err
}

// Cause returns the underlying store error so that errors.Cause sees through a DeliveryError.
func (e DeliveryError) Cause() error {
	return e.Err
}

// NewDeliveryError wraps a store error in a DeliveryError.
func NewDeliveryError(cause error, attempts int) DeliveryError {
	return DeliveryError{Err: cause, Attempts: attempts}
}

// ResolutionError is returned when an audience directory can't be listed. An audience without members isn't an
// error.
type ResolutionError struct {
	UserType model.UserType
	Err      error
}

// Error returns the error message for a ResolutionError.
func (e ResolutionError) Error() string {
	return fmt.Sprintf("unable to resolve the %s audience: %s", e.UserType, e.Err)
}

// Unwrap returns the underlying directory error.
func (e ResolutionError) Unwrap() error {
	return e.Err
}

// Cause returns the underlying directory error so that errors.Cause sees through a ResolutionError.
func (e ResolutionError) Cause() error {
	return e.Err
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

// IsDelivery returns true if err is or wraps a DeliveryError.
func IsDelivery(err error) bool {
	var target DeliveryError
	return errors.As(err, &target)
}

// IsResolution returns true if err is or wraps a ResolutionError.
func IsResolution(err error) bool {
	var target ResolutionError
	return errors.As(err, &target)
}
