package handlers

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sekolahku/notification-engine/notify"
	"github.com/sekolahku/notification-engine/store"
)

// RecoverableError is an error that is explicitly marked as recoverable.
type RecoverableError struct {
	message string
}

// Error returns the error message for a RecoverableError.
func (e RecoverableError) Error() string {
	return e.message
}

// NewRecoverableError returns a new error that is marked as being recoverable.
func NewRecoverableError(formatString string, a ...interface{}) RecoverableError {
	return RecoverableError{message: fmt.Sprintf(formatString, a...)}
}

// UnrecoverableError is an error that we do not expect to be able to recover from.
type UnrecoverableError struct {
	message string
}

// Error returns the error message for an UnrecoverableError.
func (e UnrecoverableError) Error() string {
	return e.message
}

// NewUnrecoverableError returns a new error that is marked as being unrecoverable.
func NewUnrecoverableError(formatString string, a ...interface{}) UnrecoverableError {
	return UnrecoverableError{message: fmt.Sprintf(formatString, a...)}
}

// classify converts an error returned by the notification engine into a RecoverableError or an UnrecoverableError.
// Invalid requests and deletions of notifications that don't exist won't succeed on redelivery. Store and directory
// failures might.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return NewUnrecoverableError("%s", err.Error())
	case notify.IsValidation(err):
		return NewUnrecoverableError("%s", err.Error())
	case notify.IsDelivery(err), notify.IsResolution(err):
		return NewRecoverableError("%s", err.Error())
	default:
		return NewUnrecoverableError("%s", err.Error())
	}
}
