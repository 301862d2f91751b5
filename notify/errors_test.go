package notify

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/sekolahku/notification-engine/model"
)

func TestErrorCauses(t *testing.T) {
	assert := assert.New(t)

	// Both errors.Cause and errors.Is see the underlying store error.
	delivery := NewDeliveryError(errStoreUnavailable, 3)
	assert.Equal(errStoreUnavailable, errors.Cause(delivery))
	assert.ErrorIs(delivery, errStoreUnavailable)
	assert.Equal("notification delivery failed after 3 attempts: store unavailable", delivery.Error())

	// Wrapping a DeliveryError doesn't hide the cause either.
	wrapped := errors.Wrap(delivery, "unable to create notification")
	assert.Equal(errStoreUnavailable, errors.Cause(wrapped))
	assert.True(IsDelivery(wrapped))

	resolution := ResolutionError{UserType: model.UserTypeStudent, Err: errStoreUnavailable}
	assert.Equal(errStoreUnavailable, errors.Cause(resolution))
	assert.True(IsResolution(resolution))
	assert.False(IsDelivery(resolution))

	assert.True(IsValidation(NewValidationError("a message is required")))
	assert.False(IsValidation(delivery))
}
