package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sekolahku/notification-engine/model"
)

func TestSubscriptionDropsStaleSnapshots(t *testing.T) {
	assert := assert.New(t)

	var delivered []int
	sub := NewSubscription(IndexAll, "", func(n []model.Notification) {
		delivered = append(delivered, len(n))
	})

	assert.True(sub.Deliver(2, make([]model.Notification, 2)))
	assert.False(sub.Deliver(1, make([]model.Notification, 1)), "an older snapshot was accepted")
	assert.False(sub.Deliver(2, make([]model.Notification, 5)), "a repeated sequence number was accepted")
	assert.True(sub.Deliver(3, make([]model.Notification, 3)))
	assert.Equal([]int{2, 3}, delivered)

	sub.Close()
	assert.True(sub.Closed())
	assert.False(sub.Deliver(4, nil))
	assert.Equal([]int{2, 3}, delivered)
}

func TestSubscriptionDeliversFromWithinUpdate(t *testing.T) {
	assert := assert.New(t)

	var sub *Subscription
	var delivered []int
	sub = NewSubscription(IndexAll, "", func(n []model.Notification) {
		delivered = append(delivered, len(n))

		// A write made by the subscriber triggers another delivery to the same subscription.
		if len(n) == 1 {
			assert.True(sub.Deliver(2, make([]model.Notification, 2)))
			assert.Equal([]int{1}, delivered, "the nested snapshot was delivered before the update returned")
		}
	})

	assert.True(sub.Deliver(1, make([]model.Notification, 1)))
	assert.Equal([]int{1, 2}, delivered)
}
