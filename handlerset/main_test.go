package handlerset

import (
	"context"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"

	"github.com/sekolahku/notification-engine/handlers"
)

// MockAcknowledger records how a delivery was settled.
type MockAcknowledger struct {
	Acked    bool
	Nacked   bool
	Requeued bool
	Rejected bool
}

func (a *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	a.Acked = true
	return nil
}

func (a *MockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.Nacked = true
	a.Requeued = requeue
	return nil
}

func (a *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	a.Rejected = true
	a.Requeued = requeue
	return nil
}

// MockHandler returns a fixed error and counts its calls.
type MockHandler struct {
	err   error
	calls int
}

func (h *MockHandler) HandleMessage(context.Context, amqp.Delivery) error {
	h.calls++
	return h.err
}

func dispatch(handler handlers.MessageHandler, routingKey string) *MockAcknowledger {
	hs := &HandlerSet{handlerFor: map[string]handlers.MessageHandler{"notifications.create": handler}}
	ack := &MockAcknowledger{}
	hs.Dispatch(context.Background(), amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, RoutingKey: routingKey})
	return ack
}

func TestDispatchAcknowledgesSuccess(t *testing.T) {
	assert := assert.New(t)

	handler := &MockHandler{}
	ack := dispatch(handler, "notifications.create")
	assert.Equal(1, handler.calls)
	assert.True(ack.Acked, "the message wasn't acknowledged")
	assert.False(ack.Nacked)
	assert.False(ack.Rejected)
}

func TestDispatchRequeuesRecoverableErrors(t *testing.T) {
	assert := assert.New(t)

	ack := dispatch(&MockHandler{err: handlers.NewRecoverableError("store unavailable")}, "notifications.create")
	assert.True(ack.Nacked, "the message wasn't negatively acknowledged")
	assert.True(ack.Requeued, "the message wasn't requeued")
	assert.False(ack.Acked)
}

func TestDispatchRejectsUnrecoverableErrors(t *testing.T) {
	assert := assert.New(t)

	ack := dispatch(&MockHandler{err: handlers.NewUnrecoverableError("bad request")}, "notifications.create")
	assert.True(ack.Rejected, "the message wasn't rejected")
	assert.False(ack.Requeued, "the message was requeued")
}

func TestDispatchRejectsUnknownRoutingKeys(t *testing.T) {
	assert := assert.New(t)

	handler := &MockHandler{}
	ack := dispatch(handler, "notifications.unknown")
	assert.Zero(handler.calls)
	assert.True(ack.Rejected, "the message wasn't rejected")
	assert.False(ack.Requeued, "the message was requeued")
}

func TestRoutingKeys(t *testing.T) {
	hs := &HandlerSet{handlerFor: handlers.InitMessageHandlers(nil, nil, nil)}
	assert.Equal(t, []string{
		handlers.BroadcastKey,
		handlers.CreateKey,
		handlers.CreateDepartmentKey,
		handlers.DeleteKey,
		handlers.DeleteAllKey,
		handlers.ReadKey,
		handlers.ReadAllKey,
	}, hs.RoutingKeys())
}
