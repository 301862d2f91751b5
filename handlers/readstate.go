package handlers

import (
	"context"

	"github.com/streadway/amqp"

	"github.com/sekolahku/notification-engine/model"
)

// NotificationRequest represents a deserialized request that refers to a single notification.
type NotificationRequest struct {
	ID string `json:"id"`
}

// ViewerRequest represents a deserialized request made on behalf of a viewer.
type ViewerRequest struct {
	model.Viewer
}

// Read is a message handler for requests to mark a notification read.
type Read struct {
	readState ReadStateManager
}

// NewRead returns a new handler for marking single notifications read.
func NewRead(readState ReadStateManager) *Read {
	return &Read{readState: readState}
}

// HandleMessage handles a single AMQP delivery.
func (h *Read) HandleMessage(ctx context.Context, delivery amqp.Delivery) error {
	var request NotificationRequest
	if err := parseBody(delivery, &request); err != nil {
		return err
	}
	if request.ID == "" {
		return NewUnrecoverableError("no notification ID provided")
	}
	return classify(h.readState.MarkRead(ctx, request.ID))
}

// ReadAll is a message handler for requests to mark everything a viewer can see read.
type ReadAll struct {
	readState ReadStateManager
}

// NewReadAll returns a new handler for marking all visible notifications read.
func NewReadAll(readState ReadStateManager) *ReadAll {
	return &ReadAll{readState: readState}
}

// HandleMessage handles a single AMQP delivery.
func (h *ReadAll) HandleMessage(ctx context.Context, delivery amqp.Delivery) error {
	var request ViewerRequest
	if err := parseBody(delivery, &request); err != nil {
		return err
	}

	changed, err := h.readState.MarkAllRead(ctx, request.Viewer)
	if err != nil {
		return classify(err)
	}

	log.Debugf("marked %d notifications read for %s %s", changed, request.Role, request.ID)
	return nil
}

// Delete is a message handler for requests to delete a single notification.
type Delete struct {
	readState ReadStateManager
}

// NewDelete returns a new handler for deleting single notifications.
func NewDelete(readState ReadStateManager) *Delete {
	return &Delete{readState: readState}
}

// HandleMessage handles a single AMQP delivery.
func (h *Delete) HandleMessage(ctx context.Context, delivery amqp.Delivery) error {
	var request NotificationRequest
	if err := parseBody(delivery, &request); err != nil {
		return err
	}
	if request.ID == "" {
		return NewUnrecoverableError("no notification ID provided")
	}
	return classify(h.readState.Delete(ctx, request.ID))
}

// DeleteAll is a message handler for requests to delete every notification addressed to a viewer.
type DeleteAll struct {
	readState ReadStateManager
}

// NewDeleteAll returns a new handler for deleting all of a viewer's notifications.
func NewDeleteAll(readState ReadStateManager) *DeleteAll {
	return &DeleteAll{readState: readState}
}

// HandleMessage handles a single AMQP delivery.
func (h *DeleteAll) HandleMessage(ctx context.Context, delivery amqp.Delivery) error {
	var request ViewerRequest
	if err := parseBody(delivery, &request); err != nil {
		return err
	}

	removed, err := h.readState.DeleteAll(ctx, request.ID)
	if err != nil {
		return classify(err)
	}

	log.Debugf("deleted %d notifications for %s", removed, request.ID)
	return nil
}
