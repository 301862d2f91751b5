package handlers

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/notify"
)

// BroadcastRequest represents a deserialized request to notify every active member of an audience.
type BroadcastRequest struct {
	notify.Audience
	Classification string          `json:"classification"`
	Action         string          `json:"action"`
	Payload        json.RawMessage `json:"payload"`
	Sender         *model.Sender   `json:"sender"`
}

// Broadcast is a message handler for broadcast requests.
type Broadcast struct {
	broadcaster Broadcaster
}

// NewBroadcast returns a new broadcast handler.
func NewBroadcast(broadcaster Broadcaster) *Broadcast {
	return &Broadcast{broadcaster: broadcaster}
}

// HandleMessage handles a single AMQP delivery. Recipients that couldn't be notified are logged; the delivery
// still succeeds so that a redelivery doesn't notify everyone else a second time.
func (h *Broadcast) HandleMessage(ctx context.Context, delivery amqp.Delivery) error {
	var request BroadcastRequest
	if err := parseBody(delivery, &request); err != nil {
		return err
	}

	payload, err := notify.DecodeBroadcastPayload(request.Action, request.Payload)
	if err != nil {
		return classify(err)
	}

	result, err := h.broadcaster.Broadcast(
		ctx, request.Audience, request.Classification, request.Action, payload, request.Sender,
	)
	if err != nil {
		return classify(err)
	}

	for recipient, failure := range result.Failures {
		log.WithFields(logrus.Fields{
			"recipient": recipient,
			"action":    request.Action,
		}).Errorf("unable to notify recipient: %s", failure)
	}

	return nil
}
