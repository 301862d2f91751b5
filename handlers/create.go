package handlers

import (
	"context"
	"encoding/json"

	"github.com/streadway/amqp"

	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/notify"
)

// CreateRequest represents a deserialized request for a notification addressed to a single recipient.
type CreateRequest struct {
	RecipientID    string         `json:"recipient_id"`
	Message        string         `json:"message"`
	Classification string         `json:"classification"`
	TargetUserType model.UserType `json:"target_user_type"`
	Sender         *model.Sender  `json:"sender"`
}

// Create is a message handler for direct notification requests.
type Create struct {
	creator Creator
}

// NewCreate returns a new direct notification handler.
func NewCreate(creator Creator) *Create {
	return &Create{creator: creator}
}

// HandleMessage handles a single AMQP delivery.
func (h *Create) HandleMessage(ctx context.Context, delivery amqp.Delivery) error {
	var request CreateRequest
	if err := parseBody(delivery, &request); err != nil {
		return err
	}

	id, err := h.creator.Create(ctx, notify.Direct{
		RecipientID:    request.RecipientID,
		Message:        request.Message,
		Sender:         request.Sender,
		Classification: request.Classification,
		TargetUserType: request.TargetUserType,
	})
	if err != nil {
		return classify(err)
	}

	log.Debugf("created notification %s for %s", id, request.RecipientID)
	return nil
}

// DepartmentRequest represents a deserialized request for a notification shared by the heads of a department. The
// payload's fields depend on the classification.
type DepartmentRequest struct {
	Department     string          `json:"department"`
	Classification string          `json:"classification"`
	Payload        json.RawMessage `json:"payload"`
	Sender         *model.Sender   `json:"sender"`
}

// CreateDepartment is a message handler for department notification requests.
type CreateDepartment struct {
	creator Creator
}

// NewCreateDepartment returns a new department notification handler.
func NewCreateDepartment(creator Creator) *CreateDepartment {
	return &CreateDepartment{creator: creator}
}

// HandleMessage handles a single AMQP delivery.
func (h *CreateDepartment) HandleMessage(ctx context.Context, delivery amqp.Delivery) error {
	var request DepartmentRequest
	if err := parseBody(delivery, &request); err != nil {
		return err
	}

	payload, err := notify.DecodeDepartmentPayload(request.Classification, request.Payload)
	if err != nil {
		return classify(err)
	}

	id, err := h.creator.CreateForDepartment(ctx, request.Department, request.Classification, payload, request.Sender)
	if err != nil {
		return classify(err)
	}

	log.Debugf("created %s notification %s for department %s", request.Classification, id, request.Department)
	return nil
}
