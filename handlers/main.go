package handlers

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/sekolahku/notification-engine/common"
	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/notify"
)

var log = common.Log.WithFields(logrus.Fields{"pkg": "handlers"})

// The routing keys that requests are published with.
const (
	CreateKey           = "notifications.create"
	CreateDepartmentKey = "notifications.create.department"
	BroadcastKey        = "notifications.broadcast"
	ReadKey             = "notifications.read"
	ReadAllKey          = "notifications.read.all"
	DeleteKey           = "notifications.delete"
	DeleteAllKey        = "notifications.delete.all"
)

// MessageHandler describes the interface used to handle AMQP messages. The error returned is either a
// RecoverableError or an UnrecoverableError.
type MessageHandler interface {
	HandleMessage(ctx context.Context, delivery amqp.Delivery) error
}

// Creator stores notifications for single recipients and departments.
type Creator interface {
	Create(ctx context.Context, d notify.Direct) (string, error)
	CreateForDepartment(
		ctx context.Context,
		department, classification string,
		payload notify.Payload,
		sender *model.Sender,
	) (string, error)
}

// Broadcaster fans a notification out to an audience.
type Broadcaster interface {
	Broadcast(
		ctx context.Context,
		audience notify.Audience,
		classification, action string,
		payload notify.Payload,
		sender *model.Sender,
	) (notify.Result, error)
}

// ReadStateManager marks notifications read and deletes them.
type ReadStateManager interface {
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, viewer model.Viewer) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, viewerID string) (int64, error)
}

// InitMessageHandlers returns a map from routing key to message handler.
func InitMessageHandlers(creator Creator, broadcaster Broadcaster, readState ReadStateManager) map[string]MessageHandler {
	return map[string]MessageHandler{
		CreateKey:           NewCreate(creator),
		CreateDepartmentKey: NewCreateDepartment(creator),
		BroadcastKey:        NewBroadcast(broadcaster),
		ReadKey:             NewRead(readState),
		ReadAllKey:          NewReadAll(readState),
		DeleteKey:           NewDelete(readState),
		DeleteAllKey:        NewDeleteAll(readState),
	}
}

// parseBody decodes the JSON body of a delivery.
func parseBody(delivery amqp.Delivery, v interface{}) error {
	if err := json.Unmarshal(delivery.Body, v); err != nil {
		return NewUnrecoverableError("unable to parse message body: %s", err.Error())
	}
	return nil
}
