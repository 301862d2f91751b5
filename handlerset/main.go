package handlerset

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/sekolahku/notification-engine/common"
	"github.com/sekolahku/notification-engine/handlers"
)

var log = common.Log.WithFields(logrus.Fields{"pkg": "handlerset"})

// HandlerSet represents a set of AMQP message handlers consuming from a single queue.
type HandlerSet struct {
	settings   *common.AMQPSettings
	conn       *amqp.Connection
	channel    *amqp.Channel
	handlerFor map[string]handlers.MessageHandler
}

// New creates a new handler set. The exchange and queue are declared and the queue is bound to the routing key of
// every handler.
func New(settings *common.AMQPSettings, handlerFor map[string]handlers.MessageHandler) (*HandlerSet, error) {
	wrapMsg := "unable to create the message handler set"

	// Connect to the AMQP broker.
	conn, err := amqp.Dial(settings.URI)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, wrapMsg)
	}

	handlerSet := &HandlerSet{
		settings:   settings,
		conn:       conn,
		channel:    channel,
		handlerFor: handlerFor,
	}
	if err := handlerSet.declare(); err != nil {
		handlerSet.Close()
		return nil, errors.Wrap(err, wrapMsg)
	}

	return handlerSet, nil
}

// RoutingKeys returns the routing keys that the handler set has handlers for, in sorted order.
func (hs *HandlerSet) RoutingKeys() []string {
	keys := make([]string, 0, len(hs.handlerFor))
	for key := range hs.handlerFor {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (hs *HandlerSet) declare() error {
	s := hs.settings

	err := hs.channel.ExchangeDeclare(s.ExchangeName, s.ExchangeType, true, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "unable to declare exchange %s", s.ExchangeName)
	}

	_, err = hs.channel.QueueDeclare(s.QueueName, true, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "unable to declare queue %s", s.QueueName)
	}

	for _, key := range hs.RoutingKeys() {
		err = hs.channel.QueueBind(s.QueueName, key, s.ExchangeName, false, nil)
		if err != nil {
			return errors.Wrapf(err, "unable to bind queue %s to %s", s.QueueName, key)
		}
	}

	if s.Prefetch > 0 {
		if err = hs.channel.Qos(s.Prefetch, 0, false); err != nil {
			return errors.Wrap(err, "unable to set the prefetch count")
		}
	}

	return nil
}

// Listen consumes deliveries until the context is done or the broker closes the channel.
func (hs *HandlerSet) Listen(ctx context.Context) error {
	deliveries, err := hs.channel.Consume(hs.settings.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "unable to consume messages")
	}
	log.Infof("consuming from %s", hs.settings.QueueName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("the AMQP channel was closed")
			}
			hs.Dispatch(ctx, delivery)
		}
	}
}

// Dispatch passes a delivery to the handler for its routing key and settles it. Successful deliveries are
// acknowledged, deliveries that failed with a RecoverableError are requeued, and every other delivery is rejected.
func (hs *HandlerSet) Dispatch(ctx context.Context, delivery amqp.Delivery) {
	logger := log.WithFields(logrus.Fields{
		"routing-key":  delivery.RoutingKey,
		"delivery-tag": delivery.DeliveryTag,
	})

	handler, ok := hs.handlerFor[delivery.RoutingKey]
	if !ok {
		logger.Error("no handler for routing key")
		if err := delivery.Reject(false); err != nil {
			logger.Errorf("unable to reject message: %s", err)
		}
		return
	}

	err := handler.HandleMessage(ctx, delivery)
	switch err.(type) {
	case nil:
		if err := delivery.Ack(false); err != nil {
			logger.Errorf("unable to acknowledge message: %s", err)
		}
	case handlers.RecoverableError:
		logger.Warnf("requeueing message: %s", err)
		if err := delivery.Nack(false, true); err != nil {
			logger.Errorf("unable to requeue message: %s", err)
		}
	default:
		logger.Errorf("rejecting message: %s", err)
		if err := delivery.Reject(false); err != nil {
			logger.Errorf("unable to reject message: %s", err)
		}
	}
}

// Close closes a message handler set.
func (hs *HandlerSet) Close() {
	if hs.channel != nil {
		hs.channel.Close()
	}
	if hs.conn != nil {
		hs.conn.Close()
	}
}
