package common

import (
	"time"

	"github.com/mcnijman/go-emailaddress"
	"github.com/sirupsen/logrus"
)

// Log is the base log entry used throughout the service.
var Log = logrus.WithFields(logrus.Fields{
	"service": "notification-engine",
	"art-id":  "notification-engine",
	"group":   "org.sekolahku",
})

// AMQPSettings represents the settings that we require in order to connect to the AMQP exchange.
type AMQPSettings struct {
	URI          string
	ExchangeName string
	ExchangeType string
	QueueName    string
	Prefetch     int
}

// ListenerSettings represents the settings used for the database change listener.
type ListenerSettings struct {
	Channel      string
	MinReconnect time.Duration
	MaxReconnect time.Duration
}

// ValidateEmailAddress returns an error if the format of an email address is invalid.
func ValidateEmailAddress(emailAddress string) error {
	_, err := emailaddress.Parse(emailAddress)
	return err
}
