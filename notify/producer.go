package notify

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sekolahku/notification-engine/common"
	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/store"
)

const otelName = "github.com/sekolahku/notification-engine/notify"

var log = common.Log.WithFields(logrus.Fields{"pkg": "notify"})

// Default retry settings for inserts.
const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = time.Second
)

// Sleeper waits for the given duration or until the context is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the Sleeper used outside of tests.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Producer creates notifications, retrying failed inserts with exponential backoff.
type Producer struct {
	store       store.Store
	maxRetries  int
	backoffBase time.Duration
	sleep       Sleeper
}

// ProducerOption configures a Producer.
type ProducerOption func(*Producer)

// WithMaxRetries sets the total number of insert attempts. Values below one are ignored.
func WithMaxRetries(n int) ProducerOption {
	return func(p *Producer) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// WithBackoffBase sets the delay after the first failed attempt. Each later delay doubles.
func WithBackoffBase(d time.Duration) ProducerOption {
	return func(p *Producer) {
		if d > 0 {
			p.backoffBase = d
		}
	}
}

// WithSleeper replaces the function used to wait between attempts.
func WithSleeper(sleep Sleeper) ProducerOption {
	return func(p *Producer) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// NewProducer returns a producer that writes to the given store.
func NewProducer(s store.Store, opts ...ProducerOption) *Producer {
	p := &Producer{
		store:       s,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		sleep:       SleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Backoff returns the delay that follows the given failed attempt: base, 2*base, 4*base, ...
func (p *Producer) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return p.backoffBase * time.Duration(1<<uint(attempt-1))
}

// Direct describes a notification addressed to a single recipient.
type Direct struct {
	RecipientID    string
	Message        string
	Sender         *model.Sender
	Classification string
	TargetUserType model.UserType
}

// Create stores a notification for a single recipient and returns its ID. The classification defaults to general.
func (p *Producer) Create(ctx context.Context, d Direct) (string, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "notify.create",
		trace.WithAttributes(attribute.String("notify.recipient", d.RecipientID)))
	defer span.End()

	if strings.TrimSpace(d.RecipientID) == "" {
		return "", NewValidationError("a recipient ID is required")
	}
	if strings.TrimSpace(d.Message) == "" {
		return "", NewValidationError("a message is required")
	}

	classification := d.Classification
	if classification == "" {
		classification = model.ClassificationGeneral
	}

	notification := &model.Notification{
		RecipientID:    d.RecipientID,
		Message:        d.Message,
		Classification: classification,
		TargetUserType: d.TargetUserType,
		Sender:         d.Sender,
	}
	id, err := p.insert(ctx, notification)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return id, nil
}

// CreateForDepartment stores a single notification shared by the heads of a department. The message is rendered
// from the template for the classification; a payload that doesn't satisfy the template fails with a
// ValidationError before anything is written.
func (p *Producer) CreateForDepartment(
	ctx context.Context,
	department, classification string,
	payload Payload,
	sender *model.Sender,
) (string, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "notify.create_for_department",
		trace.WithAttributes(
			attribute.String("notify.department", department),
			attribute.String("notify.classification", classification),
		))
	defer span.End()

	message, err := renderDepartmentMessage(department, classification, payload)
	if err != nil {
		return "", err
	}

	notification := &model.Notification{
		Message:          message,
		Classification:   classification,
		TargetUserType:   model.UserTypeDepartmentHead,
		TargetDepartment: department,
		Sender:           sender,
	}
	id, err := p.insert(ctx, notification)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return id, nil
}

// insert attempts the insert up to maxRetries times, sleeping between attempts.
func (p *Producer) insert(ctx context.Context, notification *model.Notification) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		candidate := *notification
		id, err := p.store.Insert(ctx, &candidate)
		if err == nil {
			*notification = candidate
			log.Debugf("stored notification %s on attempt %d", id, attempt)
			return id, nil
		}
		lastErr = err

		log.WithFields(logrus.Fields{
			"attempt":   attempt,
			"recipient": notification.RecipientID,
		}).Warnf("unable to store notification: %s", err)

		if attempt == p.maxRetries {
			break
		}
		if err := p.sleep(ctx, p.Backoff(attempt)); err != nil {
			return "", NewDeliveryError(err, attempt)
		}
	}

	return "", NewDeliveryError(lastErr, p.maxRetries)
}
