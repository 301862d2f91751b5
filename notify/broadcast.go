package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sekolahku/notification-engine/model"
)

// DefaultBroadcastConcurrency is the number of recipients a broadcast writes to at the same time.
const DefaultBroadcastConcurrency = 16

// Result summarizes a broadcast. Failures maps each recipient whose notification couldn't be stored to the error.
type Result struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Failures   map[string]error `json:"-"`
}

// Orchestrator fans a single message out to every member of an audience.
type Orchestrator struct {
	producer    *Producer
	resolver    *Resolver
	concurrency int
}

// NewOrchestrator returns an orchestrator. A concurrency below one uses DefaultBroadcastConcurrency.
func NewOrchestrator(producer *Producer, resolver *Resolver, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = DefaultBroadcastConcurrency
	}
	return &Orchestrator{producer: producer, resolver: resolver, concurrency: concurrency}
}

// Broadcast renders the message for the action, resolves the audience, and stores one notification per recipient.
// Failures for individual recipients are counted in the result and never stop the other recipients. An error is
// returned only for an invalid payload or when the audience can't be resolved, and in both cases nothing is sent.
func (o *Orchestrator) Broadcast(
	ctx context.Context,
	audience Audience,
	classification, action string,
	payload Payload,
	sender *model.Sender,
) (Result, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "notify.broadcast",
		trace.WithAttributes(
			attribute.String("notify.audience", string(audience.UserType)),
			attribute.String("notify.action", action),
		))
	defer span.End()

	message, err := renderBroadcastMessage(audience, action, payload)
	if err != nil {
		return Result{}, err
	}
	if classification == "" {
		classification = model.ClassificationGeneral
	}

	recipients, err := o.resolver.Resolve(ctx, audience)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("notify.recipients", len(recipients)))

	result := Result{Total: len(recipients), Failures: make(map[string]error)}
	if len(recipients) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)

	for _, recipient := range recipients {
		recipient := recipient
		g.Go(func() error {
			notification := &model.Notification{
				RecipientID:    recipient,
				Message:        message,
				Classification: classification,
				TargetUserType: audience.UserType,
				Sender:         sender,
			}
			if audience.UserType == model.UserTypeDepartmentHead {
				notification.TargetDepartment = audience.Department
			}

			_, err := o.producer.insert(ctx, notification)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures[recipient] = err
				return nil
			}
			result.Successful++
			return nil
		})
	}

	// Every task returns nil so that one recipient's failure never cancels the others.
	_ = g.Wait()

	log.WithFields(logrus.Fields{
		"audience":   audience.UserType,
		"department": audience.Department,
		"action":     action,
		"total":      result.Total,
		"failed":     result.Failed,
	}).Info("broadcast complete")

	return result, nil
}
