package notify

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/store"
)

// ReadState marks notifications read and deletes them. Store failures are returned as DeliveryErrors without
// retrying.
type ReadState struct {
	store store.Store
	now   func() time.Time
}

// NewReadState returns a read-state manager for the given store.
func NewReadState(s store.Store) *ReadState {
	return &ReadState{store: s, now: time.Now}
}

// MarkRead marks a single notification read. Marking a notification that's already read, or that doesn't exist,
// changes nothing.
func (r *ReadState) MarkRead(ctx context.Context, id string) error {
	if _, err := r.store.MarkRead(ctx, []string{id}, r.now()); err != nil {
		return NewDeliveryError(errors.Wrapf(err, "unable to mark notification %s read", id), 1)
	}
	return nil
}

// MarkAllRead marks every unread notification visible to the viewer read in a single batch and returns the number
// of notifications changed. Visibility is decided by IsVisible, the same filter the read stream uses.
func (r *ReadState) MarkAllRead(ctx context.Context, viewer model.Viewer) (int64, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "notify.mark_all_read",
		trace.WithAttributes(attribute.String("notify.viewer_role", string(viewer.Role))))
	defer span.End()

	index, value := scopeFor(viewer)
	notifications, err := r.store.Query(ctx, index, value)
	if err != nil {
		return 0, NewDeliveryError(errors.Wrap(err, "unable to list notifications to mark read"), 1)
	}

	var ids []string
	for i := range notifications {
		n := &notifications[i]
		if !n.Read && IsVisible(n, viewer) {
			ids = append(ids, n.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	changed, err := r.store.MarkRead(ctx, ids, r.now())
	if err != nil {
		return 0, NewDeliveryError(errors.Wrap(err, "unable to mark notifications read"), 1)
	}

	log.WithFields(logrus.Fields{
		"viewer": viewer.ID,
		"role":   viewer.Role,
		"marked": changed,
	}).Debug("marked notifications read")

	return changed, nil
}

// Delete removes a single notification.
func (r *ReadState) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return NewDeliveryError(errors.Wrapf(err, "unable to delete notification %s", id), 1)
	}
	return nil
}

// DeleteAll removes every notification addressed directly to the viewer. Shared department and administrator
// notifications are not affected, even if the viewer can see them.
func (r *ReadState) DeleteAll(ctx context.Context, viewerID string) (int64, error) {
	if viewerID == "" {
		return 0, NewValidationError("a viewer ID is required")
	}
	removed, err := r.store.DeleteByRecipient(ctx, viewerID)
	if err != nil {
		return 0, NewDeliveryError(errors.Wrapf(err, "unable to delete notifications for %s", viewerID), 1)
	}
	return removed, nil
}
