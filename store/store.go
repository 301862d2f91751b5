package store

import (
	"context"
	"errors"
	"time"

	"github.com/sekolahku/notification-engine/model"
)

// ErrNotFound is returned when a notification to be removed doesn't exist.
var ErrNotFound = errors.New("notification not found")

// Index names a field that stored notifications can be selected by.
type Index string

// The indexes supported by every store.
const (
	// IndexAll selects every notification in the collection. The index value is ignored.
	IndexAll            Index = ""
	IndexRecipient      Index = "recipient_id"
	IndexTargetUserType Index = "target_user_type"
)

// Matches returns true if the notification would be selected by the index and value.
func (i Index) Matches(n *model.Notification, value string) bool {
	switch i {
	case IndexRecipient:
		return n.RecipientID == value
	case IndexTargetUserType:
		return string(n.TargetUserType) == value
	default:
		return true
	}
}

// UpdateFunc receives the complete set of notifications matching a subscription every time that set changes. Calls
// for one subscription never overlap, and the last call always carries the latest set. It may write to the store.
type UpdateFunc func(notifications []model.Notification)

// Unsubscribe releases a subscription. No further updates are delivered once it returns. It must not be called
// from within the subscription's own UpdateFunc.
type Unsubscribe func()

// Store is the persistent notification collection used by the engine.
type Store interface {

	// Insert stores a new notification. The store assigns the ID and creation timestamp, which are written back into
	// the notification. A failed insert leaves nothing behind.
	Insert(ctx context.Context, notification *model.Notification) (string, error)

	// MarkRead marks the listed notifications as read at the given time in a single batch. Notifications that are
	// already read or that don't exist are left alone. The number of notifications changed is returned.
	MarkRead(ctx context.Context, ids []string, at time.Time) (int64, error)

	// Delete removes a single notification, returning ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// DeleteByRecipient removes every notification addressed to the recipient.
	DeleteByRecipient(ctx context.Context, recipientID string) (int64, error)

	// Query returns a snapshot of the notifications selected by the index and value.
	Query(ctx context.Context, index Index, value string) ([]model.Notification, error)

	// Subscribe delivers the notifications selected by the index and value immediately, and again after every change
	// to that selection, until the returned function is called.
	Subscribe(ctx context.Context, index Index, value string, fn UpdateFunc) (Unsubscribe, error)
}
