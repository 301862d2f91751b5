package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/store"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var notificationColumns = []string{
	"id",
	"recipient_id",
	"message",
	"classification",
	"target_user_type",
	"target_department",
	"sender_name",
	"sender_kind",
	"sender_id",
	"read",
	"created_at",
	"read_at",
}

// Store is a store.Store backed by the notifications table. Changes are pushed to subscribers once Run is
// receiving the table's change notifications.
type Store struct {
	db *sql.DB

	subsMu sync.Mutex
	subs   map[*store.Subscription]struct{}
	seq    atomic.Uint64
}

// NewStore returns a store that uses the given database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:   db,
		subs: make(map[*store.Subscription]struct{}),
	}
}

// Insert saves a single notification. The ID and creation timestamp are generated by the database.
func (s *Store) Insert(ctx context.Context, notification *model.Notification) (string, error) {
	wrapMsg := "unable to save notification"

	var senderName, senderKind, senderID string
	if notification.Sender != nil {
		senderName = notification.Sender.Name
		senderKind = string(notification.Sender.Kind)
		senderID = notification.Sender.ID
	}

	// Build the statement to insert the notification.
	statement, args, err := psql.
		Insert("notifications").
		Columns(
			"recipient_id",
			"message",
			"classification",
			"target_user_type",
			"target_department",
			"sender_name",
			"sender_kind",
			"sender_id").
		Values(
			nullString(notification.RecipientID),
			notification.Message,
			nullString(notification.Classification),
			nullString(string(notification.TargetUserType)),
			nullString(notification.TargetDepartment),
			nullString(senderName),
			nullString(senderKind),
			nullString(senderID)).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return "", errors.Wrap(err, wrapMsg)
	}

	// Execute the insert statement, scanning the generated values into the notification.
	var id string
	var createdAt time.Time
	err = s.db.QueryRowContext(ctx, statement, args...).Scan(&id, &createdAt)
	if err != nil {
		return "", errors.Wrap(err, wrapMsg)
	}
	notification.ID = id
	notification.CreatedAt = createdAt

	return id, nil
}

// MarkRead marks the unread notifications among ids as read in a single statement.
func (s *Store) MarkRead(ctx context.Context, ids []string, at time.Time) (int64, error) {
	wrapMsg := "unable to mark notifications read"

	if len(ids) == 0 {
		return 0, nil
	}

	// Only unread notifications are updated so that the original read time is kept.
	statement, args, err := psql.
		Update("notifications").
		Set("read", true).
		Set("read_at", at).
		Where(sq.Eq{"id": ids}).
		Where(sq.Eq{"read": false}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	result, err := s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	return rowsAffected, nil
}

// Delete removes a single notification.
func (s *Store) Delete(ctx context.Context, id string) error {
	wrapMsg := fmt.Sprintf("unable to delete notification %s", id)

	statement, args, err := psql.
		Delete("notifications").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement and verify that the notification existed.
	result, err := s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}

	return nil
}

// DeleteByRecipient removes every notification addressed directly to the recipient.
func (s *Store) DeleteByRecipient(ctx context.Context, recipientID string) (int64, error) {
	wrapMsg := fmt.Sprintf("unable to delete notifications for %s", recipientID)

	statement, args, err := psql.
		Delete("notifications").
		Where(sq.Eq{"recipient_id": recipientID}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	result, err := s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	return rowsAffected, nil
}

// Query lists the notifications selected by the index, oldest first.
func (s *Store) Query(ctx context.Context, index store.Index, value string) ([]model.Notification, error) {
	wrapMsg := "unable to list notifications"

	query := psql.
		Select(notificationColumns...).
		From("notifications").
		OrderBy("created_at", "id")
	if index != store.IndexAll {
		query = query.Where(sq.Eq{string(index): value})
	}

	statement, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	result := make([]model.Notification, 0)
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		result = append(result, *notification)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return result, nil
}

func scanNotification(rows *sql.Rows) (*model.Notification, error) {
	var (
		n                                       model.Notification
		recipientID, classification, targetType sql.NullString
		targetDepartment                        sql.NullString
		senderName, senderKind, senderID        sql.NullString
		readAt                                  sql.NullTime
	)

	err := rows.Scan(
		&n.ID,
		&recipientID,
		&n.Message,
		&classification,
		&targetType,
		&targetDepartment,
		&senderName,
		&senderKind,
		&senderID,
		&n.Read,
		&n.CreatedAt,
		&readAt,
	)
	if err != nil {
		return nil, err
	}

	n.RecipientID = recipientID.String
	n.Classification = classification.String
	n.TargetUserType = model.UserType(targetType.String)
	n.TargetDepartment = targetDepartment.String
	if senderKind.Valid {
		n.Sender = &model.Sender{
			Name: senderName.String,
			Kind: model.SenderKind(senderKind.String),
			ID:   senderID.String,
		}
	}
	if n.Read && readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}

	return &n, nil
}
