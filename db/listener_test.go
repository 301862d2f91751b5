package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/store"
)

type fakeListener struct {
	ch chan *pq.Notification
}

func newFakeListener() *fakeListener {
	return &fakeListener{ch: make(chan *pq.Notification)}
}

func (l *fakeListener) NotificationChannel() <-chan *pq.Notification {
	return l.ch
}

func (l *fakeListener) Ping() error {
	return nil
}

const recipientQuery = "SELECT id, .* FROM notifications WHERE recipient_id = \\$1"

func waitFor(t *testing.T, updates <-chan []model.Notification) []model.Notification {
	select {
	case u := <-updates:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a subscription update")
		return nil
	}
}

func TestSubscribe(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "unable to open the mock database connection")
	defer db.Close()

	// The initial snapshot and one refresh.
	mock.ExpectQuery(recipientQuery).WithArgs("S123").WillReturnRows(notificationRows())
	mock.ExpectQuery(recipientQuery).WithArgs("S123").WillReturnRows(
		notificationRows().AddRow("n1", "S123", "Grade posted", "general", nil, nil, nil, nil, nil, false, testTime, nil),
	)

	s := NewStore(db)
	updates := make(chan []model.Notification, 4)
	unsubscribe, err := s.Subscribe(context.Background(), store.IndexRecipient, "S123", func(n []model.Notification) {
		updates <- n
	})
	require.NoError(t, err)
	assert.Empty(waitFor(t, updates))

	ctx, cancel := context.WithCancel(context.Background())
	listener := newFakeListener()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, listener) }()

	// A change for someone else doesn't trigger a refresh.
	listener.ch <- &pq.Notification{Channel: "notifications", Extra: `{"recipient_id":"S999","target_user_type":null}`}
	listener.ch <- &pq.Notification{Channel: "notifications", Extra: `{"recipient_id":"S123","target_user_type":null}`}

	notifications := waitFor(t, updates)
	if assert.Len(notifications, 1) {
		assert.Equal("Grade posted", notifications[0].Message)
	}

	// Nothing is delivered after unsubscribing, not even on a reconnect.
	unsubscribe()
	listener.ch <- nil

	cancel()
	assert.ErrorIs(<-done, context.Canceled)
	assert.Empty(updates)

	// Verify that all mock expectations were met.
	err = mock.ExpectationsWereMet()
	assert.NoError(err, "not all mock expectations were met")
}

func TestRunRefreshesEverythingOnReconnect(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "unable to open the mock database connection")
	defer db.Close()

	typeQuery := "SELECT id, .* FROM notifications WHERE target_user_type = \\$1"
	mock.ExpectQuery(typeQuery).WithArgs("department-head").WillReturnRows(notificationRows())
	mock.ExpectQuery(typeQuery).WithArgs("department-head").WillReturnRows(notificationRows())
	mock.ExpectQuery(typeQuery).WithArgs("department-head").WillReturnRows(notificationRows())

	s := NewStore(db)
	updates := make(chan []model.Notification, 4)
	unsubscribe, err := s.Subscribe(context.Background(), store.IndexTargetUserType, "department-head",
		func(n []model.Notification) { updates <- n })
	require.NoError(t, err)
	defer unsubscribe()
	waitFor(t, updates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener := newFakeListener()
	go func() { _ = s.Run(ctx, listener) }()

	// A reconnect and an unparseable payload both refresh every subscription.
	listener.ch <- nil
	waitFor(t, updates)
	listener.ch <- &pq.Notification{Channel: "notifications", Extra: "not json"}
	waitFor(t, updates)

	err = mock.ExpectationsWereMet()
	assert.NoError(err, "not all mock expectations were met")
}

func TestRunStopsWhenListenerCloses(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err, "unable to open the mock database connection")
	defer db.Close()

	listener := newFakeListener()
	close(listener.ch)
	assert.Error(t, NewStore(db).Run(context.Background(), listener))
}
