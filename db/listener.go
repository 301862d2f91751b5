package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/store"
)

// pingInterval is how long Run waits without a change notification before checking the listener's connection.
const pingInterval = 90 * time.Second

// Listener is the part of *pq.Listener that Run needs. A nil notification on the channel means that the connection
// was re-established and that notifications may have been missed.
type Listener interface {
	NotificationChannel() <-chan *pq.Notification
	Ping() error
}

// change is the payload the notifications table trigger sends for every inserted, updated or deleted row.
type change struct {
	RecipientID    string         `json:"recipient_id"`
	TargetUserType model.UserType `json:"target_user_type"`
}

// Subscribe delivers the current selection right away and again every time Run receives a change to it.
func (s *Store) Subscribe(
	ctx context.Context,
	index store.Index,
	value string,
	fn store.UpdateFunc,
) (store.Unsubscribe, error) {
	// Register before taking the initial snapshot so that no change in between goes unnoticed.
	sub := store.NewSubscription(index, value, fn)
	s.subsMu.Lock()
	s.subs[sub] = struct{}{}
	s.subsMu.Unlock()

	seq, initial, err := s.snapshot(ctx, index, value)
	if err != nil {
		s.subsMu.Lock()
		delete(s.subs, sub)
		s.subsMu.Unlock()
		sub.Close()
		return nil, errors.Wrap(err, "unable to subscribe to notifications")
	}
	sub.Deliver(seq, initial)

	return func() {
		s.subsMu.Lock()
		delete(s.subs, sub)
		s.subsMu.Unlock()
		sub.Close()
	}, nil
}

// Run pushes fresh snapshots to subscribers as change notifications arrive from the listener. It returns when the
// context is done or the listener's channel is closed.
func (s *Store) Run(ctx context.Context, listener Listener) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n, ok := <-listener.NotificationChannel():
			if !ok {
				return errors.New("the database listener was closed")
			}
			ticker.Reset(pingInterval)

			// Anything may have changed while the listener was reconnecting.
			if n == nil {
				log.Info("database listener reconnected, refreshing all subscriptions")
				s.refresh(ctx, nil)
				continue
			}

			var c change
			if err := json.Unmarshal([]byte(n.Extra), &c); err != nil {
				log.Warnf("unable to parse change notification %q, refreshing all subscriptions: %s", n.Extra, err)
				s.refresh(ctx, nil)
				continue
			}
			s.refresh(ctx, &model.Notification{RecipientID: c.RecipientID, TargetUserType: c.TargetUserType})

		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				log.Warnf("database listener ping failed: %s", err)
			}
		}
	}
}

// refresh re-queries and delivers every subscription concerned by the changed notification, or every subscription
// if changed is nil.
func (s *Store) refresh(ctx context.Context, changed *model.Notification) {
	s.subsMu.Lock()
	var targets []*store.Subscription
	for sub := range s.subs {
		if changed == nil || sub.Wants(changed) {
			targets = append(targets, sub)
		}
	}
	s.subsMu.Unlock()

	for _, sub := range targets {
		if sub.Closed() {
			continue
		}
		seq, snapshot, err := s.snapshot(ctx, sub.Index, sub.Value)
		if err != nil {
			log.Errorf("unable to refresh subscription: %s", err)
			continue
		}
		sub.Deliver(seq, snapshot)
	}
}

// snapshot queries the selection for a subscription. The sequence number is taken before the query starts, so a
// snapshot with a higher number never started from an older state.
func (s *Store) snapshot(ctx context.Context, index store.Index, value string) (uint64, []model.Notification, error) {
	seq := s.seq.Add(1)
	notifications, err := s.Query(ctx, index, value)
	return seq, notifications, err
}
