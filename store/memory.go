package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sekolahku/notification-engine/model"
)

// Memory is an in-memory Store. Creation timestamps are strictly increasing. All methods are safe for concurrent use.
type Memory struct {
	mu            sync.RWMutex
	order         []string
	notifications map[string]model.Notification
	lastCreated   time.Time
	now           func() time.Time
	seq           atomic.Uint64

	subsMu sync.Mutex
	subs   map[*Subscription]struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		notifications: make(map[string]model.Notification),
		now:           time.Now,
		subs:          make(map[*Subscription]struct{}),
	}
}

func (m *Memory) Insert(ctx context.Context, notification *model.Notification) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	created := m.now()
	if !created.After(m.lastCreated) {
		created = m.lastCreated.Add(time.Nanosecond)
	}
	m.lastCreated = created

	stored := copyNotification(notification)
	stored.ID = uuid.New().String()
	stored.CreatedAt = created
	m.notifications[stored.ID] = stored
	m.order = append(m.order, stored.ID)
	m.mu.Unlock()

	notification.ID = stored.ID
	notification.CreatedAt = created
	m.publish([]model.Notification{stored})

	return stored.ID, nil
}

func (m *Memory) MarkRead(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var changed []model.Notification
	m.mu.Lock()
	for _, id := range ids {
		n, ok := m.notifications[id]
		if !ok || n.Read {
			continue
		}
		readAt := at
		n.Read = true
		n.ReadAt = &readAt
		m.notifications[id] = n
		changed = append(changed, n)
	}
	m.mu.Unlock()

	if len(changed) > 0 {
		m.publish(changed)
	}
	return int64(len(changed)), nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	n, ok := m.notifications[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.remove(id)
	m.mu.Unlock()

	m.publish([]model.Notification{n})
	return nil
}

func (m *Memory) DeleteByRecipient(ctx context.Context, recipientID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var removed []model.Notification
	m.mu.Lock()
	for _, id := range append([]string(nil), m.order...) {
		n := m.notifications[id]
		if n.RecipientID == recipientID {
			m.remove(id)
			removed = append(removed, n)
		}
	}
	m.mu.Unlock()

	if len(removed) > 0 {
		m.publish(removed)
	}
	return int64(len(removed)), nil
}

func (m *Memory) Query(ctx context.Context, index Index, value string) ([]model.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, result := m.snapshot(index, value)
	return result, nil
}

// snapshot returns the notifications selected by the index along with a sequence number. A snapshot with a higher
// sequence number never reflects an older state of the collection.
func (m *Memory) snapshot(index Index, value string) (uint64, []model.Notification) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seq := m.seq.Add(1)
	result := make([]model.Notification, 0)
	for _, id := range m.order {
		n := m.notifications[id]
		if index.Matches(&n, value) {
			result = append(result, copyNotification(&n))
		}
	}
	return seq, result
}

func (m *Memory) Subscribe(ctx context.Context, index Index, value string, fn UpdateFunc) (Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Register before taking the initial snapshot so that no change in between goes unnoticed.
	sub := NewSubscription(index, value, fn)
	m.subsMu.Lock()
	m.subs[sub] = struct{}{}
	m.subsMu.Unlock()

	sub.Deliver(m.snapshot(index, value))

	return func() {
		m.subsMu.Lock()
		delete(m.subs, sub)
		m.subsMu.Unlock()
		sub.Close()
	}, nil
}

// remove must be called with the write lock held.
func (m *Memory) remove(id string) {
	delete(m.notifications, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// publish pushes a fresh snapshot to every subscription concerned by at least one of the changed notifications.
func (m *Memory) publish(changed []model.Notification) {
	m.subsMu.Lock()
	var targets []*Subscription
	for sub := range m.subs {
		for i := range changed {
			if sub.Wants(&changed[i]) {
				targets = append(targets, sub)
				break
			}
		}
	}
	m.subsMu.Unlock()

	for _, sub := range targets {
		sub.Deliver(m.snapshot(sub.Index, sub.Value))
	}
}

func copyNotification(n *model.Notification) model.Notification {
	c := *n
	if n.Sender != nil {
		sender := *n.Sender
		c.Sender = &sender
	}
	if n.ReadAt != nil {
		readAt := *n.ReadAt
		c.ReadAt = &readAt
	}
	return c
}
