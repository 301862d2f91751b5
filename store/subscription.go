package store

import (
	"sync"

	"github.com/sekolahku/notification-engine/model"
)

// Subscription tracks a single subscriber. Snapshots carry a sequence number and only the newest snapshot offered
// so far is ever delivered, so the last update a subscriber receives is the latest state. The update function is
// never called with the subscription's lock held, which lets it write to the store that is pushing to it.
type Subscription struct {
	Index Index
	Value string

	mu         sync.Mutex
	idle       *sync.Cond
	closed     bool
	delivering bool
	lastSeq    uint64
	pending    []model.Notification
	hasPending bool
	fn         UpdateFunc
}

// NewSubscription returns a new open subscription.
func NewSubscription(index Index, value string, fn UpdateFunc) *Subscription {
	s := &Subscription{Index: index, Value: value, fn: fn}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Wants returns true if a change to the notification concerns this subscription.
func (s *Subscription) Wants(n *model.Notification) bool {
	return s.Index.Matches(n, s.Value)
}

// Deliver offers a snapshot taken at sequence number seq. Snapshots older than one already offered are dropped. If
// another call is already running the update function, whether on another goroutine or further up this one's stack,
// the snapshot is left for that call to deliver and Deliver returns right away. It returns false if the snapshot was
// dropped because it was stale or the subscription is closed.
func (s *Subscription) Deliver(seq uint64, notifications []model.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq <= s.lastSeq {
		return false
	}
	s.lastSeq = seq
	s.pending = notifications
	s.hasPending = true

	if s.delivering {
		return true
	}

	s.delivering = true
	for s.hasPending && !s.closed {
		snapshot := s.pending
		s.pending, s.hasPending = nil, false

		s.mu.Unlock()
		s.fn(snapshot)
		s.mu.Lock()
	}
	s.delivering = false
	s.idle.Broadcast()

	return true
}

// Close closes the subscription, waiting for a delivery in progress on another goroutine to finish. It must not be
// called from the update function.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.pending, s.hasPending = nil, false
	for s.delivering {
		s.idle.Wait()
	}
}

// Closed returns true if the subscription has been closed.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
