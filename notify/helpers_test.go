package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/store"
)

var errStoreUnavailable = errors.New("store unavailable")

// flakyStore wraps the memory store, failing inserts whenever failInsert returns an error. Attempts are counted per
// recipient.
type flakyStore struct {
	*store.Memory

	mu         sync.Mutex
	attempts   map[string]int
	failInsert func(n *model.Notification, attempt int) error
	failQuery  error
	failUpdate error
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Memory: store.NewMemory(), attempts: make(map[string]int)}
}

func (f *flakyStore) Insert(ctx context.Context, n *model.Notification) (string, error) {
	f.mu.Lock()
	f.attempts[n.RecipientID]++
	attempt := f.attempts[n.RecipientID]
	f.mu.Unlock()

	if f.failInsert != nil {
		if err := f.failInsert(n, attempt); err != nil {
			return "", err
		}
	}
	return f.Memory.Insert(ctx, n)
}

func (f *flakyStore) Query(ctx context.Context, index store.Index, value string) ([]model.Notification, error) {
	if f.failQuery != nil {
		return nil, f.failQuery
	}
	return f.Memory.Query(ctx, index, value)
}

func (f *flakyStore) MarkRead(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if f.failUpdate != nil {
		return 0, f.failUpdate
	}
	return f.Memory.MarkRead(ctx, ids, at)
}

func (f *flakyStore) attemptsFor(recipient string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[recipient]
}

// recordingSleeper records requested delays instead of waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func alwaysFail(*model.Notification, int) error {
	return errStoreUnavailable
}
