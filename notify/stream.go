package notify

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/store"
)

// Subscribe streams the notifications visible to the viewer. The store is subscribed to the narrowest selection
// covering the viewer, and every push is filtered through IsVisible before fn receives the full visible set, newest
// first. fn is called once right away with the current set. The caller must call the returned function to release
// the subscription; fn is not called after it returns.
func Subscribe(
	ctx context.Context,
	s store.Store,
	viewer model.Viewer,
	fn func(visible []model.Notification),
) (store.Unsubscribe, error) {
	index, value := scopeFor(viewer)

	unsubscribe, err := s.Subscribe(ctx, index, value, func(notifications []model.Notification) {
		fn(Visible(notifications, viewer))
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to subscribe to notifications for %s %s", viewer.Role, viewer.ID)
	}

	return unsubscribe, nil
}
