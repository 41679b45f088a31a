package market

import (
	"context"
	"time"

	"campusmarket/logger"
	"campusmarket/module/market/model"
	"campusmarket/service/cache"
	"campusmarket/service/transport"
)

const KeyNotifications = "notifications"

// NotificationBackend is the REST slice the inbox consumes.
type NotificationBackend interface {
	ListNotifications(ctx context.Context, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID int64) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// Inbox keeps the notification list consistent between pushed
// `notification` events and the poll fallback, the same dual-path
// pattern the conversation view uses.
type Inbox struct {
	backend NotificationBackend
	cache   *cache.Cache
	offs    []func()
	stop    func()
}

func NewInbox(backend NotificationBackend, qc *cache.Cache) *Inbox {
	return &Inbox{backend: backend, cache: qc}
}

func (in *Inbox) Start(events Events, poll time.Duration) {
	if poll <= 0 {
		poll = 30 * time.Second
	}
	in.cache.Register(KeyNotifications, func(ctx context.Context) (any, error) {
		n, err := in.backend.ListNotifications(ctx, false)
		if err != nil {
			return nil, err
		}
		return n, nil
	})
	in.stop = in.cache.Poll(KeyNotifications, poll)
	in.offs = append(in.offs,
		events.On(transport.EventNotification, in.onNotification),
		events.On(transport.EventNotificationsRead, func(map[string]any) {
			in.cache.Invalidate(KeyNotifications)
		}),
	)
}

func (in *Inbox) Stop() {
	for _, off := range in.offs {
		off()
	}
	in.offs = nil
	if in.stop != nil {
		in.stop()
		in.stop = nil
	}
}

// Notifications returns the cached inbox, newest first.
func (in *Inbox) Notifications(ctx context.Context) ([]model.Notification, error) {
	v, err := in.cache.Get(ctx, KeyNotifications)
	if err != nil {
		return nil, err
	}
	return v.([]model.Notification), nil
}

// UnreadCount counts unread entries in the cached inbox.
func (in *Inbox) UnreadCount(ctx context.Context) (int, error) {
	list, err := in.Notifications(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, it := range list {
		if !it.IsRead {
			n++
		}
	}
	return n, nil
}

// MarkRead settles one notification and patches the cache in place.
func (in *Inbox) MarkRead(ctx context.Context, notificationID int64) error {
	if err := in.backend.MarkNotificationRead(ctx, notificationID); err != nil {
		return err
	}
	in.cache.SetData(KeyNotifications, func(old any) any {
		list, _ := old.([]model.Notification)
		out := append([]model.Notification(nil), list...)
		for i := range out {
			if out[i].ID == notificationID {
				out[i].IsRead = true
			}
		}
		return out
	})
	return nil
}

// MarkAllRead settles the whole inbox.
func (in *Inbox) MarkAllRead(ctx context.Context) error {
	if err := in.backend.MarkAllNotificationsRead(ctx); err != nil {
		return err
	}
	in.cache.SetData(KeyNotifications, func(old any) any {
		list, _ := old.([]model.Notification)
		out := append([]model.Notification(nil), list...)
		for i := range out {
			out[i].IsRead = true
		}
		return out
	})
	return nil
}

// onNotification prepends a pushed notification unless its id already
// landed via a refetch.
func (in *Inbox) onNotification(data map[string]any) {
	n, err := transport.DecodeNotification(data)
	if err != nil {
		logger.Warnf("[inbox] bad notification payload dropped: %v", err)
		return
	}
	if _, ok := in.cache.Data(KeyNotifications); !ok {
		return
	}
	in.cache.SetData(KeyNotifications, func(old any) any {
		list, _ := old.([]model.Notification)
		for _, it := range list {
			if it.ID == n.ID {
				return list
			}
		}
		return append([]model.Notification{*n}, list...)
	})
}
