package api

import (
	"context"
	"fmt"
	"net/http"

	"campusmarket/module/market/model"
)

func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool) ([]model.Notification, error) {
	var out []model.Notification
	path := fmt.Sprintf("/notifications/?unread_only=%t", unreadOnly)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UnreadNotificationCount(ctx context.Context) (int, error) {
	var out struct {
		UnreadCount int `json:"unread_count"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	path := fmt.Sprintf("/notifications/%d/read", notificationID)
	_, err := c.do(ctx, http.MethodPut, path, nil, nil)
	return err
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPut, "/notifications/read-all", nil, nil)
	return err
}

func (c *Client) DeleteNotification(ctx context.Context, notificationID int64) error {
	path := fmt.Sprintf("/notifications/%d", notificationID)
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}
