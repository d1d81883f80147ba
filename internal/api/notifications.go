package api

import (
	"context"
	"net/http"
	"net/url"
)

// Notifications lists the candidate's notifications, newest first.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var items []Notification
	if err := c.do(ctx, "notifications", http.MethodGet, "/api/notifications", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkNotificationRead flags one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, "notification_read", http.MethodPut, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}
