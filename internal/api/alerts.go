package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nhle/alloci/internal/model"
)

// AlertFilter narrows ListAlerts. Empty fields are not sent.
type AlertFilter struct {
	Status string
	Type   model.AlertType
}

// ListAlerts returns the alerts feed, newest first as served.
func (c *Client) ListAlerts(ctx context.Context, f AlertFilter) ([]model.Alert, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}

	var alerts []model.Alert
	if err := c.get(ctx, "/alerts", q, &alerts); err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	return alerts, nil
}

// CreateAlert publishes a new alert.
func (c *Client) CreateAlert(ctx context.Context, in model.NewAlert) (*model.Alert, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("creating alert: %w", err)
	}
	if in.Images == nil {
		in.Images = []string{}
	}

	var alert model.Alert
	if err := c.post(ctx, "/alerts", in, &alert); err != nil {
		return nil, fmt.Errorf("creating alert: %w", err)
	}
	return &alert, nil
}

// MarkAlertRead flags an alert as read for userID.
func (c *Client) MarkAlertRead(ctx context.Context, alertID, userID string) error {
	path := "/alerts/" + url.PathEscape(alertID) + "/read"
	body := map[string]string{"user_id": userID}
	if err := c.patch(ctx, path, body, nil); err != nil {
		return fmt.Errorf("marking alert %s read: %w", alertID, err)
	}
	return nil
}

// ResolveAlert closes an alert.
func (c *Client) ResolveAlert(ctx context.Context, alertID string) error {
	path := "/alerts/" + url.PathEscape(alertID) + "/resolve"
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("resolving alert %s: %w", alertID, err)
	}
	return nil
}

// ErrMissingCount is returned when the unread count response has no
// integer count.
var ErrMissingCount = errors.New("response has no count")

type unreadCount struct {
	Count *int `json:"count"`
}

// UnreadCount returns the number of alerts userID has not read. An empty
// userID asks for the anonymous count.
func (c *Client) UnreadCount(ctx context.Context, userID string) (int, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}

	var resp unreadCount
	if err := c.get(ctx, "/alerts/unread_count", q, &resp); err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	if resp.Count == nil {
		return 0, fmt.Errorf("fetching unread count: %w", ErrMissingCount)
	}
	return *resp.Count, nil
}
