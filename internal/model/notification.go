package model

import (
	"encoding/json"
	"time"
)

// NotificationItem is one entry in the on-device notification center,
// created when a push arrives or when the user publishes an alert.
type NotificationItem struct {
	// ID is unique per item and assigned when the item is generated.
	ID string `json:"id"`

	// Title is the push title, if any.
	Title *string `json:"title,omitempty"`

	// Body is the push body text, if any.
	Body *string `json:"body,omitempty"`

	// Data is the opaque push payload.
	Data json.RawMessage `json:"data,omitempty"`

	// ReceivedAt is the receipt time in milliseconds since the Unix epoch.
	ReceivedAt int64 `json:"receivedAt"`
}

// ReceivedTime returns ReceivedAt as a time.Time.
func (n NotificationItem) ReceivedTime() time.Time {
	return time.UnixMilli(n.ReceivedAt)
}

// TitleText returns the title or an empty string.
func (n NotificationItem) TitleText() string {
	if n.Title == nil {
		return ""
	}
	return *n.Title
}

// BodyText returns the body or an empty string.
func (n NotificationItem) BodyText() string {
	if n.Body == nil {
		return ""
	}
	return *n.Body
}

// PushRegistration is the payload sent to register a device push token.
type PushRegistration struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id,omitempty"`
	Platform string `json:"platform"`
	City     string `json:"city,omitempty"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
