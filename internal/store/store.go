package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has no stored value.
var ErrNotFound = errors.New("key not found")

// Well-known keys. Each key is owned by exactly one component.
const (
	KeyNotificationHistory = "notif_history_list_v1"
	KeyRecentPrompts       = "ai_recent_prompts"
	KeyAuthUser            = "auth_user"
)

// Store is the durable local key-value store. Values are opaque strings,
// usually serialized JSON. Writes replace the whole value; the last
// writer wins.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// IsNotFound reports whether err (or any error in its chain) is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
