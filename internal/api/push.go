package api

import (
	"context"
	"fmt"

	"github.com/nhle/alloci/internal/model"
)

// RegisterPushToken associates a device push token with a user and city.
func (c *Client) RegisterPushToken(ctx context.Context, reg model.PushRegistration) error {
	if err := c.post(ctx, "/notifications/register", reg, nil); err != nil {
		return fmt.Errorf("registering push token: %w", err)
	}
	return nil
}
