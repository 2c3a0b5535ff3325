package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/alloci/internal/model"
)

// Register creates an account.
func (c *Client) Register(ctx context.Context, in model.RegisterInput) (*model.User, error) {
	var u model.User
	if err := c.post(ctx, "/auth/register", in, &u); err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}
	return &u, nil
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := c.get(ctx, "/users/"+url.PathEscape(id), nil, &u); err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return &u, nil
}

// UpdateUser patches a user's profile and returns the server's view of it.
func (c *Client) UpdateUser(ctx context.Context, id string, in model.ProfileUpdate) (*model.User, error) {
	var u model.User
	if err := c.patch(ctx, "/users/"+url.PathEscape(id), in, &u); err != nil {
		return nil, fmt.Errorf("updating user %s: %w", id, err)
	}
	return &u, nil
}
