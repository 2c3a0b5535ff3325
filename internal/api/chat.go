package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nhle/alloci/internal/model"
)

const chatPath = "/ai/chat"

// ChatStream posts a streaming chat request and returns the raw response
// whatever its status. The caller must close the body.
func (c *Client) ChatStream(ctx context.Context, req model.ChatRequest) (*http.Response, error) {
	req.Stream = true

	httpReq, err := c.newRequest(ctx, http.MethodPost, chatPath, nil, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request POST %s: %w", chatPath, err)
	}
	return resp, nil
}

// ChatComplete posts a non-streaming chat request.
func (c *Client) ChatComplete(ctx context.Context, req model.ChatRequest) (*model.ChatCompletion, error) {
	req.Stream = false

	var out model.ChatCompletion
	if err := c.post(ctx, chatPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
