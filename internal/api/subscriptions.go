package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/alloci/internal/model"
)

// CheckSubscription reports whether userID holds an active premium plan.
func (c *Client) CheckSubscription(ctx context.Context, userID string) (*model.SubscriptionStatus, error) {
	q := url.Values{"user_id": {userID}}

	var st model.SubscriptionStatus
	if err := c.get(ctx, "/subscriptions/check", q, &st); err != nil {
		return nil, fmt.Errorf("checking subscription: %w", err)
	}
	return &st, nil
}

// InitiatePayment starts a premium payment with provider. A zero amount
// uses the default premium price.
func (c *Client) InitiatePayment(
	ctx context.Context,
	provider string,
	req model.PaymentRequest,
) (*model.PaymentInitiation, error) {
	if req.AmountFCFA <= 0 {
		req.AmountFCFA = model.DefaultPremiumAmountFCFA
	}

	var out model.PaymentInitiation
	path := "/payments/" + url.PathEscape(provider) + "/initiate"
	if err := c.post(ctx, path, req, &out); err != nil {
		return nil, fmt.Errorf("initiating %s payment: %w", provider, err)
	}
	return &out, nil
}

type validationResult struct {
	Status string `json:"status"`
}

// ValidatePayment confirms or cancels a transaction and returns the
// resulting subscription status ("paid" or "failed").
func (c *Client) ValidatePayment(
	ctx context.Context,
	provider string,
	v model.PaymentValidation,
) (string, error) {
	var out validationResult
	path := "/payments/" + url.PathEscape(provider) + "/validate"
	if err := c.post(ctx, path, v, &out); err != nil {
		return "", fmt.Errorf("validating %s payment: %w", provider, err)
	}
	return out.Status, nil
}

// PaymentHistory lists userID's payments, optionally filtered by status.
func (c *Client) PaymentHistory(ctx context.Context, userID, status string) ([]model.Payment, error) {
	q := url.Values{"user_id": {userID}}
	if status != "" {
		q.Set("status", status)
	}

	var out []model.Payment
	if err := c.get(ctx, "/payments/history", q, &out); err != nil {
		return nil, fmt.Errorf("listing payment history: %w", err)
	}
	return out, nil
}
