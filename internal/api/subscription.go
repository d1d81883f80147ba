package api

import (
	"context"
	"net/http"
)

// CurrentSubscription returns the administrator's subscription. A 404
// means there is none; callers check IsNotFound.
func (c *Client) CurrentSubscription(ctx context.Context) (*SubscriptionStatus, error) {
	var s SubscriptionStatus
	if err := c.do(ctx, "subscription_current", http.MethodGet, "/api/subscription/current", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// StartCheckout begins payment for a plan and returns the approval link.
func (c *Client) StartCheckout(ctx context.Context, plan string) (*Checkout, error) {
	var co Checkout
	if err := c.do(ctx, "subscription_checkout", http.MethodPost, "/api/subscription/checkout", map[string]string{"plan": plan}, &co); err != nil {
		return nil, err
	}
	return &co, nil
}

// VerifyPayment confirms an approved payment and activates the plan.
func (c *Client) VerifyPayment(ctx context.Context, paymentID, payerID string) (string, error) {
	body := map[string]string{"paymentId": paymentID, "payerId": payerID}
	var resp MessageResponse
	if err := c.do(ctx, "subscription_verify", http.MethodPost, "/api/subscription/verify", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
