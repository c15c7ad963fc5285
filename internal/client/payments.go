package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_order/internal/domain"
)

type PaymentClient struct {
	c *Client
}

func NewPaymentClient(c *Client) *PaymentClient {
	return &PaymentClient{c: c}
}

type intentRequest struct {
	OrderID string `json:"order_id"`
}

// CreatePaymentIntent does not check the client secret; an intent without
// one is the caller's problem to reject.
func (p *PaymentClient) CreatePaymentIntent(ctx context.Context, orderID string) (*domain.PaymentIntent, error) {
	var raw json.RawMessage
	if _, err := p.c.call(ctx, http.MethodPost, "/payments/intents", intentRequest{OrderID: orderID}, &raw); err != nil {
		return nil, err
	}

	var v1 v1Intent
	if err := decodeV1(raw, &v1, "payment_intent", "data"); err != nil {
		return nil, err
	}
	intent := normalizeIntent(v1, orderID)
	return &intent, nil
}
