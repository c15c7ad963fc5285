package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_order/internal/domain"
)

type OrderClient struct {
	c *Client
}

func NewOrderClient(c *Client) *OrderClient {
	return &OrderClient{c: c}
}

// CreateOrder posts to the dine-in or delivery endpoint depending on the
// request channel. The idempotency key makes a retried post safe.
func (o *OrderClient) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	path := "/orders"
	if req.Channel == domain.ChannelDelivery {
		path = "/delivery/orders"
	}

	var headers []header
	if req.IdempotencyKey != "" {
		headers = append(headers, header{"Idempotency-Key", req.IdempotencyKey})
	}

	var raw json.RawMessage
	if _, err := o.c.call(ctx, http.MethodPost, path, req, &raw, headers...); err != nil {
		return nil, err
	}

	var v1 v1Order
	if err := decodeV1(raw, &v1, "order", "data"); err != nil {
		return nil, err
	}
	order := normalizeOrder(v1)
	return &order, nil
}

func (o *OrderClient) CancelOrder(ctx context.Context, orderID string) error {
	_, err := o.c.call(ctx, http.MethodPost, "/orders/"+escape(orderID)+"/cancel", nil, nil)
	return err
}
