package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_order/internal/domain"
)

type MenuClient struct {
	c *Client
}

func NewMenuClient(c *Client) *MenuClient {
	return &MenuClient{c: c}
}

// GetItem fetches a menu item with its modifier groups, so lines can be
// priced from the server's numbers instead of the caller's.
func (m *MenuClient) GetItem(ctx context.Context, restaurantID, itemID string) (*domain.Product, error) {
	var raw json.RawMessage
	path := "/restaurants/" + escape(restaurantID) + "/menu/items/" + escape(itemID)
	if _, err := m.c.call(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	var v1 v1Product
	if err := decodeV1(raw, &v1, "item", "product", "data"); err != nil {
		return nil, err
	}
	product := normalizeProduct(v1)
	if product.ID == "" {
		product.ID = itemID
	}
	return &product, nil
}
