package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_order/internal/domain"
)

type SessionClient struct {
	c *Client
}

func NewSessionClient(c *Client) *SessionClient {
	return &SessionClient{c: c}
}

type openSessionRequest struct {
	RestaurantID  string `json:"restaurant_id"`
	TableID       string `json:"table_id,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
}

// OpenSession starts (or joins) a dine-in session and returns its id.
func (s *SessionClient) OpenSession(ctx context.Context, restaurantID, tableID, reservationID string) (string, error) {
	var raw json.RawMessage
	_, err := s.c.call(ctx, http.MethodPost, "/sessions", openSessionRequest{
		RestaurantID:  restaurantID,
		TableID:       tableID,
		ReservationID: reservationID,
	}, &raw)
	if err != nil {
		return "", err
	}

	var sess v1Session
	if err := decodeV1(raw, &sess, "session", "data"); err != nil {
		return "", err
	}
	id := firstString(sess.SessionID, sess.ID)
	if id == "" {
		return "", ErrBadResponse
	}
	return id, nil
}

// ListSessionOrders returns every order placed in a session, for the tab.
func (s *SessionClient) ListSessionOrders(ctx context.Context, sessionID string) ([]domain.Order, error) {
	var raw json.RawMessage
	if _, err := s.c.call(ctx, http.MethodGet, "/sessions/"+escape(sessionID)+"/orders", nil, &raw); err != nil {
		return nil, err
	}

	var list []v1Order
	if err := json.Unmarshal(raw, &list); err != nil {
		var env struct {
			Orders []v1Order `json:"orders"`
			Data   []v1Order `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, ErrBadResponse
		}
		list = env.Orders
		if len(list) == 0 {
			list = env.Data
		}
	}

	orders := make([]domain.Order, 0, len(list))
	for _, o := range list {
		orders = append(orders, normalizeOrder(o))
	}
	return orders, nil
}
