package domain

import "time"

// OrderPlaced is emitted once a checkout reaches Confirmed.
type OrderPlaced struct {
	OrderID       string        `json:"order_id"`
	RestaurantID  string        `json:"restaurant_id"`
	SessionID     string        `json:"session_id,omitempty"`
	Channel       Channel       `json:"channel"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Items         []OrderItem   `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	PlacedAt      time.Time     `json:"placed_at"`
}

// OrphanedOrder is an order whose compensating cancel failed. It stays
// pending on the backend until a reconciler cancels it.
type OrphanedOrder struct {
	OrderID    string    `json:"order_id"`
	Cause      string    `json:"cause"`
	DetectedAt time.Time `json:"detected_at"`
}
