package domain

import "time"

// Channel selects which flavour of checkout a cart goes through.
type Channel string

const (
	ChannelDineIn   Channel = "dine-in"
	ChannelDelivery Channel = "delivery"
)

func (c Channel) Valid() bool {
	return c == ChannelDineIn || c == ChannelDelivery
}

// OrderItem is one line as sent to the order service. Modifiers are echoed
// exactly as stored on the cart line; the server re-validates them.
type OrderItem struct {
	ItemID    string              `json:"item_id"`
	Title     string              `json:"title,omitempty"`
	Qty       int                 `json:"qty"`
	UnitPrice float64             `json:"unit_price"`
	Modifiers []ModifierSelection `json:"modifiers,omitempty"`
	Note      string              `json:"note,omitempty"`
}

// OrderRequest is the createOrder payload.
type OrderRequest struct {
	Channel        Channel       `json:"-"`
	IdempotencyKey string        `json:"-"`
	RestaurantID   string        `json:"restaurant_id"`
	SessionID      string        `json:"session_id,omitempty"`
	AddressID      string        `json:"address_id,omitempty"`
	Items          []OrderItem   `json:"items"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
}

// Order is the canonical order shape returned by the order service.
type Order struct {
	ID            string        `json:"id"`
	RestaurantID  string        `json:"restaurant_id,omitempty"`
	SessionID     string        `json:"session_id,omitempty"`
	Status        string        `json:"status,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Items         []OrderItem   `json:"items,omitempty"`
	Total         float64       `json:"total"`
	CreatedAt     time.Time     `json:"created_at"`
}

// PaymentIntent is what the payment gateway returns for an order.
type PaymentIntent struct {
	ID           string `json:"id,omitempty"`
	ClientSecret string `json:"client_secret"`
	CustomerID   string `json:"customer_id,omitempty"`
	EphemeralKey string `json:"ephemeral_key,omitempty"`
	OrderID      string `json:"order_id,omitempty"`
}

// SheetOutcome is the result of presenting the payment sheet.
type SheetOutcome string

const (
	SheetSucceeded SheetOutcome = "succeeded"
	SheetCanceled  SheetOutcome = "canceled"
	SheetFailed    SheetOutcome = "failed"
)

// OrderItemsFromLines builds the order payload items from cart lines.
func OrderItemsFromLines(lines []CartLine) []OrderItem {
	items := make([]OrderItem, len(lines))
	for i, l := range lines {
		items[i] = OrderItem{
			ItemID:    l.ItemID,
			Title:     l.Title,
			Qty:       l.Qty,
			UnitPrice: l.EffectiveUnitPrice(),
			Modifiers: cloneSelections(l.Modifiers),
			Note:      l.Note,
		}
	}
	return items
}
