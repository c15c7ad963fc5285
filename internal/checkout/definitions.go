package checkout

import (
	"context"
	"time"

	"github.com/fjod/go_order/internal/domain"
)

// CartHold is the cart side of a checkout. *cart.Store implements it.
type CartHold interface {
	Channel() domain.Channel
	BeginCheckout() (domain.CartState, error)
	EndCheckout(clear bool)
}

type SessionOpener interface {
	OpenSession(ctx context.Context, restaurantID, tableID, reservationID string) (string, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
}

type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, orderID string) (*domain.PaymentIntent, error)
}

// PaymentSheet is the hosted card entry UI. Present blocks until the user
// finishes with the sheet.
type PaymentSheet interface {
	Init(ctx context.Context, intent domain.PaymentIntent) (string, error)
	Present(ctx context.Context, sheetID string) (domain.SheetOutcome, error)
}

type OrphanRecorder interface {
	RecordOrphanedOrder(ctx context.Context, orphan domain.OrphanedOrder) error
}

type EventRecorder interface {
	RecordOrderPlaced(ctx context.Context, event domain.OrderPlaced) error
}

// Dependencies wires a Saga. Sessions may be nil, which skips the session
// step; Orphans and Events are optional.
type Dependencies struct {
	Cart     CartHold
	Sessions SessionOpener
	Orders   OrderService
	Payments PaymentGateway
	Sheet    PaymentSheet
	Orphans  OrphanRecorder
	Events   EventRecorder
}

type Config struct {
	DefaultPaymentMethod domain.PaymentMethod
	CompensationTimeout  time.Duration
	RecordTimeout        time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultPaymentMethod: domain.PaymentCard,
		CompensationTimeout:  10 * time.Second,
		RecordTimeout:        3 * time.Second,
	}
}

// Request carries the per-attempt inputs of Start.
type Request struct {
	// PaymentMethod overrides the last selection for this attempt only.
	PaymentMethod *domain.PaymentMethod
	SessionID     string
	TableID       string
	ReservationID string
	AddressID     string
}

// Result is the terminal outcome of one checkout attempt.
type Result struct {
	Stage         domain.CheckoutStage `json:"stage"`
	OrderID       string               `json:"order_id,omitempty"`
	SessionID     string               `json:"session_id,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Message       string               `json:"message,omitempty"`
	Silent        bool                 `json:"silent,omitempty"`
	Compensated   bool                 `json:"compensated,omitempty"`
	Err           error                `json:"-"`
}

// Status is a point-in-time view of a Saga for the UI.
type Status struct {
	Stage         domain.CheckoutStage `json:"stage"`
	InFlight      bool                 `json:"in_flight"`
	SessionID     string               `json:"session_id,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Last          *Result              `json:"last,omitempty"`
}
