package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fjod/go_order/internal/domain"
)

func (s *Saga) createOrder(ctx context.Context, att *attempt, log *slog.Logger) error {
	if err := s.transition(domain.StageOrderCreating); err != nil {
		return err
	}

	req := domain.OrderRequest{
		Channel:        att.channel,
		IdempotencyKey: att.idempotencyKey,
		RestaurantID:   att.snapshot.Context.RestaurantID,
		SessionID:      att.sessionID,
		AddressID:      att.req.AddressID,
		Items:          domain.OrderItemsFromLines(att.snapshot.Lines),
		PaymentMethod:  att.method,
	}

	order, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if order == nil || order.ID == "" {
		return ErrMissingOrderID
	}

	att.orderID = order.ID
	log.InfoContext(ctx, "order created", "order_id", order.ID, "session_id", att.sessionID)
	return nil
}
