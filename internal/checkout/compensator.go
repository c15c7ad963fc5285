package checkout

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/go_order/internal/domain"
)

type OrderCanceler interface {
	CancelOrder(ctx context.Context, orderID string) error
}

// Compensator cancels orders left behind by a failed checkout. It never
// reports errors: the failure that triggered it is what the user sees.
type Compensator struct {
	orders  OrderCanceler
	orphans OrphanRecorder
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func NewCompensator(orders OrderCanceler, orphans OrphanRecorder, timeout time.Duration, log *slog.Logger) *Compensator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Compensator{
		orders:  orders,
		orphans: orphans,
		timeout: timeout,
		log:     log,
		now:     time.Now,
	}
}

// Compensate issues one cancel for orderID and reports whether it went
// through. The cancel runs even if ctx was already canceled.
func (c *Compensator) Compensate(ctx context.Context, orderID string, cause error) bool {
	ctx = context.WithoutCancel(ctx)
	cancelCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.orders.CancelOrder(cancelCtx, orderID)
	if err == nil {
		c.log.InfoContext(ctx, "order canceled after failed checkout", "order_id", orderID, "cause", cause)
		return true
	}

	c.log.ErrorContext(ctx, "compensating cancel failed, order left pending",
		"order_id", orderID, "cause", cause, "error", err)
	c.recordOrphan(ctx, orderID, cause)
	return false
}

func (c *Compensator) recordOrphan(ctx context.Context, orderID string, cause error) {
	if c.orphans == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	orphan := domain.OrphanedOrder{OrderID: orderID, DetectedAt: c.now()}
	if cause != nil {
		orphan.Cause = cause.Error()
	}
	if err := c.orphans.RecordOrphanedOrder(recordCtx, orphan); err != nil {
		c.log.ErrorContext(ctx, "failed to record orphaned order", "order_id", orderID, "error", err)
	}
}
