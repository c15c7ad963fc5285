package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fjod/go_order/internal/client"
	"github.com/fjod/go_order/internal/domain"
	"github.com/segmentio/kafka-go"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderCanceler interface {
	CancelOrder(ctx context.Context, orderID string) error
}

// Reconciler cancels orders whose compensating cancel failed during
// checkout. An orphan is committed only once the backend accepted the
// cancel or rejected it for good; transient failures are retried with
// backoff, so one unreachable backend blocks the partition rather than
// losing orphans.
type Reconciler struct {
	reader     MessageReader
	orders     OrderCanceler
	timeout    time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
	log        *slog.Logger
}

func NewReconciler(orders OrderCanceler, log *slog.Logger, topic, groupID string, brokers ...string) *Reconciler {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newReconciler(reader, orders, log)
}

func newReconciler(reader MessageReader, orders OrderCanceler, log *slog.Logger) *Reconciler {
	return &Reconciler{
		reader:     reader,
		orders:     orders,
		timeout:    10 * time.Second,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
		log:        log.With("component", "orphan-reconciler"),
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		r.reconcileNext(ctx)
	}
}

func (r *Reconciler) Close() {
	if err := r.reader.Close(); err != nil {
		r.log.Error("error closing reader", "error", err)
	}
}

func (r *Reconciler) reconcileNext(ctx context.Context) {
	m, err := r.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error("error reading message", "error", err)
		}
		return
	}

	var orphan domain.OrphanedOrder
	if err := json.Unmarshal(m.Value, &orphan); err != nil || orphan.OrderID == "" {
		r.log.Error("dropping malformed orphan message", "offset", m.Offset, "error", err)
		r.commit(ctx, m)
		return
	}

	if !r.cancelWithRetry(ctx, orphan) {
		return
	}
	r.commit(ctx, m)
}

// cancelWithRetry reports whether the orphan is settled. It returns false
// only when ctx ends first.
func (r *Reconciler) cancelWithRetry(ctx context.Context, orphan domain.OrphanedOrder) bool {
	backoff := r.minBackoff
	for attempt := 1; ; attempt++ {
		err := r.cancel(ctx, orphan.OrderID)
		switch {
		case err == nil:
			r.log.Info("orphaned order canceled", "order_id", orphan.OrderID, "attempt", attempt)
			return true
		case client.IsTerminal(err):
			r.log.Warn("backend refused orphan cancel, giving up", "order_id", orphan.OrderID, "error", err)
			return true
		}

		r.log.Warn("orphan cancel failed, retrying",
			"order_id", orphan.OrderID, "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, r.maxBackoff)
	}
}

func (r *Reconciler) cancel(ctx context.Context, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.orders.CancelOrder(ctx, orderID)
}

func (r *Reconciler) commit(ctx context.Context, m kafka.Message) {
	if err := r.reader.CommitMessages(ctx, m); err != nil {
		r.log.Error("failed to commit message", "offset", m.Offset, "error", err)
	}
}
