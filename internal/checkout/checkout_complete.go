package checkout

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/go_order/internal/domain"
)

func (s *Saga) confirm(ctx context.Context, att *attempt, log *slog.Logger) *Result {
	if err := s.transition(domain.StageConfirmed); err != nil {
		log.ErrorContext(ctx, "confirming checkout", "error", err)
		s.forceStage(domain.StageConfirmed)
	}
	s.recordPlaced(ctx, att, log)
	return att.result(domain.StageConfirmed)
}

// compensate cancels the created order once, then fails the attempt with
// the original cause.
func (s *Saga) compensate(ctx context.Context, att *attempt, cause error, fallback string, silent bool, log *slog.Logger) *Result {
	if err := s.transition(domain.StageCompensating); err != nil {
		log.ErrorContext(ctx, "entering compensation", "error", err)
		s.forceStage(domain.StageCompensating)
	}
	compensated := s.compensator.Compensate(ctx, att.orderID, cause)
	if !compensated && fallback == msgPaymentFailed {
		fallback = msgPaymentPending
	}

	res := s.failed(ctx, att, cause, fallback, silent, log)
	res.Compensated = compensated
	return res
}

// fail ends the attempt. Failures after an order exists always go through
// compensate.
func (s *Saga) fail(ctx context.Context, att *attempt, cause error, fallback string, log *slog.Logger) *Result {
	if att.orderID != "" {
		return s.compensate(ctx, att, cause, fallback, false, log)
	}
	return s.failed(ctx, att, cause, fallback, false, log)
}

func (s *Saga) failed(ctx context.Context, att *attempt, cause error, fallback string, silent bool, log *slog.Logger) *Result {
	if err := s.transition(domain.StageFailed); err != nil {
		log.ErrorContext(ctx, "failing checkout", "error", err)
		s.forceStage(domain.StageFailed)
	}

	res := att.result(domain.StageFailed)
	res.Err = cause
	res.Silent = silent
	if silent {
		log.InfoContext(ctx, "checkout abandoned", "reason", cause)
	} else {
		res.Message = domain.UserMessage(cause, fallback)
		log.WarnContext(ctx, "checkout failed", "error", cause)
	}
	return res
}

func (s *Saga) recordPlaced(ctx context.Context, att *attempt, log *slog.Logger) {
	if s.events == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RecordTimeout)
	defer cancel()

	event := domain.OrderPlaced{
		OrderID:       att.orderID,
		RestaurantID:  att.snapshot.Context.RestaurantID,
		SessionID:     att.sessionID,
		Channel:       att.channel,
		PaymentMethod: att.method,
		Items:         domain.OrderItemsFromLines(att.snapshot.Lines),
		Subtotal:      att.snapshot.Subtotal(),
		PlacedAt:      time.Now(),
	}
	if err := s.events.RecordOrderPlaced(recordCtx, event); err != nil {
		log.WarnContext(ctx, "failed to record order placed", "order_id", att.orderID, "error", err)
	}
}
