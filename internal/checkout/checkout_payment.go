package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_order/internal/domain"
)

var errNoPaymentProvider = errors.New("card payments are not configured")

func (s *Saga) createPaymentIntent(ctx context.Context, att *attempt) (*domain.PaymentIntent, error) {
	if err := s.transition(domain.StagePaymentIntentCreating); err != nil {
		return nil, err
	}
	if s.payments == nil {
		return nil, errNoPaymentProvider
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, att.orderID)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if intent == nil || intent.ClientSecret == "" {
		return nil, domain.ErrMissingClientToken
	}
	return intent, nil
}

// presentPayment waits on the sheet without the attempt's deadline; the
// sheet decides when the user is done.
func (s *Saga) presentPayment(ctx context.Context, att *attempt, intent domain.PaymentIntent) (domain.SheetOutcome, error) {
	if err := s.transition(domain.StagePaymentPresenting); err != nil {
		return "", err
	}
	if s.sheet == nil {
		return "", errNoPaymentProvider
	}
	if intent.OrderID == "" {
		intent.OrderID = att.orderID
	}

	sheetID, err := s.sheet.Init(ctx, intent)
	if err != nil {
		return "", fmt.Errorf("init payment sheet: %w", err)
	}

	outcome, err := s.sheet.Present(context.WithoutCancel(ctx), sheetID)
	if err != nil {
		return "", fmt.Errorf("present payment sheet: %w", err)
	}
	return outcome, nil
}
