package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_order/internal/domain"
)

// PaymentSheetClient drives the hosted card sheet: Init registers an intent
// with it, Present waits until the user has finished.
type PaymentSheetClient struct {
	c            *Client
	pollInterval time.Duration
}

func NewPaymentSheetClient(c *Client, pollInterval time.Duration) *PaymentSheetClient {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &PaymentSheetClient{c: c, pollInterval: pollInterval}
}

type sheetInitRequest struct {
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	ClientSecret    string `json:"client_secret"`
	CustomerID      string `json:"customer_id,omitempty"`
	EphemeralKey    string `json:"ephemeral_key,omitempty"`
	OrderID         string `json:"order_id,omitempty"`
}

type sheetInitResponse struct {
	ID      flexString `json:"id"`
	SheetID flexString `json:"sheet_id"`
}

func (p *PaymentSheetClient) Init(ctx context.Context, intent domain.PaymentIntent) (string, error) {
	var res sheetInitResponse
	_, err := p.c.call(ctx, http.MethodPost, "/payments/sheets", sheetInitRequest{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		CustomerID:      intent.CustomerID,
		EphemeralKey:    intent.EphemeralKey,
		OrderID:         intent.OrderID,
	}, &res)
	if err != nil {
		return "", err
	}
	id := firstString(res.SheetID, res.ID)
	if id == "" {
		return "", fmt.Errorf("%w: payment sheet has no id", ErrBadResponse)
	}
	return id, nil
}

type sheetResult struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome"`
	Message string `json:"message"`
}

// Present long-polls the sheet result. Only ctx bounds how long the user may
// take; each poll is bounded by the client timeout.
func (p *PaymentSheetClient) Present(ctx context.Context, sheetID string) (domain.SheetOutcome, error) {
	path := "/payments/sheets/" + escape(sheetID) + "/result"
	for {
		var res sheetResult
		status, err := p.c.call(ctx, http.MethodGet, path, nil, &res)
		if err != nil {
			return "", err
		}

		if status != http.StatusAccepted {
			switch strings.ToLower(firstText(res.Outcome, res.Status)) {
			case "succeeded", "success", "completed":
				return domain.SheetSucceeded, nil
			case "canceled", "cancelled":
				return domain.SheetCanceled, nil
			case "failed", "error":
				if res.Message != "" {
					return "", &APIError{Status: http.StatusPaymentRequired, Message: res.Message}
				}
				return domain.SheetFailed, nil
			case "pending", "processing", "":
			default:
				return "", fmt.Errorf("%w: sheet status %q", ErrBadResponse, firstText(res.Outcome, res.Status))
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}
