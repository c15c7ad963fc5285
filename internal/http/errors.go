package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_order/internal/cart"
	"github.com/fjod/go_order/internal/checkout"
	"github.com/fjod/go_order/internal/client"
	"github.com/fjod/go_order/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps cart, checkout and backend errors onto HTTP statuses.
func handleError(w http.ResponseWriter, err error) {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, cart.ErrCheckoutInProgress), errors.Is(err, checkout.ErrCheckoutInFlight):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, cart.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrMissingItemID),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrUnknownPayment):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, domain.ErrUnknownModifier), errors.Is(err, domain.ErrModifierSelection):
		respondError(w, http.StatusUnprocessableEntity, "invalid_modifiers", err.Error())
	case errors.Is(err, checkout.ErrMissingAddress):
		respondError(w, http.StatusUnprocessableEntity, "missing_address", err.Error())
	case errors.Is(err, checkout.ErrMissingRestaurant):
		respondError(w, http.StatusUnprocessableEntity, "missing_restaurant", err.Error())
	case errors.Is(err, client.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "backend did not answer in time")
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		respondError(w, http.StatusNotFound, "not_found", domain.UserMessage(err, "not found"))
	case errors.As(err, &apiErr):
		respondError(w, http.StatusBadGateway, "backend_error", domain.UserMessage(err, "backend request failed"))
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
