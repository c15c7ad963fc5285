package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_order/internal/checkout"
	"github.com/fjod/go_order/internal/domain"
)

// CheckoutRunner is the part of checkout.Saga the handler drives.
type CheckoutRunner interface {
	Start(ctx context.Context, req checkout.Request) (*checkout.Result, error)
	SelectPaymentMethod(m domain.PaymentMethod) error
	Status() checkout.Status
	SessionID() string
}

type TabReader interface {
	ListSessionOrders(ctx context.Context, sessionID string) ([]domain.Order, error)
}

type CheckoutHandler struct {
	sagas   map[domain.Channel]CheckoutRunner
	tab     TabReader
	timeout time.Duration
}

func NewCheckoutHandler(sagas map[domain.Channel]CheckoutRunner, tab TabReader, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		sagas:   sagas,
		tab:     tab,
		timeout: timeout,
	}
}

type SelectPaymentMethodRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
}

type StartCheckoutRequestDTO struct {
	PaymentMethod string `json:"payment_method,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	TableID       string `json:"table_id,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
	AddressID     string `json:"address_id,omitempty"`
}

type TabResponseDTO struct {
	SessionID string         `json:"session_id"`
	Orders    []domain.Order `json:"orders"`
	Total     float64        `json:"total"`
}

func (h *CheckoutHandler) saga(w http.ResponseWriter, r *http.Request) (CheckoutRunner, bool) {
	s, ok := h.sagas[channelFromRequest(r)]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown_scope", "scope must be dine-in or delivery")
	}
	return s, ok
}

// PUT /api/v1/{scope}/checkout/payment-method
func (h *CheckoutHandler) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	s, ok := h.saga(w, r)
	if !ok {
		return
	}

	var req SelectPaymentMethodRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := s.SelectPaymentMethod(method); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, s.Status())
}

// POST /api/v1/{scope}/checkout
//
// The attempt runs to a terminal stage even if the caller goes away: a
// dropped connection must not leave an order half placed.
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.saga(w, r)
	if !ok {
		return
	}

	var req StartCheckoutRequestDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	checkoutReq := checkout.Request{
		SessionID:     req.SessionID,
		TableID:       req.TableID,
		ReservationID: req.ReservationID,
		AddressID:     req.AddressID,
	}
	if req.PaymentMethod != "" {
		method, err := domain.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			handleError(w, err)
			return
		}
		checkoutReq.PaymentMethod = &method
	}

	// The deadline covers the network steps; the payment sheet is waited on
	// without it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	res, err := s.Start(ctx, checkoutReq)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GET /api/v1/{scope}/checkout/status
func (h *CheckoutHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.saga(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.Status())
}

// GET /api/v1/dine-in/tab
func (h *CheckoutHandler) GetTab(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		if s, ok := h.sagas[domain.ChannelDineIn]; ok {
			sessionID = s.SessionID()
		}
	}
	if sessionID == "" {
		respondError(w, http.StatusNotFound, "no_session", "no dine-in session is open")
		return
	}

	orders, err := h.tab.ListSessionOrders(ctx, sessionID)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := TabResponseDTO{SessionID: sessionID, Orders: orders}
	if resp.Orders == nil {
		resp.Orders = []domain.Order{}
	}
	for _, o := range orders {
		resp.Total += o.Total
	}
	respondJSON(w, http.StatusOK, resp)
}
