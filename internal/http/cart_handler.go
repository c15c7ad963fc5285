package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_order/internal/cart"
	"github.com/fjod/go_order/internal/domain"
)

type MenuReader interface {
	GetItem(ctx context.Context, restaurantID, itemID string) (*domain.Product, error)
}

type CartHandler struct {
	carts   map[domain.Channel]*cart.Store
	menu    MenuReader
	timeout time.Duration
}

func NewCartHandler(carts map[domain.Channel]*cart.Store, menu MenuReader, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		menu:    menu,
		timeout: timeout,
	}
}

type SetContextRequestDTO struct {
	RestaurantID     string `json:"restaurant_id"`
	RestaurantName   string `json:"restaurant_name"`
	CurrencySymbol   string `json:"currency_symbol"`
	ResetIfDifferent bool   `json:"reset_if_different"`
}

type AddItemRequestDTO struct {
	domain.LineCandidate
	Qty int `json:"qty"`
}

type AddMenuItemRequestDTO struct {
	ItemID    string                     `json:"item_id"`
	Modifiers []domain.ModifierSelection `json:"modifiers,omitempty"`
	Note      string                     `json:"note,omitempty"`
	Qty       int                        `json:"qty"`
}

type CartResponseDTO struct {
	Channel      domain.Channel     `json:"channel"`
	Context      domain.CartContext `json:"context"`
	Lines        []domain.CartLine  `json:"lines"`
	Subtotal     float64            `json:"subtotal"`
	Count        int                `json:"count"`
	CheckoutHeld bool               `json:"checkout_held"`
}

type AddItemResponseDTO struct {
	Line domain.CartLine `json:"line"`
	Cart CartResponseDTO `json:"cart"`
}

func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	s, ok := h.carts[channelFromRequest(r)]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown_scope", "scope must be dine-in or delivery")
	}
	return s, ok
}

// GET /api/v1/{scope}/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(s))
}

// PUT /api/v1/{scope}/cart/context
func (h *CartHandler) SetContext(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}

	var req SetContextRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.RestaurantID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_restaurant_id", "restaurant_id is required")
		return
	}

	err := s.SetContext(domain.CartContext{
		RestaurantID:   req.RestaurantID,
		RestaurantName: req.RestaurantName,
		CurrencySymbol: req.CurrencySymbol,
	}, req.ResetIfDifferent)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(s))
}

// POST /api/v1/{scope}/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Qty > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	line, err := s.AddLine(req.LineCandidate, req.Qty)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, AddItemResponseDTO{Line: line, Cart: cartResponse(s)})
}

// POST /api/v1/{scope}/cart/items/menu
//
// The line is priced from the menu: the client only names the item and its
// modifier choices.
func (h *CartHandler) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.store(w, r)
	if !ok {
		return
	}

	var req AddMenuItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ItemID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id is required")
		return
	}
	if req.Qty > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	restaurantID := s.Context().RestaurantID
	if restaurantID == "" {
		respondError(w, http.StatusUnprocessableEntity, "missing_restaurant", "set the cart context first")
		return
	}

	product, err := h.menu.GetItem(ctx, restaurantID, req.ItemID)
	if err != nil {
		handleError(w, err)
		return
	}

	candidate, err := product.Candidate(req.Modifiers, req.Note)
	if err != nil {
		handleError(w, err)
		return
	}

	line, err := s.AddLine(candidate, req.Qty)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, AddItemResponseDTO{Line: line, Cart: cartResponse(s)})
}

// POST /api/v1/{scope}/cart/items/decrement?key=
func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	key, ok := lineKeyFromQuery(w, r)
	if !ok {
		return
	}

	if err := s.DecrementLine(key); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(s))
}

// DELETE /api/v1/{scope}/cart/items?key=
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	key, ok := lineKeyFromQuery(w, r)
	if !ok {
		return
	}

	if err := s.RemoveLine(key); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(s))
}

// DELETE /api/v1/{scope}/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}

	if err := s.Clear(); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(s))
}

func lineKeyFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.URL.Query().Get("key")
	if key == "" {
		respondError(w, http.StatusBadRequest, "invalid_line_key", "key query parameter is required")
		return "", false
	}
	return key, true
}

func cartResponse(s *cart.Store) CartResponseDTO {
	state := s.Snapshot()
	lines := state.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return CartResponseDTO{
		Channel:      s.Channel(),
		Context:      state.Context,
		Lines:        lines,
		Subtotal:     state.Subtotal(),
		Count:        state.Count(),
		CheckoutHeld: s.CheckoutHeld(),
	}
}
