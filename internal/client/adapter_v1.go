package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_order/internal/domain"
)

// The v1 backend is not consistent about field names across endpoints and
// deployments. Everything in this file maps raw v1 payloads onto the
// canonical domain types; nothing outside it looks at an alias.

// flexFloat accepts 12.5 as well as "12.5".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*f = flexFloat(n)
	return nil
}

// flexString accepts "42" as well as 42; ids come both ways.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

func firstString(vals ...flexString) string {
	for _, v := range vals {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

func firstText(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(vals ...*flexFloat) float64 {
	for _, v := range vals {
		if v != nil {
			return float64(*v)
		}
	}
	return 0
}

func firstInt(vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}

// unwrapV1 strips a {"data": ...} style envelope when one of keys holds an
// object; otherwise body is returned unchanged.
func unwrapV1(body []byte, keys ...string) []byte {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	for _, k := range keys {
		raw, ok := env[k]
		if ok && len(raw) > 0 && raw[0] == '{' {
			return raw
		}
	}
	return body
}

func decodeV1(body []byte, out any, envelopes ...string) error {
	if err := json.Unmarshal(unwrapV1(body, envelopes...), out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

type v1ErrorBody struct {
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Code    flexString      `json:"code"`
	Error   json.RawMessage `json:"error"`
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var raw v1ErrorBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return apiErr
	}
	apiErr.Code = string(raw.Code)
	apiErr.Message = firstText(raw.Message, raw.Detail)

	if len(raw.Error) > 0 {
		var text string
		var nested struct {
			Message string     `json:"message"`
			Code    flexString `json:"code"`
		}
		switch {
		case json.Unmarshal(raw.Error, &text) == nil:
			apiErr.Message = firstText(apiErr.Message, text)
		case json.Unmarshal(raw.Error, &nested) == nil:
			apiErr.Message = firstText(apiErr.Message, nested.Message)
			apiErr.Code = firstText(apiErr.Code, string(nested.Code))
		}
	}
	return apiErr
}

type v1Option struct {
	ID         flexString `json:"id"`
	OptionID   flexString `json:"option_id"`
	Name       string     `json:"name"`
	Title      string     `json:"title"`
	PriceDelta *flexFloat `json:"price_delta"`
	ExtraPrice *flexFloat `json:"extra_price"`
	Price      *flexFloat `json:"price"`
}

type v1Group struct {
	ID        flexString `json:"id"`
	GroupID   flexString `json:"group_id"`
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Min       *int       `json:"min"`
	MinSelect *int       `json:"min_select"`
	Max       *int       `json:"max"`
	MaxSelect *int       `json:"max_select"`
	Options   []v1Option `json:"options"`
	Choices   []v1Option `json:"choices"`
}

type v1Product struct {
	ID             flexString `json:"id"`
	ItemID         flexString `json:"item_id"`
	Name           string     `json:"name"`
	Title          string     `json:"title"`
	Price          *flexFloat `json:"price"`
	BasePrice      *flexFloat `json:"base_price"`
	ModifierGroups []v1Group  `json:"modifier_groups"`
	OptionGroups   []v1Group  `json:"option_groups"`
	Modifiers      []v1Group  `json:"modifiers"`
}

func normalizeProduct(p v1Product) domain.Product {
	groups := p.ModifierGroups
	if len(groups) == 0 {
		groups = p.OptionGroups
	}
	if len(groups) == 0 {
		groups = p.Modifiers
	}

	out := domain.Product{
		ID:    firstString(p.ID, p.ItemID),
		Title: firstText(p.Title, p.Name),
		Price: firstFloat(p.Price, p.BasePrice),
	}
	for _, g := range groups {
		out.Groups = append(out.Groups, normalizeGroup(g))
	}
	return out
}

func normalizeGroup(g v1Group) domain.ModifierGroup {
	options := g.Options
	if len(options) == 0 {
		options = g.Choices
	}
	out := domain.ModifierGroup{
		ID:   firstString(g.ID, g.GroupID),
		Name: firstText(g.Name, g.Title),
		Min:  firstInt(g.Min, g.MinSelect),
		Max:  firstInt(g.Max, g.MaxSelect),
	}
	for _, o := range options {
		out.Options = append(out.Options, domain.ModifierOption{
			ID:         firstString(o.ID, o.OptionID),
			Name:       firstText(o.Name, o.Title),
			PriceDelta: firstFloat(o.PriceDelta, o.ExtraPrice, o.Price),
		})
	}
	return out
}

type v1Selection struct {
	GroupID           flexString   `json:"group_id"`
	ModifierGroupID   flexString   `json:"modifier_group_id"`
	Group             flexString   `json:"group"`
	OptionIDs         []flexString `json:"option_ids"`
	SelectedOptionIDs []flexString `json:"selected_option_ids"`
	Options           []flexString `json:"options"`
}

func normalizeSelections(in []v1Selection) []domain.ModifierSelection {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.ModifierSelection, 0, len(in))
	for _, s := range in {
		ids := s.OptionIDs
		if len(ids) == 0 {
			ids = s.SelectedOptionIDs
		}
		if len(ids) == 0 {
			ids = s.Options
		}
		sel := domain.ModifierSelection{GroupID: firstString(s.GroupID, s.ModifierGroupID, s.Group)}
		for _, id := range ids {
			sel.OptionIDs = append(sel.OptionIDs, string(id))
		}
		out = append(out, sel)
	}
	return domain.NormalizeSelections(out)
}

type v1OrderItem struct {
	ItemID             flexString    `json:"item_id"`
	ProductID          flexString    `json:"product_id"`
	Title              string        `json:"title"`
	Name               string        `json:"name"`
	Qty                *int          `json:"qty"`
	Quantity           *int          `json:"quantity"`
	UnitPrice          *flexFloat    `json:"unit_price"`
	Price              *flexFloat    `json:"price"`
	Modifiers          []v1Selection `json:"modifiers"`
	ModifierSelections []v1Selection `json:"modifier_selections"`
	Note               string        `json:"note"`
	Notes              string        `json:"notes"`
}

type v1Order struct {
	ID            flexString    `json:"id"`
	OrderID       flexString    `json:"order_id"`
	RestaurantID  flexString    `json:"restaurant_id"`
	SessionID     flexString    `json:"session_id"`
	Status        string        `json:"status"`
	State         string        `json:"state"`
	PaymentMethod string        `json:"payment_method"`
	Items         []v1OrderItem `json:"items"`
	Lines         []v1OrderItem `json:"lines"`
	Total         *flexFloat    `json:"total"`
	TotalAmount   *flexFloat    `json:"total_amount"`
	CreatedAt     time.Time     `json:"created_at"`
}

func normalizeOrder(o v1Order) domain.Order {
	items := o.Items
	if len(items) == 0 {
		items = o.Lines
	}
	out := domain.Order{
		ID:            firstString(o.ID, o.OrderID),
		RestaurantID:  string(o.RestaurantID),
		SessionID:     string(o.SessionID),
		Status:        strings.ToLower(firstText(o.Status, o.State)),
		PaymentMethod: domain.PaymentMethod(strings.ToLower(o.PaymentMethod)),
		CreatedAt:     o.CreatedAt,
	}

	var sum float64
	for _, it := range items {
		mods := it.Modifiers
		if len(mods) == 0 {
			mods = it.ModifierSelections
		}
		item := domain.OrderItem{
			ItemID:    firstString(it.ItemID, it.ProductID),
			Title:     firstText(it.Title, it.Name),
			Qty:       firstInt(it.Qty, it.Quantity),
			UnitPrice: firstFloat(it.UnitPrice, it.Price),
			Modifiers: normalizeSelections(mods),
			Note:      firstText(it.Note, it.Notes),
		}
		sum += item.UnitPrice * float64(item.Qty)
		out.Items = append(out.Items, item)
	}
	if o.Total != nil || o.TotalAmount != nil {
		out.Total = firstFloat(o.Total, o.TotalAmount)
	} else {
		out.Total = sum
	}
	return out
}

type v1Intent struct {
	ID                 flexString `json:"id"`
	PaymentIntentID    flexString `json:"payment_intent_id"`
	ClientSecret       string     `json:"client_secret"`
	ClientSecretCamel  string     `json:"clientSecret"`
	PaymentIntentToken string     `json:"payment_intent_client_secret"`
	CustomerID         flexString `json:"customer_id"`
	Customer           flexString `json:"customer"`
	EphemeralKey       string     `json:"ephemeral_key"`
	EphemeralKeyCamel  string     `json:"ephemeralKey"`
}

func normalizeIntent(in v1Intent, orderID string) domain.PaymentIntent {
	return domain.PaymentIntent{
		ID:           firstString(in.ID, in.PaymentIntentID),
		ClientSecret: firstText(in.ClientSecret, in.ClientSecretCamel, in.PaymentIntentToken),
		CustomerID:   firstString(in.CustomerID, in.Customer),
		EphemeralKey: firstText(in.EphemeralKey, in.EphemeralKeyCamel),
		OrderID:      orderID,
	}
}

type v1Session struct {
	ID        flexString `json:"id"`
	SessionID flexString `json:"session_id"`
}
