package domain

// ModifierSelection is the set of options chosen inside one modifier group.
type ModifierSelection struct {
	GroupID   string   `json:"group_id" bson:"group_id"`
	OptionIDs []string `json:"option_ids" bson:"option_ids"`
}

// LineCandidate is what the UI hands to the cart when the user adds a product.
// Key is the legacy pre-assigned line key; leave it empty to derive one.
type LineCandidate struct {
	Key       string              `json:"key,omitempty"`
	ItemID    string              `json:"item_id"`
	Title     string              `json:"title"`
	Price     float64             `json:"price"`
	UnitPrice *float64            `json:"unit_price,omitempty"`
	Modifiers []ModifierSelection `json:"modifiers,omitempty"`
	Note      string              `json:"note,omitempty"`
}

// CartLine is one distinct purchasable row of a cart.
type CartLine struct {
	LineKey   string              `json:"line_key" bson:"line_key"`
	ItemID    string              `json:"item_id" bson:"item_id"`
	Title     string              `json:"title" bson:"title"`
	Price     float64             `json:"price" bson:"price"`
	UnitPrice *float64            `json:"unit_price,omitempty" bson:"unit_price,omitempty"`
	Qty       int                 `json:"qty" bson:"qty"`
	Modifiers []ModifierSelection `json:"modifiers,omitempty" bson:"modifiers,omitempty"`
	Note      string              `json:"note,omitempty" bson:"note,omitempty"`

	// Seq is the cart-wide sequence number of the last add or decrement that
	// touched this line. It breaks ties on the legacy item id fallback.
	Seq uint64 `json:"seq" bson:"seq"`
}

// EffectiveUnitPrice is the price resolution policy used for every total:
// the snapshotted unit price when one was set, otherwise the base price.
func (l CartLine) EffectiveUnitPrice() float64 {
	if l.UnitPrice != nil {
		return *l.UnitPrice
	}
	return l.Price
}

// Total is EffectiveUnitPrice times quantity.
func (l CartLine) Total() float64 {
	return l.EffectiveUnitPrice() * float64(l.Qty)
}

// ContentKey is the derived key of the line's content, ignoring any
// pre-assigned key it was stored under.
func (l CartLine) ContentKey() string {
	return LineKey(l.ItemID, l.Modifiers, l.Note)
}

func (l CartLine) clone() CartLine {
	c := l
	if l.UnitPrice != nil {
		p := *l.UnitPrice
		c.UnitPrice = &p
	}
	c.Modifiers = cloneSelections(l.Modifiers)
	return c
}

func cloneSelections(in []ModifierSelection) []ModifierSelection {
	if len(in) == 0 {
		return nil
	}
	out := make([]ModifierSelection, len(in))
	for i, s := range in {
		out[i] = ModifierSelection{
			GroupID:   s.GroupID,
			OptionIDs: append([]string(nil), s.OptionIDs...),
		}
	}
	return out
}

// Float returns a pointer to v, handy for UnitPrice literals.
func Float(v float64) *float64 {
	return &v
}
