package domain

import (
	"sort"
	"strings"
)

// CartSchemaVersion is bumped whenever the line-merge algorithm or the
// persisted shape changes. It is part of the storage key and of the stored
// document, so state written by an older build is never reinterpreted.
const CartSchemaVersion = 3

// CartContext scopes a cart to one restaurant (and its table session).
type CartContext struct {
	RestaurantID   string `json:"restaurant_id" bson:"restaurant_id"`
	RestaurantName string `json:"restaurant_name" bson:"restaurant_name"`
	CurrencySymbol string `json:"currency_symbol" bson:"currency_symbol"`
}

// Cart is the aggregate of lines for one context. It is not safe for
// concurrent use; cart.Store serializes access to it.
type Cart struct {
	ctx     CartContext
	lines   map[string]*CartLine
	content map[string]string // content key -> most recently touched line key
	seq     uint64
}

// NewCart returns an empty cart with no context.
func NewCart() *Cart {
	return &Cart{
		lines:   make(map[string]*CartLine),
		content: make(map[string]string),
	}
}

// Context returns the current context.
func (c *Cart) Context() CartContext {
	return c.ctx
}

// SetContext applies a new context. When resetIfDifferent is set and the cart
// already belongs to another restaurant, all lines are dropped first.
// It reports whether lines were dropped.
func (c *Cart) SetContext(next CartContext, resetIfDifferent bool) bool {
	next.RestaurantID = strings.TrimSpace(next.RestaurantID)
	reset := false
	if resetIfDifferent && c.ctx.RestaurantID != "" && c.ctx.RestaurantID != next.RestaurantID {
		c.dropLines()
		reset = true
	}
	c.ctx = next
	return reset
}

// AddLine merges qty of the candidate into the cart.
//
// A line is found by its stored key first and then by content, so a keyless
// add of the same content merges into a line stored under a legacy key.
// Only the quantity of an existing line changes.
func (c *Cart) AddLine(candidate LineCandidate, qty int) (CartLine, error) {
	if qty < 1 {
		return CartLine{}, ErrInvalidQuantity
	}
	n := candidate.Normalize()
	if n.ItemID == "" {
		return CartLine{}, ErrMissingItemID
	}

	stored := n.StoredKey()
	contentKey := n.ContentKey()

	line, ok := c.lines[stored]
	if !ok {
		if k, found := c.content[contentKey]; found {
			line, ok = c.lines[k]
		}
	}

	c.seq++
	if ok {
		line.Qty += qty
		line.Seq = c.seq
		c.content[line.ContentKey()] = line.LineKey
		return line.clone(), nil
	}

	line = &CartLine{
		LineKey:   stored,
		ItemID:    n.ItemID,
		Title:     n.Title,
		Price:     n.Price,
		UnitPrice: n.UnitPrice,
		Qty:       qty,
		Modifiers: n.Modifiers,
		Note:      n.Note,
		Seq:       c.seq,
	}
	c.lines[stored] = line
	c.content[contentKey] = stored
	return line.clone(), nil
}

// DecrementLine lowers the line's quantity by one and removes it at zero.
//
// key is a line key; when no line has it, it is read as an item id and the
// matching line with the highest Seq (the one most recently added to or
// decremented) is used. A miss is a no-op. It reports whether a line changed.
func (c *Cart) DecrementLine(key string) bool {
	line := c.lines[key]
	if line == nil {
		line = c.latestByItem(strings.TrimSpace(key))
	}
	if line == nil {
		return false
	}

	if line.Qty <= 1 {
		c.deleteLine(line.LineKey)
		return true
	}
	c.seq++
	line.Qty--
	line.Seq = c.seq
	c.content[line.ContentKey()] = line.LineKey
	return true
}

// RemoveLine drops the line with that key, or every line of that item id when
// no line has the key. It reports how many lines were removed.
func (c *Cart) RemoveLine(key string) int {
	if _, ok := c.lines[key]; ok {
		c.deleteLine(key)
		return 1
	}

	itemID := strings.TrimSpace(key)
	if itemID == "" {
		return 0
	}
	removed := 0
	for k, l := range c.lines {
		if l.ItemID == itemID {
			c.deleteLine(k)
			removed++
		}
	}
	return removed
}

// Clear removes all lines and resets the context.
func (c *Cart) Clear() {
	c.dropLines()
	c.ctx = CartContext{}
}

// Subtotal sums EffectiveUnitPrice times quantity over all lines.
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, l := range c.lines {
		total += l.Total()
	}
	return total
}

// Count sums quantities over all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Qty
	}
	return n
}

// Len is the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Line returns a copy of the line stored under key.
func (c *Cart) Line(key string) (CartLine, bool) {
	l, ok := c.lines[key]
	if !ok {
		return CartLine{}, false
	}
	return l.clone(), true
}

// Lines returns copies of all lines ordered by line key.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, l.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineKey < out[j].LineKey })
	return out
}

func (c *Cart) latestByItem(itemID string) *CartLine {
	if itemID == "" {
		return nil
	}
	var latest *CartLine
	for _, l := range c.lines {
		if l.ItemID != itemID {
			continue
		}
		if latest == nil || l.Seq > latest.Seq {
			latest = l
		}
	}
	return latest
}

func (c *Cart) deleteLine(key string) {
	l, ok := c.lines[key]
	if !ok {
		return
	}
	delete(c.lines, key)
	ck := l.ContentKey()
	if c.content[ck] == key {
		delete(c.content, ck)
		// another line may carry the same content under a different legacy key
		var next *CartLine
		for _, other := range c.lines {
			if other.ContentKey() == ck && (next == nil || other.Seq > next.Seq) {
				next = other
			}
		}
		if next != nil {
			c.content[ck] = next.LineKey
		}
	}
}

func (c *Cart) dropLines() {
	c.lines = make(map[string]*CartLine)
	c.content = make(map[string]string)
}
