package domain

import (
	"fmt"
	"strings"
	"time"
)

// CartState is the persisted shape of a cart.
type CartState struct {
	SchemaVersion int         `json:"schema_version" bson:"schema_version"`
	Context       CartContext `json:"context" bson:"context"`
	Lines         []CartLine  `json:"lines" bson:"lines"`
	Seq           uint64      `json:"seq" bson:"seq"`
	UpdatedAt     time.Time   `json:"updated_at" bson:"updated_at"`
}

// IsEmpty reports whether the state carries neither lines nor a context.
func (s CartState) IsEmpty() bool {
	return len(s.Lines) == 0 && s.Context == CartContext{}
}

// Subtotal sums line totals of the snapshot.
func (s CartState) Subtotal() float64 {
	var total float64
	for _, l := range s.Lines {
		total += l.Total()
	}
	return total
}

// Count sums line quantities of the snapshot.
func (s CartState) Count() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Qty
	}
	return n
}

// State captures the cart for persistence or checkout.
func (c *Cart) State(now time.Time) CartState {
	return CartState{
		SchemaVersion: CartSchemaVersion,
		Context:       c.ctx,
		Lines:         c.Lines(),
		Seq:           c.seq,
		UpdatedAt:     now,
	}
}

// RestoreCart rebuilds a cart from persisted state. States written under
// another schema version are rejected with ErrStaleCartState.
func RestoreCart(s CartState) (*Cart, error) {
	if s.SchemaVersion != CartSchemaVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrStaleCartState, s.SchemaVersion, CartSchemaVersion)
	}

	c := NewCart()
	c.ctx = s.Context
	c.seq = s.Seq
	for _, l := range s.Lines {
		if strings.TrimSpace(l.ItemID) == "" || l.LineKey == "" || l.Qty < 1 {
			return nil, fmt.Errorf("%w: bad line %q", ErrStaleCartState, l.LineKey)
		}
		line := l.clone()
		if line.Seq > c.seq {
			c.seq = line.Seq
		}
		c.lines[line.LineKey] = &line
		ck := line.ContentKey()
		if prev, taken := c.content[ck]; !taken || c.lines[prev].Seq < line.Seq {
			c.content[ck] = line.LineKey
		}
	}
	return c, nil
}

// StorageKey namespaces persisted carts by schema version, scope and owner.
func StorageKey(scope, owner string) string {
	return fmt.Sprintf("cart:v%d:%s:%s", CartSchemaVersion, scope, owner)
}
