package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(itemID string, groups map[string][]string) LineCandidate {
	var mods []ModifierSelection
	for g, opts := range groups {
		mods = append(mods, ModifierSelection{GroupID: g, OptionIDs: opts})
	}
	return LineCandidate{ItemID: itemID, Title: "Item " + itemID, Price: 10, Modifiers: mods}
}

func TestAddLine_MergesSameContent(t *testing.T) {
	c := NewCart()

	_, err := c.AddLine(candidate("A", map[string][]string{"g1": {"o1"}}), 1)
	require.NoError(t, err)
	line, err := c.AddLine(candidate("A", map[string][]string{"g1": {"o1"}}), 2)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 3, line.Qty)

	_, err = c.AddLine(candidate("A", map[string][]string{"g1": {"o2"}}), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	second, ok := c.Line(LineKey("A", []ModifierSelection{{GroupID: "g1", OptionIDs: []string{"o2"}}}, ""))
	require.True(t, ok)
	assert.Equal(t, 1, second.Qty)
	assert.Equal(t, 4, c.Count())
}

func TestAddLine_ExistingLineKeepsPrice(t *testing.T) {
	c := NewCart()
	first := LineCandidate{ItemID: "A", Title: "Soup", Price: 5, UnitPrice: Float(6)}
	_, err := c.AddLine(first, 1)
	require.NoError(t, err)

	repriced := LineCandidate{ItemID: "A", Title: "Soup v2", Price: 7, UnitPrice: Float(9)}
	line, err := c.AddLine(repriced, 1)
	require.NoError(t, err)

	assert.Equal(t, "Soup", line.Title)
	assert.Equal(t, 6.0, line.EffectiveUnitPrice())
	assert.Equal(t, 12.0, c.Subtotal())
}

func TestAddLine_Guards(t *testing.T) {
	c := NewCart()

	_, err := c.AddLine(LineCandidate{ItemID: "  "}, 1)
	assert.ErrorIs(t, err, ErrMissingItemID)

	_, err = c.AddLine(LineCandidate{ItemID: "A"}, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	assert.Equal(t, 0, c.Len())
}

func TestAddLine_ExplicitKeyPreferredAndDeduped(t *testing.T) {
	c := NewCart()

	keyed, err := c.AddLine(LineCandidate{Key: "legacy-1", ItemID: "A", Price: 3}, 1)
	require.NoError(t, err)
	assert.Equal(t, "legacy-1", keyed.LineKey)

	// same content without a key lands on the keyed line
	merged, err := c.AddLine(LineCandidate{ItemID: "A", Price: 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, "legacy-1", merged.LineKey)
	assert.Equal(t, 3, merged.Qty)
	assert.Equal(t, 1, c.Len())
}

func TestSubtotal_FallsBackToBasePrice(t *testing.T) {
	c := NewCart()
	_, err := c.AddLine(LineCandidate{ItemID: "plain", Price: 4}, 2)
	require.NoError(t, err)
	_, err = c.AddLine(LineCandidate{ItemID: "priced", Price: 4, UnitPrice: Float(5.5),
		Modifiers: []ModifierSelection{{GroupID: "size", OptionIDs: []string{"l"}}}}, 1)
	require.NoError(t, err)

	assert.InDelta(t, 13.5, c.Subtotal(), 1e-9)
	assert.Equal(t, 3, c.Count())
}

func TestDecrementLine_ToZeroRemoves(t *testing.T) {
	c := NewCart()
	line, err := c.AddLine(LineCandidate{ItemID: "A", Price: 2}, 1)
	require.NoError(t, err)
	_, err = c.AddLine(LineCandidate{ItemID: "B", Price: 3}, 2)
	require.NoError(t, err)

	assert.True(t, c.DecrementLine(line.LineKey))

	_, ok := c.Line(line.LineKey)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, 6.0, c.Subtotal())
}

func TestDecrementLine_ByOne(t *testing.T) {
	c := NewCart()
	line, err := c.AddLine(LineCandidate{ItemID: "A", Price: 2}, 3)
	require.NoError(t, err)

	assert.True(t, c.DecrementLine(line.LineKey))
	got, ok := c.Line(line.LineKey)
	require.True(t, ok)
	assert.Equal(t, 2, got.Qty)
}

func TestDecrementLine_MissingIsNoop(t *testing.T) {
	c := NewCart()
	_, err := c.AddLine(LineCandidate{ItemID: "A"}, 1)
	require.NoError(t, err)

	assert.False(t, c.DecrementLine("nope"))
	assert.False(t, c.DecrementLine(""))
	assert.Equal(t, 1, c.Count())
}

func TestDecrementLine_ItemIDFallbackUsesMostRecent(t *testing.T) {
	c := NewCart()
	small, err := c.AddLine(candidate("A", map[string][]string{"size": {"s"}}), 2)
	require.NoError(t, err)
	large, err := c.AddLine(candidate("A", map[string][]string{"size": {"l"}}), 2)
	require.NoError(t, err)

	// large was touched last
	assert.True(t, c.DecrementLine("A"))
	got, _ := c.Line(large.LineKey)
	assert.Equal(t, 1, got.Qty)

	// adding to small makes it the most recent one
	_, err = c.AddLine(candidate("A", map[string][]string{"size": {"s"}}), 1)
	require.NoError(t, err)
	assert.True(t, c.DecrementLine("A"))
	got, _ = c.Line(small.LineKey)
	assert.Equal(t, 2, got.Qty)
	got, _ = c.Line(large.LineKey)
	assert.Equal(t, 1, got.Qty)
}

func TestRemoveLine(t *testing.T) {
	c := NewCart()
	a1, err := c.AddLine(candidate("A", map[string][]string{"g": {"1"}}), 1)
	require.NoError(t, err)
	_, err = c.AddLine(candidate("A", map[string][]string{"g": {"2"}}), 1)
	require.NoError(t, err)
	_, err = c.AddLine(candidate("B", nil), 4)
	require.NoError(t, err)

	assert.Equal(t, 1, c.RemoveLine(a1.LineKey))
	assert.Equal(t, 2, c.Len())

	// legacy bulk path by item id
	_, err = c.AddLine(candidate("A", map[string][]string{"g": {"3"}}), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, c.RemoveLine("A"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 4, c.Count())

	assert.Equal(t, 0, c.RemoveLine("missing"))
}

func TestSetContext(t *testing.T) {
	tests := []struct {
		name      string
		next      string
		reset     bool
		wantLines int
		wantReset bool
	}{
		{"different restaurant with reset", "r2", true, 0, true},
		{"different restaurant without reset", "r2", false, 1, false},
		{"same restaurant with reset", "r1", true, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCart()
			c.SetContext(CartContext{RestaurantID: "r1", CurrencySymbol: "$"}, true)
			_, err := c.AddLine(LineCandidate{ItemID: "A", Price: 1}, 1)
			require.NoError(t, err)

			reset := c.SetContext(CartContext{RestaurantID: tt.next, CurrencySymbol: "€"}, tt.reset)

			assert.Equal(t, tt.wantReset, reset)
			assert.Equal(t, tt.wantLines, c.Len())
			assert.Equal(t, tt.next, c.Context().RestaurantID)
			assert.Equal(t, "€", c.Context().CurrencySymbol)
		})
	}
}

func TestSetContext_FirstContextKeepsLines(t *testing.T) {
	c := NewCart()
	_, err := c.AddLine(LineCandidate{ItemID: "A"}, 1)
	require.NoError(t, err)

	assert.False(t, c.SetContext(CartContext{RestaurantID: "r1"}, true))
	assert.Equal(t, 1, c.Len())
}

func TestClear(t *testing.T) {
	c := NewCart()
	c.SetContext(CartContext{RestaurantID: "r1", RestaurantName: "Blue"}, false)
	_, err := c.AddLine(LineCandidate{ItemID: "A", Price: 1}, 2)
	require.NoError(t, err)

	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, CartContext{}, c.Context())
}

func TestLines_AreCopies(t *testing.T) {
	c := NewCart()
	_, err := c.AddLine(candidate("A", map[string][]string{"g": {"1"}}), 1)
	require.NoError(t, err)

	lines := c.Lines()
	lines[0].Qty = 99
	lines[0].Modifiers[0].OptionIDs[0] = "hacked"

	assert.Equal(t, 1, c.Count())
	assert.Equal(t, "1", c.Lines()[0].Modifiers[0].OptionIDs[0])
}

func TestRestoreCart_RoundTrip(t *testing.T) {
	c := NewCart()
	c.SetContext(CartContext{RestaurantID: "r1", CurrencySymbol: "$"}, false)
	_, err := c.AddLine(LineCandidate{Key: "legacy", ItemID: "A", Price: 1}, 1)
	require.NoError(t, err)
	_, err = c.AddLine(candidate("B", map[string][]string{"g": {"1"}}), 2)
	require.NoError(t, err)

	restored, err := RestoreCart(c.State(time.Now()))
	require.NoError(t, err)

	assert.Equal(t, c.Lines(), restored.Lines())
	assert.Equal(t, c.Context(), restored.Context())

	// content index survives: keyless add of A merges into the legacy line
	line, err := restored.AddLine(LineCandidate{ItemID: "A", Price: 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "legacy", line.LineKey)
	assert.Equal(t, 2, line.Qty)
}

func TestRestoreCart_RejectsOtherVersion(t *testing.T) {
	_, err := RestoreCart(CartState{SchemaVersion: CartSchemaVersion - 1})
	assert.ErrorIs(t, err, ErrStaleCartState)

	_, err = RestoreCart(CartState{SchemaVersion: CartSchemaVersion, Lines: []CartLine{{LineKey: "k", ItemID: "A", Qty: 0}}})
	assert.ErrorIs(t, err, ErrStaleCartState)
}

func TestStorageKey_Versioned(t *testing.T) {
	assert.Equal(t, "cart:v3:dine-in:device-1", StorageKey("dine-in", "device-1"))
}
