package domain

import (
	"fmt"
	"strings"
)

// ModifierOption is one choice inside a modifier group.
type ModifierOption struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	PriceDelta float64 `json:"price_delta"`
}

// ModifierGroup is a named choice set with selection bounds. Max == 0 means
// unbounded.
type ModifierGroup struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Min     int              `json:"min"`
	Max     int              `json:"max"`
	Options []ModifierOption `json:"options"`
}

// Product is a menu item as the cart needs it.
type Product struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Price  float64         `json:"price"`
	Groups []ModifierGroup `json:"groups,omitempty"`
}

// Candidate validates selections against the product's modifier groups and
// returns a line candidate whose unit price is the base price plus the
// deltas of every selected option.
func (p Product) Candidate(selections []ModifierSelection, note string) (LineCandidate, error) {
	if strings.TrimSpace(p.ID) == "" {
		return LineCandidate{}, ErrMissingItemID
	}

	norm := NormalizeSelections(selections)
	chosen := make(map[string][]string, len(norm))
	for _, s := range norm {
		chosen[s.GroupID] = s.OptionIDs
	}

	unit := p.Price
	known := make(map[string]bool, len(p.Groups))
	for _, g := range p.Groups {
		known[g.ID] = true
		opts := chosen[g.ID]
		if len(opts) < g.Min || (g.Max > 0 && len(opts) > g.Max) {
			return LineCandidate{}, fmt.Errorf("%w: group %q wants %d..%d, got %d",
				ErrModifierSelection, g.ID, g.Min, g.Max, len(opts))
		}
		for _, id := range opts {
			opt, ok := g.option(id)
			if !ok {
				return LineCandidate{}, fmt.Errorf("%w: option %q in group %q", ErrUnknownModifier, id, g.ID)
			}
			unit += opt.PriceDelta
		}
	}
	for gid := range chosen {
		if !known[gid] {
			return LineCandidate{}, fmt.Errorf("%w: group %q", ErrUnknownModifier, gid)
		}
	}

	return LineCandidate{
		ItemID:    p.ID,
		Title:     p.Title,
		Price:     p.Price,
		UnitPrice: Float(unit),
		Modifiers: norm,
		Note:      NormalizeNote(note),
	}, nil
}

func (g ModifierGroup) option(id string) (ModifierOption, bool) {
	for _, o := range g.Options {
		if o.ID == id {
			return o, true
		}
	}
	return ModifierOption{}, false
}
