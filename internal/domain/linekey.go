package domain

import (
	"net/url"
	"sort"
	"strings"
)

// LineKey derives the identity of a cart row from its content.
//
// Selections are normalized first (see NormalizeSelections) so neither the
// order of groups nor the order of options inside a group changes the key.
// Each component is query-escaped before it is joined, which keeps the
// encoding injective even when ids contain the separator characters.
func LineKey(itemID string, selections []ModifierSelection, note string) string {
	norm := NormalizeSelections(selections)

	var b strings.Builder
	b.WriteString(url.QueryEscape(strings.TrimSpace(itemID)))
	b.WriteByte('|')
	for i, s := range norm {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(url.QueryEscape(s.GroupID))
		b.WriteByte(':')
		for j, opt := range s.OptionIDs {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(url.QueryEscape(opt))
		}
	}
	b.WriteByte('|')
	b.WriteString(url.QueryEscape(NormalizeNote(note)))
	return b.String()
}

// NormalizeSelections trims group ids, trims, dedupes and sorts option ids,
// drops groups left without options and sorts groups by id. Two entries for
// the same group are merged. The input is not modified.
func NormalizeSelections(selections []ModifierSelection) []ModifierSelection {
	if len(selections) == 0 {
		return nil
	}

	byGroup := make(map[string]map[string]struct{}, len(selections))
	for _, s := range selections {
		gid := strings.TrimSpace(s.GroupID)
		if gid == "" {
			continue
		}
		set, ok := byGroup[gid]
		if !ok {
			set = make(map[string]struct{}, len(s.OptionIDs))
			byGroup[gid] = set
		}
		for _, opt := range s.OptionIDs {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				continue
			}
			set[opt] = struct{}{}
		}
	}

	out := make([]ModifierSelection, 0, len(byGroup))
	for gid, set := range byGroup {
		if len(set) == 0 {
			continue
		}
		opts := make([]string, 0, len(set))
		for opt := range set {
			opts = append(opts, opt)
		}
		sort.Strings(opts)
		out = append(out, ModifierSelection{GroupID: gid, OptionIDs: opts})
	}
	if len(out) == 0 {
		return nil
	}

	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out
}

// NormalizeNote trims a free-text note. An absent note is the empty string.
func NormalizeNote(note string) string {
	return strings.TrimSpace(note)
}

// Normalize returns a copy of the candidate with item id, selections and note
// normalized, which is the shape stored on a new line.
func (c LineCandidate) Normalize() LineCandidate {
	n := c
	n.Key = strings.TrimSpace(c.Key)
	n.ItemID = strings.TrimSpace(c.ItemID)
	n.Title = strings.TrimSpace(c.Title)
	n.Modifiers = NormalizeSelections(c.Modifiers)
	n.Note = NormalizeNote(c.Note)
	if c.UnitPrice != nil {
		p := *c.UnitPrice
		n.UnitPrice = &p
	}
	return n
}

// ContentKey is the derived key of the candidate, ignoring Key.
func (c LineCandidate) ContentKey() string {
	return LineKey(c.ItemID, c.Modifiers, c.Note)
}

// StoredKey is the key a new line for this candidate is stored under: the
// pre-assigned key when present, the derived one otherwise.
func (c LineCandidate) StoredKey() string {
	if k := strings.TrimSpace(c.Key); k != "" {
		return k
	}
	return c.ContentKey()
}
