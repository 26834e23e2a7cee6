// Package items rebuilds the line-item table of a delivery note from its
// text lines and converts items to and from the compact one-line-per-item
// form used for storage and display.
package items

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// UnknownQuantity is the quantity of an item whose quantity was never found.
const UnknownQuantity = "?"

// Item is one product row of an order.
type Item struct {
	Sequence    int    `json:"sequence"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Warehouse   string `json:"warehouse,omitempty"`
}

// Compact renders the item as "<seq> - <desc> - <qty> tk - <warehouse>".
// The warehouse segment is omitted when empty and an unknown quantity is
// rendered as a bare "?". Dangling dashes are trimmed from the description
// and the warehouse is closed up so ParseCompact splits the line back at
// the same places.
func (it Item) Compact() string {
	qty := strings.TrimSpace(it.Quantity)
	if qty == "" || qty == UnknownQuantity {
		qty = UnknownQuantity
	} else {
		qty += " tk"
	}
	s := fmt.Sprintf("%d - %s - %s", it.Sequence, trimDashes(it.Description), qty)
	if wh := warehouseField(it.Warehouse); wh != "" {
		s += " - " + wh
	}
	return s
}

var (
	innerSepRe = regexp.MustCompile(`\s+-\s+`)
	edgeDashRe = regexp.MustCompile(`^-+\s+|\s+-+$|^-+$`)
)

// trimDashes drops dashes left dangling at either end of a field, as in
// "Sofa grey -".
func trimDashes(s string) string {
	return strings.TrimSpace(edgeDashRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

// warehouseField closes up an inner " - " so "Ware - A1" stays one segment.
func warehouseField(s string) string {
	return innerSepRe.ReplaceAllString(trimDashes(s), "-")
}

// FormatCompact renders items one per line.
func FormatCompact(items []Item) string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Compact()
	}
	return strings.Join(out, "\n")
}

// Merge combines the sweep's items with recovered ones. The first item seen
// for a sequence wins and the result is sorted by sequence.
func Merge(main, extra []Item) []Item {
	seen := make(map[int]bool, len(main)+len(extra))
	out := make([]Item, 0, len(main)+len(extra))
	for _, list := range [][]Item{main, extra} {
		for _, it := range list {
			if seen[it.Sequence] {
				continue
			}
			seen[it.Sequence] = true
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b Item) int { return cmp.Compare(a.Sequence, b.Sequence) })
	return out
}

// ---------------------------------------------------------------------------
// Compact parsing
// ---------------------------------------------------------------------------

var (
	compactQtyRe = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)(?:\s*(?:tk|kpl|pcs|pc))?$`)
	nonDigitRe   = regexp.MustCompile(`\D`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
)

// ParseCompact is the inverse of FormatCompact. Segments are read from the
// right because descriptions may themselves contain " - ". Lines without a
// leading number are numbered by position.
func ParseCompact(s string) []Item {
	var out []Item
	for _, raw := range strings.Split(s, "\n") {
		var parts []string
		for _, p := range strings.Split(strings.TrimSpace(raw), " - ") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}

		seq, err := strconv.Atoi(nonDigitRe.ReplaceAllString(parts[0], ""))
		numbered := err == nil
		body := parts
		if numbered {
			body = parts[1:]
		} else {
			seq = len(out) + 1
		}

		var it Item
		it.Sequence = seq
		switch {
		case len(body) >= 2 && isCompactQty(body[len(body)-1]):
			it.Quantity = body[len(body)-1]
			body = body[:len(body)-1]
		case len(body) >= 3:
			it.Warehouse = body[len(body)-1]
			it.Quantity = body[len(body)-2]
			body = body[:len(body)-2]
		}
		it.Description = collapse(strings.Join(body, " - "))
		it.Quantity = normalizeCompactQty(it.Quantity)
		it.Warehouse = collapse(it.Warehouse)
		out = append(out, it)
	}
	return out
}

func isCompactQty(s string) bool {
	return s == UnknownQuantity || compactQtyRe.MatchString(s)
}

func normalizeCompactQty(s string) string {
	s = collapse(s)
	if s == "" {
		return UnknownQuantity
	}
	if m := compactQtyRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}
