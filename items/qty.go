package items

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hansjooseptammerik/logistics-automation-mvp/line"
)

var (
	// The keyword is bounded by non-word runes on both sides so "Tableware"
	// or "SOFTWARE" never match.
	warehouseRe = regexp.MustCompile(
		`(?i)(?:^|[^\p{L}\p{N}_])(WARE|SHOP|PEALADU|KAUPLUSE\s+LADU|[A-ZÕÄÖÜa-zõäöü]+\s+LADU)(?:$|[^\p{L}\p{N}_])`)
	gluedTKRe  = regexp.MustCompile(`(?i)(TK)(\d)`)
	trailQtyRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:TK|KPL|PCS|PC)?\s*$`)
)

// qtyWarehouse is what a line yields when it carries a warehouse keyword.
// before is the text left of the quantity; empty when the line is just
// "<qty> <warehouse> [bin]".
type qtyWarehouse struct {
	qty       string
	warehouse string
	before    string
}

// splitQtyWarehouse finds the warehouse keyword on s and the quantity that
// sits immediately before it. A line without a warehouse keyword yields
// nothing, so numbers inside descriptions are never read as quantities.
func splitQtyWarehouse(s string) (qtyWarehouse, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return qtyWarehouse{}, false
	}
	s = gluedTKRe.ReplaceAllString(s, "$1 $2")

	loc := warehouseRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return qtyWarehouse{}, false
	}
	out := qtyWarehouse{warehouse: normalizeWarehouse(s[loc[2]:loc[3]])}

	before := strings.TrimSpace(s[:loc[2]])
	if m := trailQtyRe.FindStringSubmatchIndex(before); m != nil {
		out.qty = before[m[2]:m[3]]
		before = strings.TrimSpace(before[:m[0]])
	}
	out.before = before
	return out, true
}

func normalizeWarehouse(wh string) string {
	wh = line.Clean(wh)
	switch strings.ToUpper(wh) {
	case "PEALADU":
		return "Pealadu"
	case "KAUPLUSE LADU":
		return "Kaupluse ladu"
	}
	r, size := utf8.DecodeRuneInString(wh)
	if r == utf8.RuneError {
		return wh
	}
	return string(unicode.ToUpper(r)) + wh[size:]
}
