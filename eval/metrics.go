package eval

import (
	"strings"
	"unicode"

	"github.com/hansjooseptammerik/logistics-automation-mvp/items"
	"github.com/hansjooseptammerik/logistics-automation-mvp/order"
)

// fieldGetters reads a record field by its JSON name.
var fieldGetters = map[string]func(order.Record) string{
	"order_ref":      func(r order.Record) string { return r.OrderRef },
	"recipient_name": func(r order.Record) string { return r.RecipientName },
	"ship_address":   func(r order.Record) string { return r.ShipAddress },
	"pdf_notes":      func(r order.Record) string { return r.Notes },
	"doc_author":     func(r order.Record) string { return r.DocAuthor },
	"doc_email":      func(r order.Record) string { return r.DocEmail },
	"doc_phone":      func(r order.Record) string { return r.DocPhone },
	"client_phone":   func(r order.Record) string { return r.ClientPhone },
	"service_tag":    func(r order.Record) string { return r.ServiceTag },
	"items_compact":  func(r order.Record) string { return r.ItemsCompact },
}

// normalizeSpaces maps Unicode spaces and hyphens to ASCII, strips
// zero-width characters and collapses whitespace runs, so labels typed by
// hand compare equal to extracted text.
func normalizeSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r == '\u2010' || r == '\u2011' || r == '\u2012' || r == '\u2013' || r == '\u2014':
			b.WriteByte('-')
		case r == '\u200B' || r == '\u200C' || r == '\u200D' || r == '\uFEFF':
			// zero-width
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func fieldMatches(got, want string) bool {
	return normalizeSpaces(got) == normalizeSpaces(want)
}

func itemMatches(got, want items.Item) bool {
	return got.Sequence == want.Sequence &&
		normalizeSpaces(got.Quantity) == normalizeSpaces(want.Quantity) &&
		strings.EqualFold(normalizeSpaces(got.Warehouse), normalizeSpaces(want.Warehouse)) &&
		strings.EqualFold(normalizeSpaces(got.Description), normalizeSpaces(want.Description))
}

// itemScores returns precision and recall of the extracted items against
// the expected ones. Two empty lists score 1/1.
func itemScores(got, want []items.Item) (precision, recall float64) {
	if len(got) == 0 && len(want) == 0 {
		return 1, 1
	}
	used := make([]bool, len(want))
	matched := 0
	for _, g := range got {
		for j, w := range want {
			if !used[j] && itemMatches(g, w) {
				used[j] = true
				matched++
				break
			}
		}
	}
	if len(got) > 0 {
		precision = float64(matched) / float64(len(got))
	}
	if len(want) > 0 {
		recall = float64(matched) / float64(len(want))
	} else {
		recall = 1
	}
	return precision, recall
}
