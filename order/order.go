// Package order assembles the parsed delivery-note record from the field
// extractors and the item table. Parse is a pure function of its input
// lines and is safe for concurrent use.
package order

import (
	"net/url"
	"strings"

	"github.com/hansjooseptammerik/logistics-automation-mvp/extract"
	"github.com/hansjooseptammerik/logistics-automation-mvp/items"
	"github.com/hansjooseptammerik/logistics-automation-mvp/line"
)

// Record is everything the parser extracts from one delivery note.
type Record struct {
	OrderRef      string       `json:"order_ref"`
	RecipientName string       `json:"recipient_name"`
	ShipAddress   string       `json:"ship_address"`
	Notes         string       `json:"pdf_notes"`
	DocAuthor     string       `json:"doc_author"`
	DocEmail      string       `json:"doc_email"`
	DocPhone      string       `json:"doc_phone"`
	ClientPhone   string       `json:"client_phone"`
	ServiceTag    string       `json:"service_tag"`
	Items         []items.Item `json:"items"`
	ItemsCompact  string       `json:"items_compact"`
}

// Parse extracts a Record from document lines. Lines are never modified.
// A document that matches nothing yields empty fields, never an error.
func Parse(lines []string) Record {
	text := line.Join(lines)
	author := extract.Author(lines, text)

	r := Record{
		OrderRef:      extract.OrderRef(text),
		RecipientName: extract.RecipientName(lines),
		ShipAddress:   extract.ShipAddress(lines),
		Notes:         extract.Notes(lines),
		DocAuthor:     author.Name,
		DocEmail:      author.Email,
		DocPhone:      author.Phone,
		ClientPhone:   extract.ClientPhone(lines),
	}

	rec := items.NewReconstructor()
	main := rec.Reconstruct(lines)
	extra := items.RecoverDetached(lines, rec.Next())
	r.Items = items.Merge(main, extra)
	r.ItemsCompact = items.FormatCompact(r.Items)

	r.ServiceTag = extract.ServiceTag(r.Notes, r.ItemsCompact, text)
	return r
}

// ParseText splits extracted text into lines and parses it.
func ParseText(text string) Record {
	return Parse(line.Split(text))
}

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

// MapLink returns a Google Maps search URL for address.
func MapLink(address string) string {
	return mapsSearchURL + url.QueryEscape(strings.TrimSpace(address))
}

// CallLink returns a tel: URL for phone, or "" when phone is empty.
func CallLink(phone string) string {
	p := extract.NormalizePhone(phone, 1)
	if p == "" {
		return ""
	}
	return "tel:" + p
}
