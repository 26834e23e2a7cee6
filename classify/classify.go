// Package classify labels single delivery-note lines: table headers,
// footers, inventory noise, bin codes, address lines, note openings and
// phone numbers. Every predicate is pure and looks at one line only.
package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hansjooseptammerik/logistics-automation-mvp/line"
)

// headerTokens is the column-header vocabulary of the item table in both
// template languages. A header line carries at least headerQuorum of them.
var headerTokens = []string{
	"NR", "NO", "KOOD", "CODE", "ARTIKKEL", "DESCRIPTION",
	"KOGUS", "QUANTITY", "LADU", "LOCATION",
}

const headerQuorum = 4

// Footer markers. Estonian ones are literal prefixes.
var footerPrefixes = []string{
	"Dokumendi koostas:",
	"Allkiri",
	"Jääb tasuda",
	"Kaup kuulub",
	"NB!",
	"Vastuvõtja",
	"KAUP KÄTTE SAADUD",
	"Kliendi nimi ja allkiri",
	"Pealadu:",
	"Kaupluse ladu:",
}

var footerRe = regexp.MustCompile(`(?i)^(?:` +
	`Document\s+created\s*by\s*:` +
	`|E-?mail\s*:` +
	`|Telephone\s*:` +
	`|Signature\b` +
	`|Balance\s*:` +
	`|Demo\s+Terms` +
	`|The\s+goods\s+remain` +
	`|GOODS\s+RECEIVED` +
	`|Customer\s+Name\s+and\s+Signature` +
	`|(?:Main\s+store|Warehouse\s+store)\s*:` +
	`)`)

var (
	noiseCodeRe    = regexp.MustCompile(`^\d{6,}$`)
	locationOnlyRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-._/]{2,}$`)
	digitRe        = regexp.MustCompile(`\d`)
	lowerStartRe   = regexp.MustCompile(`^[a-zõäöüšž]`)

	authorLabelRe    = regexp.MustCompile(`(?i)^Document\s+created\s*by\s*:`)
	recipientLabelRe = regexp.MustCompile(`(?i)^(?:Recipient|Receiver)\s*:`)
	contactLabelRe   = regexp.MustCompile(`(?i)^(?:Phone|Telephone|E-mail|Email)\s*:?`)
	orderNrRe        = regexp.MustCompile(`(?i)^Order\s+nr\.`)
)

// maxAddressRunes bounds the "has a digit and is short" address rule.
const maxAddressRunes = 64

var streetKeywords = NewKeywordSet(
	" TN", " TEE", " MNT", " PST", " PUIEST", " TÄNAV", " MAANTEE", " PST.",
)

var knownCities = map[string]bool{
	"TALLINN":    true,
	"TARTU":      true,
	"PÄRNU":      true,
	"VIIMSI":     true,
	"NARVA":      true,
	"RAKVERE":    true,
	"HAAPSALU":   true,
	"KURESSAARE": true,
}

var noteKeywords = NewKeywordSet(
	"SOOVIB", "PALUN", "VÕTTA", "VOTTA", "SOBIB", "TÄNA", "HOMME",
	"JÄRGM", "JÄRGMI", "RAINIST",
)

// AuthorLabel is the Estonian document-author label; everything from it on
// is boilerplate.
const AuthorLabel = "Dokumendi koostas:"

// IsTableHeader reports whether s is an item-table column header row.
func IsTableHeader(s string) bool {
	u := line.CompactUpper(s)
	if u == "" {
		return false
	}
	n := 0
	for _, tok := range headerTokens {
		if strings.Contains(u, tok) {
			n++
		}
	}
	return n >= headerQuorum
}

// IsFooter reports whether s ends the item table on the current page.
func IsFooter(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, p := range footerPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return footerRe.MatchString(s)
}

// IsNoiseCode reports whether s is a bare inventory code of six or more
// digits.
func IsNoiseCode(s string) bool {
	return noiseCodeRe.MatchString(strings.TrimSpace(s))
}

// IsLocationOnly reports whether s is just a bin or shelf code.
func IsLocationOnly(s string) bool {
	return locationOnlyRe.MatchString(strings.TrimSpace(s))
}

// LooksLikeAddress reports whether s could be a line of a postal address.
func LooksLikeAddress(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u := strings.ToUpper(s)
	if streetKeywords.Contains(u) {
		return true
	}
	if digitRe.MatchString(s) && utf8.RuneCountInString(s) <= maxAddressRunes {
		return true
	}
	return knownCities[u]
}

// LooksLikeNoteStart reports whether s reads like the first line of a
// free-text note rather than another address line.
func LooksLikeNoteStart(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if lowerStartRe.MatchString(s) {
		return true
	}
	if noteKeywords.Contains(s) {
		return true
	}
	return strings.Contains(s, ".") && len(strings.Fields(s)) >= 2
}

// IsAuthorLabel reports whether s opens the document-author block.
func IsAuthorLabel(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, AuthorLabel) || authorLabelRe.MatchString(s)
}

// IsRecipientLabel reports whether s starts with a Recipient/Receiver label.
func IsRecipientLabel(s string) bool {
	return recipientLabelRe.MatchString(strings.TrimSpace(s))
}

// IsAddressStop reports whether s ends a ship-to address block.
func IsAddressStop(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if IsTableHeader(s) || IsFooter(s) {
		return true
	}
	u := strings.ToUpper(s)
	for _, p := range []string{"NR ", "NO ", "CODE ", "DESCRIPTION "} {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	if IsAuthorLabel(s) || IsRecipientLabel(s) || contactLabelRe.MatchString(s) || orderNrRe.MatchString(s) {
		return true
	}
	for _, p := range []string{"SIGNATURE", "BALANCE", "DEMO TERMS", "GOODS RECEIVED"} {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// IsDocAuthorLine reports whether s belongs to the document author's own
// contact block, whose phone must never be taken for the customer's.
func IsDocAuthorLine(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(l, "dokumendi koostas:") ||
		(strings.Contains(l, "document") && strings.Contains(l, "created")) ||
		strings.HasPrefix(l, "e-mail:") ||
		strings.HasPrefix(l, "signature")
}

// IsWarehouseWord reports whether tok names a warehouse, which makes a
// "<n> <tok>" line a quantity/warehouse continuation instead of a new row.
func IsWarehouseWord(tok string) bool {
	l := strings.ToLower(tok)
	switch l {
	case "pealadu", "ladu", "kaupluse":
		return true
	}
	return strings.HasSuffix(l, "ladu")
}

// Classified is a line with every predicate evaluated once.
type Classified struct {
	Text         string `json:"text"`
	TableHeader  bool   `json:"table_header,omitempty"`
	Footer       bool   `json:"footer,omitempty"`
	NoiseCode    bool   `json:"noise_code,omitempty"`
	LocationOnly bool   `json:"location_only,omitempty"`
	AddressLike  bool   `json:"address_like,omitempty"`
	NoteStart    bool   `json:"note_start,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// Classify evaluates every predicate on s. The result is a snapshot;
// callers that depend on context re-derive what they need.
func Classify(s string) Classified {
	c := Classified{
		Text:         s,
		TableHeader:  IsTableHeader(s),
		Footer:       IsFooter(s),
		NoiseCode:    IsNoiseCode(s),
		LocationOnly: IsLocationOnly(s),
		AddressLike:  LooksLikeAddress(s),
		NoteStart:    LooksLikeNoteStart(s),
	}
	if raw, ok := LabeledPhone(s); ok {
		c.Phone = raw
	} else if IsStandalonePhone(s) {
		c.Phone = strings.TrimSpace(s)
	}
	return c
}
