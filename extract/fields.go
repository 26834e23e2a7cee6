// Package extract holds the single-field scanners of the order parser.
// Each extractor is an independent pass over the document lines (or the
// joined text) and resolves a miss to the empty string.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hansjooseptammerik/logistics-automation-mvp/classify"
	"github.com/hansjooseptammerik/logistics-automation-mvp/line"
)

var orderRefRe = regexp.MustCompile(`Order nr\.\s*(\d+/\d{2}\.\d{2}\.\d{4})`)

// OrderRef returns the "digits/dd.mm.yyyy" reference following "Order nr.".
func OrderRef(text string) string {
	m := orderRefRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ---------------------------------------------------------------------------
// Recipient
// ---------------------------------------------------------------------------

var recipientLabels = []string{
	"Recipient:", "Receiver:", "Vastuvõtja:", "Kaubasaaja:", "Customer:",
}

var (
	gluedRecipientRe = regexp.MustCompile(`(?i)^(?:Receiver|Recipient)\s*:\s*(.+)$`)
	nameFieldRe      = regexp.MustCompile(`(?i)\bName\s*:\s*(.+)$`)
	phoneLabelRe     = regexp.MustCompile(`(?i)\b(?:Phone|Telephone|Telefon|Mobiil|Tel)\b\.?\s*:?`)
	trailingLabelRe  = regexp.MustCompile(`(?i)\s*\b(?:Phone|Telephone|Telefon|Mobiil|Tel)\b\.?\s*:?.*$`)
	trailingNumberRe = regexp.MustCompile(`\s*[\(\+]?\d[\d\s\-\(\)\+]{5,}\s*$`)
)

// RecipientName returns the customer name from the first line carrying a
// recipient label, a glued Receiver:/Recipient: prefix, or an embedded
// "Name: X" field. Any trailing phone label or number is stripped.
func RecipientName(lines []string) string {
	name := ""
	for _, raw := range lines {
		s := strings.TrimSpace(raw)
		if line.IsBlank(s) {
			continue
		}
		if name = labelledRecipient(s); name != "" {
			break
		}
		if m := gluedRecipientRe.FindStringSubmatch(s); m != nil {
			name = line.Clean(m[1])
			break
		}
		if m := nameFieldRe.FindStringSubmatch(s); m != nil {
			cand := line.Clean(phoneLabelRe.Split(m[1], 2)[0])
			if utf8.RuneCountInString(cand) >= 2 {
				name = cand
				break
			}
		}
	}
	return cleanName(name)
}

func labelledRecipient(s string) string {
	low := strings.ToLower(s)
	for _, lbl := range recipientLabels {
		if strings.HasPrefix(low, strings.ToLower(lbl)) {
			_, after, _ := strings.Cut(s, ":")
			return line.Clean(after)
		}
	}
	return ""
}

func cleanName(name string) string {
	if name == "" {
		return ""
	}
	name = strings.TrimSpace(trailingLabelRe.ReplaceAllString(name, ""))
	return strings.TrimSpace(trailingNumberRe.ReplaceAllString(name, ""))
}

// ---------------------------------------------------------------------------
// Document author
// ---------------------------------------------------------------------------

// AuthorBlock is the contact block of whoever issued the document.
type AuthorBlock struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// authorPhoneSpan is how many lines after the author label may carry the
// author's phone.
const authorPhoneSpan = 2

var (
	authorEtRe    = regexp.MustCompile(`Dokumendi koostas:\s*(.+)`)
	authorEnRe    = regexp.MustCompile(`(?i)Document\s+created\s*by\s*:\s*(.+)`)
	emailRe       = regexp.MustCompile(`E-mail:\s*(\S+)`)
	authorPhoneRe = regexp.MustCompile(`(?i)\b(?:Phone|Telephone|Telefon|Mobiil|Tel)\b\.?\s*:?\s*([+\(\)\d][\d\s\(\)\+\-]+)`)
)

// Author extracts the document author's name, e-mail and phone. The Estonian
// label wins over the English one.
func Author(lines []string, text string) AuthorBlock {
	var a AuthorBlock
	if m := authorEtRe.FindStringSubmatch(text); m != nil {
		a.Name = line.Clean(m[1])
	}
	if a.Name == "" {
		if m := authorEnRe.FindStringSubmatch(text); m != nil {
			a.Name = line.Clean(m[1])
		}
	}
	if m := emailRe.FindStringSubmatch(text); m != nil {
		a.Email = line.Clean(m[1])
	}
	a.Phone = authorPhone(lines)
	return a
}

func authorPhone(lines []string) string {
	start := -1
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), classify.AuthorLabel) {
			start = i
			break
		}
	}
	if start < 0 {
		for i, l := range lines {
			if classify.IsAuthorLabel(l) {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return ""
	}
	for i := start; i <= start+authorPhoneSpan && i < len(lines); i++ {
		if m := authorPhoneRe.FindStringSubmatch(lines[i]); m != nil {
			return line.Clean(m[1])
		}
	}
	return ""
}
