package classify

import (
	"regexp"
	"strings"
)

var (
	labeledPhoneRe = regexp.MustCompile(
		`(?i)(?:^|\b)(?:Phone|Telephone|Telefon|Mobiil|Tel)\b\.?\s*:?\s*([\(+\d][\d\s\-\(\)\+]{4,})`)
	phoneLabelStartRe = regexp.MustCompile(`(?i)^(?:Phone|Telephone|Telefon|Mobiil|Tel)\b`)
	standalonePhoneRe = regexp.MustCompile(`^\s*\+?\d[\d\s\-\(\)]{6,}\s*$`)
)

// LabeledPhone returns the raw number following a Phone/Tel/Mobiil/Telephone
// label anywhere in s.
func LabeledPhone(s string) (string, bool) {
	m := labeledPhoneRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// StartsWithPhoneLabel reports whether s opens with a phone label.
func StartsWithPhoneLabel(s string) bool {
	return phoneLabelStartRe.MatchString(strings.TrimSpace(s))
}

// IsStandalonePhone reports whether s is nothing but a phone-shaped number.
func IsStandalonePhone(s string) bool {
	return standalonePhoneRe.MatchString(s)
}
