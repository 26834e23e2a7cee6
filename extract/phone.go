package extract

import (
	"regexp"
	"strings"

	"github.com/hansjooseptammerik/logistics-automation-mvp/classify"
	"github.com/hansjooseptammerik/logistics-automation-mvp/line"
)

const (
	// MinPhoneDigits is the shortest number the scored search accepts.
	MinPhoneDigits = 5
	// MinBottomPhoneDigits is the shortest number the bottom scan accepts.
	MinBottomPhoneDigits = 7
	// bottomWindow is how many trailing lines the bottom scan searches.
	bottomWindow = 25
)

var (
	nonPhoneRe = regexp.MustCompile(`[^\d+]+`)
	nonDigitRe = regexp.MustCompile(`\D`)
)

// NormalizePhone keeps digits and '+', rewrites a leading "00" to "+", and
// returns "" when fewer than minDigits digits remain.
func NormalizePhone(p string, minDigits int) string {
	p = nonPhoneRe.ReplaceAllString(strings.TrimSpace(p), "")
	if strings.HasPrefix(p, "00") {
		p = "+" + p[2:]
	}
	if len(nonDigitRe.ReplaceAllString(p, "")) < minDigits {
		return ""
	}
	return p
}

// PhoneStrategy proposes a customer phone, or "" when it has nothing.
type PhoneStrategy func(lines []string) string

// PhoneWeights are the hand-tuned voter weights of the scored phone search.
// They separate the customer phone from the shop and author phones on the
// known templates and carry no deeper meaning; tune them per template.
type PhoneWeights struct {
	Label      float64 // line starts with a phone label
	Standalone float64 // line is nothing but a number
	NameLine   float64 // phone sits on a "Name:" line
	StoreHours float64 // one of the two previous lines is an "Open M-F" notice
	Position   float64 // scaled by line index / line count
}

// DefaultPhoneWeights are calibrated on the known vendor templates.
var DefaultPhoneWeights = PhoneWeights{
	Label:      10,
	Standalone: 8,
	NameLine:   -2,
	StoreHours: -6,
	Position:   2.0,
}

// DefaultPhoneStrategies is the chain ClientPhone runs.
var DefaultPhoneStrategies = []PhoneStrategy{
	ScoredPhone(DefaultPhoneWeights),
	BottomPhone,
}

// ClientPhone returns the customer's normalised phone number.
func ClientPhone(lines []string) string {
	return FirstPhone(lines, DefaultPhoneStrategies...)
}

// FirstPhone runs strategies in order and returns the first non-empty
// answer.
func FirstPhone(lines []string, strategies ...PhoneStrategy) string {
	for _, s := range strategies {
		if p := s(lines); p != "" {
			return p
		}
	}
	return ""
}

// PhoneCandidate is one scored phone vote.
type PhoneCandidate struct {
	Line  int
	Phone string
	Score float64
}

var (
	nameLineRe = regexp.MustCompile(`(?i)\bName\s*:`)
	// "<seq> <code>" item rows are number-shaped but never phones.
	seqCodeRe = regexp.MustCompile(`^\d{1,3}\s+\d{5,}$`)
)

// PhoneCandidates scores every phone-bearing line. The document author's
// block and labelled phones right after it are excluded.
func PhoneCandidates(lines []string, w PhoneWeights) []PhoneCandidate {
	n := len(lines)
	authorEnd := -1
	var out []PhoneCandidate
	for i, raw := range lines {
		s := strings.TrimSpace(raw)
		if line.IsBlank(s) {
			continue
		}
		if classify.IsAuthorLabel(s) {
			authorEnd = i + authorPhoneSpan
		}
		if classify.IsDocAuthorLine(s) {
			continue
		}

		var (
			phone string
			score float64
		)
		if rawPhone, ok := classify.LabeledPhone(s); ok {
			// The author's own labelled phone follows the author label.
			if i <= authorEnd {
				continue
			}
			if phone = NormalizePhone(rawPhone, MinPhoneDigits); phone != "" {
				if classify.StartsWithPhoneLabel(s) {
					score += w.Label
				}
				if nameLineRe.MatchString(s) {
					score += w.NameLine
				}
			}
		} else if classify.IsStandalonePhone(s) && !seqCodeRe.MatchString(s) {
			if phone = NormalizePhone(s, MinPhoneDigits); phone != "" {
				score += w.Standalone
			}
		}
		if phone == "" {
			continue
		}

		if nearStoreHours(lines, i) {
			score += w.StoreHours
		}
		score += float64(i) / float64(n) * w.Position
		out = append(out, PhoneCandidate{Line: i, Phone: phone, Score: score})
	}
	return out
}

func nearStoreHours(lines []string, i int) bool {
	prev := strings.ToLower(line.At(lines, i-1) + " " + line.At(lines, i-2))
	return strings.Contains(prev, "open m-f") ||
		(strings.Contains(prev, "open") && strings.Contains(prev, "m-f"))
}

// ScoredPhone returns a strategy that picks the best-scoring candidate; the
// later line wins ties.
func ScoredPhone(w PhoneWeights) PhoneStrategy {
	return func(lines []string) string {
		var (
			best  string
			score float64
		)
		for _, c := range PhoneCandidates(lines, w) {
			if best == "" || c.Score >= score {
				best, score = c.Phone, c.Score
			}
		}
		return best
	}
}

var (
	bottomStandaloneRe = regexp.MustCompile(`^\+\d[\d\s]{6,}\d$`)
	bottomAnyRe        = regexp.MustCompile(`\+\d[\d\s\-\(\)]{6,}\d`)
)

// BottomPhone returns the last standalone international number in the
// document, or else the last phone-shaped text within the final lines that
// is not part of the author block.
func BottomPhone(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		s := strings.TrimSpace(lines[i])
		if bottomStandaloneRe.MatchString(s) {
			if p := NormalizePhone(s, MinBottomPhoneDigits); p != "" {
				return p
			}
			return ""
		}
	}

	from := max(len(lines)-bottomWindow, 0)
	for i := len(lines) - 1; i >= from; i-- {
		s := strings.TrimSpace(lines[i])
		if line.IsBlank(s) {
			continue
		}
		low := strings.ToLower(s)
		if strings.Contains(low, "telephone:") || strings.Contains(low, "document created") ||
			strings.Contains(low, "e-mail") {
			continue
		}
		if m := bottomAnyRe.FindString(s); m != "" {
			if p := NormalizePhone(m, MinBottomPhoneDigits); p != "" {
				return p
			}
		}
	}
	return ""
}
