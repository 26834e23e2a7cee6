package extract

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hansjooseptammerik/logistics-automation-mvp/classify"
	"github.com/hansjooseptammerik/logistics-automation-mvp/line"
)

// ShipToLabel is the Estonian ship-to label. Its presence also enables
// note extraction.
const ShipToLabel = "Lähetusaadress:"

const (
	// MaxAddressLines caps the ship-to block.
	MaxAddressLines = 3
	// MaxNotesRunes caps the notes block before the ellipsis is appended.
	MaxNotesRunes = 900
	// Ellipsis marks truncated notes.
	Ellipsis = "…"
)

// AddressWeights scores "Address:" candidates when no ship-to label exists.
type AddressWeights struct {
	RemainderLooksLikeAddress float64
	NextLooksLikeAddress      float64
	NearAnchor                float64
	NearAnchorSpan            int
	DistanceCap               int
	DistanceDivisor           float64
}

// DefaultAddressWeights are calibrated on the known vendor templates.
var DefaultAddressWeights = AddressWeights{
	RemainderLooksLikeAddress: 6,
	NextLooksLikeAddress:      3,
	NearAnchor:                5,
	NearAnchorSpan:            6,
	DistanceCap:               200,
	DistanceDivisor:           10,
}

var (
	addressLabelRe = regexp.MustCompile(`(?i)^(?:Address|Aadress)\b\s*:?`)
	anchorRe       = regexp.MustCompile(`(?i)^(?:Receiver|Recipient)\s*:`)
)

// ShipAddress returns up to three ship-to address lines joined by "\n".
func ShipAddress(lines []string) string {
	start, rest := shipToStart(lines)
	if start < 0 {
		start, rest = bestAddressCandidate(lines, DefaultAddressWeights)
	}
	if start < 0 {
		return ""
	}

	var ship []string
	if rest = line.Clean(rest); rest != "" {
		ship = append(ship, rest)
	}
	for j := start + 1; j < len(lines) && len(ship) < MaxAddressLines; j++ {
		l := strings.TrimSpace(lines[j])
		if line.IsBlank(l) {
			continue
		}
		if classify.IsAddressStop(l) {
			break
		}
		if len(ship) > 0 && !classify.LooksLikeAddress(l) {
			break
		}
		if c := line.Clean(l); c != "" {
			ship = append(ship, c)
		}
	}
	return strings.Join(ship, "\n")
}

// shipToStart finds the first ship-to label line and the text after it.
func shipToStart(lines []string) (int, string) {
	for i, l := range lines {
		if idx := strings.Index(l, ShipToLabel); idx >= 0 {
			return i, l[idx+len(ShipToLabel):]
		}
	}
	return -1, ""
}

// AddressCandidate is one scored "Address:" line.
type AddressCandidate struct {
	Line      int
	Remainder string
	Score     float64
}

// AddressCandidates scores every "Address:"/"Aadress:" line against the
// first Receiver/Recipient anchor.
func AddressCandidates(lines []string, w AddressWeights) []AddressCandidate {
	anchor := -1
	for i, l := range lines {
		if anchorRe.MatchString(strings.TrimSpace(l)) {
			anchor = i
			break
		}
	}

	var out []AddressCandidate
	for i, l := range lines {
		s := strings.TrimSpace(l)
		if s == "" || !addressLabelRe.MatchString(s) {
			continue
		}
		rest := addressRemainder(s)
		score := 0.0
		if rest != "" && classify.LooksLikeAddress(rest) {
			score += w.RemainderLooksLikeAddress
		}
		if j := line.NextNonBlank(lines, i); j >= 0 && classify.LooksLikeAddress(lines[j]) {
			score += w.NextLooksLikeAddress
		}
		if anchor >= 0 {
			d := i - anchor
			score -= math.Min(math.Abs(float64(d)), float64(w.DistanceCap)) / w.DistanceDivisor
			if d >= 0 && d <= w.NearAnchorSpan {
				score += w.NearAnchor
			}
		}
		out = append(out, AddressCandidate{Line: i, Remainder: rest, Score: score})
	}
	return out
}

// bestAddressCandidate picks the highest score; the earliest line wins ties.
func bestAddressCandidate(lines []string, w AddressWeights) (int, string) {
	best := -1
	var bestScore float64
	var rest string
	for _, c := range AddressCandidates(lines, w) {
		if best < 0 || c.Score > bestScore {
			best, bestScore, rest = c.Line, c.Score, c.Remainder
		}
	}
	return best, rest
}

func addressRemainder(s string) string {
	if _, after, ok := strings.Cut(s, ":"); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(addressLabelRe.ReplaceAllString(s, ""))
}

// ---------------------------------------------------------------------------
// Notes
// ---------------------------------------------------------------------------

// Notes returns the free-text block below the ship-to address, up to the
// item table or the author block. Only documents with the ship-to label
// carry notes.
func Notes(lines []string) string {
	start, _ := shipToStart(lines)
	if start < 0 {
		return ""
	}

	// Skip the address continuation until the first note opening.
	j := start + 1
	for ; j < len(lines); j++ {
		l := strings.TrimSpace(lines[j])
		if line.IsBlank(l) {
			continue
		}
		if classify.IsTableHeader(l) || classify.IsAuthorLabel(l) {
			return ""
		}
		if classify.IsRecipientLabel(l) || strings.HasPrefix(l, "Order nr.") ||
			strings.HasPrefix(l, "Phone:") || strings.HasPrefix(l, "E-mail:") {
			return ""
		}
		if classify.LooksLikeNoteStart(l) || !classify.LooksLikeAddress(l) {
			break
		}
	}

	var notes []string
	for ; j < len(lines); j++ {
		l := strings.TrimSpace(lines[j])
		if line.IsBlank(l) {
			continue
		}
		if classify.IsTableHeader(l) || classify.IsAuthorLabel(l) {
			break
		}
		if classify.IsRecipientLabel(l) || strings.HasPrefix(l, "Order nr.") {
			continue
		}
		notes = append(notes, line.Clean(l))
	}
	return Truncate(strings.Join(notes, "\n"), MaxNotesRunes)
}

// Truncate cuts s to max runes and appends Ellipsis when anything was cut.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + Ellipsis
}
