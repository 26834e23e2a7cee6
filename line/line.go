// Package line holds the input model shared by every stage of the order
// parser: an ordered sequence of text lines with page boundaries marked by
// a sentinel line.
package line

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PageBreak is the sentinel line the text extractor emits after every page.
const PageBreak = "__PAGE_BREAK__"

var (
	newlineRe = regexp.MustCompile(`\r\n|\r|\n`)
	spacesRe  = regexp.MustCompile(`[ \t]+`)
	wsRe      = regexp.MustCompile(`\s+`)
)

// IsPageBreak reports whether s is the page boundary sentinel.
func IsPageBreak(s string) bool {
	return strings.TrimSpace(s) == PageBreak
}

// IsBlank reports whether s carries no text: empty after trimming, or a
// page break.
func IsBlank(s string) bool {
	t := strings.TrimSpace(s)
	return t == "" || t == PageBreak
}

// Split breaks extracted text into lines. Trailing whitespace is removed and
// each line is NFC-normalised so decomposed diacritics ("a" + U+0308) match
// the literal labels the extractors look for.
func Split(text string) []string {
	if text == "" {
		return nil
	}
	parts := newlineRe.Split(text, -1)
	// A trailing newline does not open another line.
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = norm.NFC.String(strings.TrimRight(p, " \t\f\v"))
	}
	return out
}

// FromPages flattens per-page text into one line sequence, appending a
// PageBreak line after every page.
func FromPages(pages []string) []string {
	var out []string
	for _, p := range pages {
		out = append(out, Split(p)...)
		out = append(out, PageBreak)
	}
	return out
}

// Join rebuilds the full text from lines for regex extractors that match
// across line boundaries.
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}

// Clean collapses runs of spaces and tabs and trims the result.
func Clean(s string) string {
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}

// CollapseSpace collapses every whitespace run, including newlines, to a
// single space and trims.
func CollapseSpace(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// CompactUpper removes all whitespace and upper-cases s.
func CompactUpper(s string) string {
	return strings.ToUpper(wsRe.ReplaceAllString(s, ""))
}

// At returns the trimmed line i, or "" when i is out of range.
func At(lines []string, i int) string {
	if i < 0 || i >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[i])
}

// NextNonBlank returns the index of the first non-blank line after i, or -1.
func NextNonBlank(lines []string, i int) int {
	for j := i + 1; j < len(lines); j++ {
		if !IsBlank(lines[j]) {
			return j
		}
	}
	return -1
}
