package classify

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// KeywordSet matches a line against many substrings in one pass.
// Patterns and input are compared upper-cased.
type KeywordSet struct {
	mu       sync.Mutex
	matcher  *ahocorasick.Matcher
	keywords []string
}

// NewKeywordSet builds the Aho-Corasick automaton for keywords.
func NewKeywordSet(keywords ...string) *KeywordSet {
	upper := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k == "" {
			continue
		}
		upper = append(upper, strings.ToUpper(k))
	}
	return &KeywordSet{
		matcher:  ahocorasick.NewStringMatcher(upper),
		keywords: upper,
	}
}

// Contains reports whether any keyword occurs in s.
func (k *KeywordSet) Contains(s string) bool {
	return len(k.Matches(s)) > 0
}

// Matches returns the distinct keywords found in s.
func (k *KeywordSet) Matches(s string) []string {
	if len(k.keywords) == 0 || s == "" {
		return nil
	}
	// The matcher keeps per-call scratch state.
	k.mu.Lock()
	hits := k.matcher.Match([]byte(strings.ToUpper(s)))
	k.mu.Unlock()

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, k.keywords[h])
	}
	return out
}
