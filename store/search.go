package store

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SearchResult is an order with its match distance (lower = closer).
type SearchResult struct {
	Order Order `json:"order"`
	Rank  int   `json:"rank"`
}

// Search ranks orders by a fuzzy match of query against the recipient,
// address, order reference, phone and item lines. Orders matching none of
// them are left out. limit <= 0 means no limit.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	orders, err := s.ListOrders(ctx, "")
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, o := range orders {
		if rank, ok := matchOrder(query, o); ok {
			results = append(results, SearchResult{Order: o, Rank: rank})
		}
	}

	// Equal ranks keep the newest-first listing order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Rank < results[j].Rank
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// minPhoneQueryDigits is the fewest digits a query needs before it is
// tried against phone numbers.
const minPhoneQueryDigits = 3

// matchOrder returns the best rank of query over the searchable fields.
// Phone numbers are compared digits-only on both sides, so "+372 555 1234"
// finds "+3725551234" and "5551234" finds either.
func matchOrder(query string, o Order) (int, bool) {
	best, found := 0, false
	consider := func(rank int) {
		if rank >= 0 && (!found || rank < best) {
			best, found = rank, true
		}
	}
	for _, field := range []string{
		o.ClientName, o.RecipientName, o.Address, o.ShipAddress,
		o.OrderRef, o.OriginalFilename, o.ItemsCompact,
	} {
		if field != "" {
			consider(fuzzy.RankMatchNormalizedFold(query, field))
		}
	}
	if qd, pd := digitsOnly(query), digitsOnly(o.Phone); len(qd) >= minPhoneQueryDigits && pd != "" {
		consider(fuzzy.RankMatch(qd, pd))
	}
	return best, found
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
