package items

import (
	"regexp"
	"strings"

	"github.com/hansjooseptammerik/logistics-automation-mvp/classify"
	"github.com/hansjooseptammerik/logistics-automation-mvp/line"
)

// Service rows are billed lines, not goods to deliver.
var serviceRows = map[string]bool{
	"ADDUCO":    true,
	"UTIIL":     true,
	"PAIGALDUS": true,
	"TRANSPORT": true,
}

var (
	longNumberRe   = regexp.MustCompile(`\b\d{8,}\b`)
	binIndexTailRe = regexp.MustCompile(`\)\s+\d{1,2}\s*$`)
)

type pending struct {
	seq       int
	lines     []string
	qty       string
	warehouse string
	// rowText is the row line after the sequence and code. It stands in
	// for the description when nothing else supplies one.
	rowText string
}

// Reconstructor walks the document once and rebuilds the item table. The
// table may be interrupted by footers and resumed under a repeated header;
// numbering carries over.
type Reconstructor struct {
	inTable  bool
	expected int // next sequence; 0 until the first header
	current  *pending
	items    []Item
}

// NewReconstructor returns a Reconstructor ready for one document.
func NewReconstructor() *Reconstructor {
	return &Reconstructor{}
}

// Reconstruct feeds every line and returns the items in source order.
func (r *Reconstructor) Reconstruct(lines []string) []Item {
	for _, l := range lines {
		r.Feed(l)
	}
	r.flush()
	return r.Items()
}

// Items returns a copy of the items flushed so far.
func (r *Reconstructor) Items() []Item {
	out := make([]Item, len(r.items))
	copy(out, r.items)
	return out
}

// Next returns the sequence the table expects next, 1 when no table was
// seen.
func (r *Reconstructor) Next() int {
	if r.expected <= 0 {
		return 1
	}
	return r.expected
}

// Feed advances the sweep by one line.
func (r *Reconstructor) Feed(raw string) {
	s := strings.TrimSpace(raw)
	if line.IsBlank(s) {
		return
	}

	if classify.IsTableHeader(s) {
		r.flush()
		r.inTable = true
		if r.expected == 0 {
			r.expected = 1
		}
		return
	}
	if !r.inTable {
		return
	}
	if strings.EqualFold(s, "laos") {
		return
	}
	if classify.IsFooter(s) {
		r.flush()
		r.inTable = false
		return
	}
	if u := strings.ToUpper(s); serviceRows[u] || strings.HasPrefix(u, "KOJUVEDU") {
		return
	}

	if st := parseStart(s, r.expected); st.kind != rowNone {
		r.flush()
		r.current = &pending{seq: st.seq, lines: []string{st.desc}, qty: st.qty, warehouse: st.warehouse, rowText: st.text}
		r.expected = st.seq + 1
		return
	}

	cur := r.current
	if cur == nil {
		return
	}
	if classify.IsNoiseCode(s) || classify.IsLocationOnly(s) {
		return
	}
	if cur.qty == "" || cur.warehouse == "" {
		if qw, ok := splitQtyWarehouse(s); ok {
			if qw.qty != "" {
				cur.qty = qw.qty
			}
			cur.warehouse = qw.warehouse
			if qw.before != "" {
				cur.lines = append(cur.lines, qw.before)
			}
			return
		}
	}
	cur.lines = append(cur.lines, s)
}

func (r *Reconstructor) flush() {
	cur := r.current
	r.current = nil
	if cur == nil {
		return
	}
	desc := flushDescription(cur.lines)
	if desc == "" {
		desc = flushDescription([]string{cur.rowText})
	}
	if desc == "" {
		return
	}
	qty := cur.qty
	if qty == "" {
		qty = UnknownQuantity
	}
	r.items = append(r.items, Item{
		Sequence:    cur.seq,
		Description: desc,
		Quantity:    qty,
		Warehouse:   cur.warehouse,
	})
}

func flushDescription(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if c := line.CollapseSpace(longNumberRe.ReplaceAllString(line.Clean(l), " ")); c != "" {
			parts = append(parts, c)
		}
	}
	desc := line.CollapseSpace(strings.Join(parts, " "))
	return trimDashes(binIndexTailRe.ReplaceAllString(desc, ")"))
}

// Reconstruct is a convenience wrapper returning the items and the next
// expected sequence.
func Reconstruct(lines []string) ([]Item, int) {
	r := NewReconstructor()
	out := r.Reconstruct(lines)
	return out, r.Next()
}
