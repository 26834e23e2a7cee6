package items

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hansjooseptammerik/logistics-automation-mvp/line"
)

// A detached block is the tail of an item table stranded by a page break
// without its header. It reads column by column:
//
//	3 635511      sequence and code, one line per row
//	2 635567
//	Sofa          one description line per row
//	Table
//	2             one quantity line per row
//	1
//	Ware          up to one warehouse line per row
//	Shop

var (
	seqCodeLineRe = regexp.MustCompile(`^(\d+)\s+(\d{3,})$`)
	gluedLineRe   = regexp.MustCompile(`^\d{6,}\d$`)
	pureDigitsRe  = regexp.MustCompile(`^\d+$`)
	letterRe      = regexp.MustCompile(`[A-Za-zÕÄÖÜõäöü]`)
	asciiLetterRe = regexp.MustCompile(`[A-Za-z]`)
)

// minDetachedRows is the smallest block accepted; a single row is too weak
// a signal.
const minDetachedRows = 2

var wareWords = map[string]bool{
	"ware": true, "warehouse": true, "shop": true, "store": true,
	"warehousestore": true, "shopstore": true,
}

// RecoverDetached rebuilds a headerless item block whose first row has
// sequence startSeq. Any arity mismatch discards the whole block.
func RecoverDetached(lines []string, startSeq int) []Item {
	if startSeq < 1 {
		startSeq = 1
	}
	c := &columnReader{lines: lines}
	if !c.seek(startSeq) {
		return nil
	}

	seqs := c.sequences(startSeq)
	n := len(seqs)
	if n < minDetachedRows {
		return nil
	}
	descs := c.descriptions(n)
	if len(descs) < n {
		return nil
	}
	qtys := c.quantities(n)
	if len(qtys) < n {
		return nil
	}
	whs := c.warehouses(n)

	out := make([]Item, n)
	for k := range n {
		out[k] = Item{Sequence: seqs[k], Description: descs[k], Quantity: qtys[k]}
		if k < len(whs) {
			out[k].Warehouse = whs[k]
		}
	}
	return out
}

// columnReader walks the block one column at a time.
type columnReader struct {
	lines []string
	pos   int
}

// next returns the next non-blank line without consuming it.
func (c *columnReader) next() (string, bool) {
	for c.pos < len(c.lines) {
		s := strings.TrimSpace(c.lines[c.pos])
		if !line.IsBlank(s) {
			return s, true
		}
		c.pos++
	}
	return "", false
}

// seek moves to the first "<startSeq> <code>" line or glued "<code><startSeq>"
// line.
func (c *columnReader) seek(startSeq int) bool {
	seq := strconv.Itoa(startSeq)
	for i, raw := range c.lines {
		s := strings.TrimSpace(raw)
		if m := seqCodeLineRe.FindStringSubmatch(s); m != nil && m[1] == seq {
			c.pos = i
			return true
		}
		if len(s) >= minGluedDigits+len(seq) && pureDigitsRe.MatchString(s) && strings.HasSuffix(s, seq) {
			c.pos = i
			return true
		}
	}
	return false
}

func (c *columnReader) sequences(startSeq int) []int {
	var seqs []int
	expected := startSeq
	for {
		s, ok := c.next()
		if !ok || letterRe.MatchString(s) {
			return seqs
		}
		c.pos++

		if m := seqCodeLineRe.FindStringSubmatch(s); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				seqs = append(seqs, n)
				expected = n + 1
			}
			continue
		}
		if !gluedLineRe.MatchString(s) {
			continue
		}
		if exp := strconv.Itoa(expected); strings.HasSuffix(s, exp) {
			seqs = append(seqs, expected)
			expected++
			continue
		}
		// Known fragility: the last digit is taken as the sequence when it is
		// not behind the block start. Rows numbered 10+ cannot be decoded.
		if guess := int(s[len(s)-1] - '0'); guess >= startSeq {
			seqs = append(seqs, guess)
			expected = guess + 1
		}
	}
}

func (c *columnReader) descriptions(n int) []string {
	var descs []string
	for len(descs) < n {
		s, ok := c.next()
		if !ok || pureDigitsRe.MatchString(s) {
			break
		}
		c.pos++
		if letterRe.MatchString(s) {
			descs = append(descs, line.Clean(s))
		}
	}
	return descs
}

func (c *columnReader) quantities(n int) []string {
	var qtys []string
	for len(qtys) < n {
		s, ok := c.next()
		if !ok || !pureDigitsRe.MatchString(s) {
			break
		}
		c.pos++
		qtys = append(qtys, s)
	}
	return qtys
}

func (c *columnReader) warehouses(n int) []string {
	var whs []string
	for len(whs) < n {
		s, ok := c.next()
		if !ok {
			break
		}
		u := strings.ToLower(s)
		switch {
		case wareWords[u] || strings.HasSuffix(u, "ware") || strings.HasSuffix(u, "shop"):
			if strings.Contains(u, "shop") {
				whs = append(whs, "Shop")
			} else {
				whs = append(whs, "Ware")
			}
		case asciiLetterRe.MatchString(s):
			whs = append(whs, warehouseField(line.Clean(s)))
		default:
			return whs
		}
		c.pos++
	}
	return whs
}
