package items

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hansjooseptammerik/logistics-automation-mvp/classify"
)

// rowKind says how a line opens a new item row, if it does.
type rowKind int

const (
	rowNone        rowKind = iota
	rowGluedCode           // "16ERMA ...": sequence glued to an alphabetic item code
	rowGluedDigits         // "1638600 ...": expected sequence glued to a numeric code
	rowPlain               // "3 ERMA ..." or "3 Sofa ..."
)

func (k rowKind) String() string {
	switch k {
	case rowGluedCode:
		return "glued-code"
	case rowGluedDigits:
		return "glued-digits"
	case rowPlain:
		return "plain"
	default:
		return "none"
	}
}

// rowStart is the decision for one line. For every kind but rowNone, seq is
// positive and desc/qty/warehouse hold what the rest of the line carried.
// text is that rest unsplit.
type rowStart struct {
	kind      rowKind
	seq       int
	text      string
	desc      string
	qty       string
	warehouse string
}

var (
	gluedCodeRe = regexp.MustCompile(`^(\d{1,3})([A-ZÕÄÖÜ]{2,}[A-Z0-9ÕÄÖÜ]*)$`)
	digitsRe    = regexp.MustCompile(`^\d+$`)
	itemCodeRe  = regexp.MustCompile(`^[A-Z0-9]{3,}$`)
)

const (
	// minGluedDigits is the shortest first token read as sequence+code.
	minGluedDigits = 5
	// maxPlainSeqDigits bounds a bare sequence; longer numbers are codes
	// unless they open with the expected sequence.
	maxPlainSeqDigits = 4
)

// parseStart decides whether s opens a new item row. expected is the next
// sequence the table should produce, or 0 before the first header.
func parseStart(s string, expected int) rowStart {
	toks := strings.Fields(s)
	if len(toks) == 0 {
		return rowStart{}
	}
	t0 := toks[0]

	if m := gluedCodeRe.FindStringSubmatch(t0); m != nil {
		// The code belongs to its own column and never joins the description.
		return newRowStart(rowGluedCode, m[1], toks[1:])
	}

	if !digitsRe.MatchString(t0) {
		return rowStart{}
	}

	if expected > 0 && len(t0) >= minGluedDigits {
		en := strconv.Itoa(expected)
		if strings.HasPrefix(t0, en) && len(t0) > len(en) {
			return newRowStart(rowGluedDigits, en, toks[1:])
		}
	}

	// "05 ASPEN 09" style continuation numbers are not sequences.
	if len(t0) > 1 && t0[0] == '0' && expected > 0 && t0 != strconv.Itoa(expected) {
		return rowStart{}
	}
	if len(t0) > maxPlainSeqDigits || len(toks) < 2 {
		return rowStart{}
	}
	// "1 Pealadu O-3-3" is a quantity/warehouse continuation.
	if classify.IsWarehouseWord(toks[1]) {
		return rowStart{}
	}
	rest := toks[1:]
	if itemCodeRe.MatchString(toks[1]) {
		rest = toks[2:]
	}
	if len(rest) == 0 {
		return rowStart{}
	}
	return newRowStart(rowPlain, t0, rest)
}

func newRowStart(kind rowKind, seqTok string, rest []string) rowStart {
	seq, err := strconv.Atoi(seqTok)
	if err != nil || seq <= 0 {
		return rowStart{}
	}
	text := strings.Join(rest, " ")
	r := rowStart{kind: kind, seq: seq, text: text}
	if qw, ok := splitQtyWarehouse(text); ok {
		r.desc, r.qty, r.warehouse = qw.before, qw.qty, qw.warehouse
	} else {
		r.desc = text
	}
	return r
}
