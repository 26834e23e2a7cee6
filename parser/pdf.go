package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts page text with github.com/ledongthuc/pdf. By default
// each page is read with GetPlainText, which keeps content-stream order;
// detached item blocks depend on that order to line their columns up. With
// Rows set, rows are rebuilt from glyph positions instead so cells on one
// baseline share a line. Either way a page the chosen method cannot read
// falls back to the other.
type PDFParser struct {
	Rows bool
}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	primary, fallback := pagePlainText, pageRowsText
	method, other := "plain", "rows"
	if p.Rows {
		primary, fallback = pageRowsText, pagePlainText
		method, other = "rows", "plain"
	}

	totalPages := reader.NumPage()
	pages := make([]string, 0, totalPages)
	fellBack := false

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := primary(page)
		if err != nil || strings.TrimSpace(text) == "" {
			if text, err = fallback(page); err == nil && strings.TrimSpace(text) != "" {
				fellBack = true
			}
		}
		if err != nil {
			// Skip pages that fail to extract
			slog.Warn("pdf: page text extraction failed", "file", path, "page", i, "error", err)
			text = ""
		}
		pages = append(pages, text)
	}
	if fellBack {
		method += "+" + other
	}

	return &ParseResult{
		Pages:  pages,
		Method: method,
		Metadata: map[string]string{
			"pages": fmt.Sprint(totalPages),
		},
	}, nil
}

func pagePlainText(page pdf.Page) (string, error) {
	return page.GetPlainText(nil)
}

func pageRowsText(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, joinRow(row.Content))
	}
	return strings.TrimSpace(strings.Join(out, "\n")), nil
}

// spaceGap is the horizontal gap, as a fraction of the font size, above
// which two glyph runs are separated by a space.
const spaceGap = 0.2

// joinRow concatenates the text runs of one row, inserting a space wherever
// the gap to the previous run is wider than a fraction of the font size.
func joinRow(texts []pdf.Text) string {
	var b strings.Builder
	var prevEnd float64
	for i, t := range texts {
		if i > 0 && t.S != " " {
			gap := t.X - prevEnd
			size := t.FontSize
			if size <= 0 {
				size = 10
			}
			if gap > size*spaceGap && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	return strings.TrimSpace(b.String())
}
