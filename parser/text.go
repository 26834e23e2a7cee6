package parser

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextParser handles text already extracted from a PDF (.txt). Form feeds
// separate pages, as pdftotext writes them.
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt"} }

func (p *TextParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}

	content := string(data)
	if content == "" {
		return &ParseResult{Method: "text"}, nil
	}

	pages := strings.Split(content, "\f")
	// pdftotext ends the last page with a form feed too.
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return &ParseResult{Pages: pages, Method: "text"}, nil
}
