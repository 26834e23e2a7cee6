// Package parser turns delivery-note files into per-page text for the
// order parser. It is the only package that reads document files.
package parser

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/hansjooseptammerik/logistics-automation-mvp/line"
)

// ParseResult is what a parser produces from a document file.
type ParseResult struct {
	Pages    []string // Text of every page, in order
	Method   string   // "plain", "rows", "plain+rows", "rows+plain", "text"
	Metadata map[string]string
}

// Lines flattens the pages into lines with a page-break sentinel after
// every page.
func (r *ParseResult) Lines() []string {
	if r == nil {
		return nil
	}
	return line.FromPages(r.Pages)
}

// Empty reports whether no page carried any text.
func (r *ParseResult) Empty() bool {
	if r == nil {
		return true
	}
	for _, p := range r.Pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}

// FormatOf returns the lower-cased extension of path without the dot.
func FormatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
