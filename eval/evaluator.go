// Package eval measures parser accuracy against labelled delivery notes.
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	logistics "github.com/hansjooseptammerik/logistics-automation-mvp"
	"github.com/hansjooseptammerik/logistics-automation-mvp/items"
	"github.com/hansjooseptammerik/logistics-automation-mvp/parser"
)

// Evaluator runs datasets through the document parsers.
type Evaluator struct {
	parsers *parser.Registry
}

// NewEvaluator creates an evaluator using the built-in parsers.
func NewEvaluator() *Evaluator {
	return &Evaluator{parsers: parser.NewRegistry()}
}

// Report holds the results of an evaluation run.
type Report struct {
	Dataset         string                      `json:"dataset"`
	TotalTests      int                         `json:"total_tests"`
	Passed          int                         `json:"passed"`
	Failed          int                         `json:"failed"`
	Metrics         AggregateMetrics            `json:"metrics"`
	CategoryMetrics map[string]AggregateMetrics `json:"category_metrics,omitempty"`
	FieldAccuracy   map[string]float64          `json:"field_accuracy,omitempty"` // field -> share of cases matched
	Results         []TestResult                `json:"results"`
	RunTime         time.Duration               `json:"run_time"`
}

// AggregateMetrics holds averaged metrics across cases.
type AggregateMetrics struct {
	AvgFieldAccuracy float64 `json:"avg_field_accuracy"`
	AvgItemPrecision float64 `json:"avg_item_precision"`
	AvgItemRecall    float64 `json:"avg_item_recall"`
}

// TestResult is the outcome of one case.
type TestResult struct {
	File          string       `json:"file"`
	Category      string       `json:"category,omitempty"`
	Method        string       `json:"method,omitempty"`
	Passed        bool         `json:"passed"`
	Error         string       `json:"error,omitempty"`
	FieldAccuracy float64      `json:"field_accuracy"`
	ItemPrecision float64      `json:"item_precision"`
	ItemRecall    float64      `json:"item_recall"`
	Fields        []FieldCheck `json:"fields,omitempty"`
	ItemsGot      string       `json:"items_got,omitempty"`
	ElapsedMs     int64        `json:"elapsed_ms"`
}

// FieldCheck compares one extracted field with its label.
type FieldCheck struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
	Match    bool   `json:"match"`
}

// Run parses every case of the dataset and scores the result. Cases that
// fail to parse count as failed and are left out of the averages.
func (e *Evaluator) Run(ctx context.Context, dataset Dataset) (*Report, error) {
	start := time.Now()
	report := &Report{
		Dataset:         dataset.Name,
		TotalTests:      len(dataset.Cases),
		CategoryMetrics: make(map[string]AggregateMetrics),
		FieldAccuracy:   make(map[string]float64),
	}

	catCounts := make(map[string]int)
	catSums := make(map[string]AggregateMetrics)
	fieldSeen := make(map[string]int)
	fieldHits := make(map[string]int)
	metricsCount := 0

	for i, c := range dataset.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := e.runCase(ctx, c)
		report.Results = append(report.Results, result)

		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}
		if result.Error != "" {
			status = "ERROR"
		}
		slog.Info("eval: case complete",
			"progress", fmt.Sprintf("%d/%d", i+1, len(dataset.Cases)),
			"status", status,
			"fields", fmt.Sprintf("%.2f", result.FieldAccuracy),
			"items", fmt.Sprintf("%.2f/%.2f", result.ItemPrecision, result.ItemRecall),
			"elapsed_ms", result.ElapsedMs,
			"file", c.File)

		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		if result.Error != "" {
			continue
		}

		metricsCount++
		report.Metrics.AvgFieldAccuracy += result.FieldAccuracy
		report.Metrics.AvgItemPrecision += result.ItemPrecision
		report.Metrics.AvgItemRecall += result.ItemRecall

		for _, fc := range result.Fields {
			fieldSeen[fc.Field]++
			if fc.Match {
				fieldHits[fc.Field]++
			}
		}

		if c.Category != "" {
			catCounts[c.Category]++
			sum := catSums[c.Category]
			sum.AvgFieldAccuracy += result.FieldAccuracy
			sum.AvgItemPrecision += result.ItemPrecision
			sum.AvgItemRecall += result.ItemRecall
			catSums[c.Category] = sum
		}
	}

	if n := float64(metricsCount); n > 0 {
		report.Metrics.AvgFieldAccuracy /= n
		report.Metrics.AvgItemPrecision /= n
		report.Metrics.AvgItemRecall /= n
	}
	for field, seen := range fieldSeen {
		report.FieldAccuracy[field] = float64(fieldHits[field]) / float64(seen)
	}
	for cat, count := range catCounts {
		cn := float64(count)
		sum := catSums[cat]
		report.CategoryMetrics[cat] = AggregateMetrics{
			AvgFieldAccuracy: sum.AvgFieldAccuracy / cn,
			AvgItemPrecision: sum.AvgItemPrecision / cn,
			AvgItemRecall:    sum.AvgItemRecall / cn,
		}
	}

	report.RunTime = time.Since(start)
	return report, nil
}

func (e *Evaluator) runCase(ctx context.Context, c Case) TestResult {
	start := time.Now()
	result := TestResult{File: c.File, Category: c.Category}

	out, err := logistics.ParseDocument(ctx, e.parsers, c.File)
	if err != nil {
		result.Error = err.Error()
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result
	}
	result.Method = out.Method

	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	hits := 0
	for _, name := range names {
		got := fieldGetters[name](out.Record)
		fc := FieldCheck{Field: name, Expected: c.Fields[name], Got: got, Match: fieldMatches(got, c.Fields[name])}
		if fc.Match {
			hits++
		}
		result.Fields = append(result.Fields, fc)
	}
	result.FieldAccuracy = 1
	if len(names) > 0 {
		result.FieldAccuracy = float64(hits) / float64(len(names))
	}

	result.ItemPrecision, result.ItemRecall = 1, 1
	if c.checksItems() {
		want := items.ParseCompact(strings.Join(c.Items, "\n"))
		result.ItemPrecision, result.ItemRecall = itemScores(out.Record.Items, want)
		result.ItemsGot = out.Record.ItemsCompact
	}

	result.Passed = hits == len(names) && result.ItemPrecision == 1 && result.ItemRecall == 1
	result.ElapsedMs = time.Since(start).Milliseconds()
	return result
}

// FormatReport produces a human-readable report string.
func FormatReport(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Evaluation Report: %s ===\n", r.Dataset)
	fmt.Fprintf(&b, "Total: %d | Passed: %d (%.1f%%) | Failed: %d\n",
		r.TotalTests, r.Passed, PassRate(r), r.Failed)
	fmt.Fprintf(&b, "Run time: %s\n\n", r.RunTime.Round(time.Millisecond))

	fmt.Fprintf(&b, "Aggregate Metrics:\n")
	fmt.Fprintf(&b, "  Field Accuracy:  %.2f\n", r.Metrics.AvgFieldAccuracy)
	fmt.Fprintf(&b, "  Item Precision:  %.2f\n", r.Metrics.AvgItemPrecision)
	fmt.Fprintf(&b, "  Item Recall:     %.2f\n\n", r.Metrics.AvgItemRecall)

	if len(r.FieldAccuracy) > 0 {
		fields := make([]string, 0, len(r.FieldAccuracy))
		for f := range r.FieldAccuracy {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		fmt.Fprintf(&b, "Per-Field Accuracy:\n")
		for _, f := range fields {
			fmt.Fprintf(&b, "  %-15s %.1f%%\n", f, r.FieldAccuracy[f]*100)
		}
		fmt.Fprintln(&b)
	}

	if len(r.CategoryMetrics) > 0 {
		cats := make([]string, 0, len(r.CategoryMetrics))
		for cat := range r.CategoryMetrics {
			cats = append(cats, cat)
		}
		sort.Strings(cats)

		fmt.Fprintf(&b, "Per-Category Metrics:\n")
		for _, cat := range cats {
			m := r.CategoryMetrics[cat]
			fmt.Fprintf(&b, "  [%s] Fields=%.2f ItemP=%.2f ItemR=%.2f\n",
				cat, m.AvgFieldAccuracy, m.AvgItemPrecision, m.AvgItemRecall)
		}
		fmt.Fprintln(&b)
	}

	for i, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %d. %s\n", status, i+1, res.File)
		if res.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", res.Error)
			continue
		}
		fmt.Fprintf(&b, "  Fields=%.2f ItemP=%.2f ItemR=%.2f  (%dms)\n",
			res.FieldAccuracy, res.ItemPrecision, res.ItemRecall, res.ElapsedMs)
		for _, fc := range res.Fields {
			if !fc.Match {
				fmt.Fprintf(&b, "  %s: want %q, got %q\n", fc.Field, truncate(fc.Expected, 80), truncate(fc.Got, 80))
			}
		}
	}

	return b.String()
}

// PassRate returns the share of passed cases as a percentage.
func PassRate(r *Report) float64 {
	if r.TotalTests == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.TotalTests) * 100
}

func truncate(s string, maxRunes int) string {
	if r := []rune(s); len(r) > maxRunes {
		return string(r[:maxRunes]) + "..."
	}
	return s
}
