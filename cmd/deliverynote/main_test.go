package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logistics "github.com/hansjooseptammerik/logistics-automation-mvp"
)

const sampleNote = `Aatrium Sisustus OÜ
Order nr. 4512/03.04.2024
Recipient: Mari Maasikas
Lähetusaadress:
Tartu mnt 5
51 Tallinn
Nr Kood Artikkel Kogus Ladu
1 ERMA12 Diivan Oslo 1 Pealadu
2 TBL100 Laud 2 Kaupluse ladu
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------------------------------------------------------------------------
// version / parse
// ---------------------------------------------------------------------------

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "Version:    "+Version) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestParseCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "note.txt", sampleNote)

	out, _, err := run(t, "parse", path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var got logistics.ParseOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if got.Method != "text" || got.Empty {
		t.Errorf("method = %q, empty = %v", got.Method, got.Empty)
	}
	if got.Record.OrderRef != "4512/03.04.2024" {
		t.Errorf("OrderRef = %q", got.Record.OrderRef)
	}
	if got.Record.RecipientName != "Mari Maasikas" {
		t.Errorf("RecipientName = %q", got.Record.RecipientName)
	}
	if len(got.Record.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(got.Record.Items))
	}
}

func TestParseCommandCompactMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", sampleNote)
	b := writeFile(t, dir, "b.txt", "")

	out, stderr, err := run(t, "parse", "--compact", a, b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 2 {
		t.Errorf("expected 2 JSON lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(stderr, "no extractable text") {
		t.Errorf("expected empty-document warning, stderr %q", stderr)
	}
}

func TestParseCommandErrors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := run(t, "parse"); err == nil {
		t.Error("expected error without arguments")
	}

	docx := writeFile(t, dir, "note.docx", "x")
	if _, _, err := run(t, "parse", docx); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported format error, got %v", err)
	}

	if _, _, err := run(t, "parse", filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

// ---------------------------------------------------------------------------
// eval
// ---------------------------------------------------------------------------

func TestEvalCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "note.txt", sampleNote)
	dataset := writeFile(t, dir, "dataset.yaml", `name: cli
cases:
  - file: note.txt
    fields:
      order_ref: 4512/03.04.2024
      recipient_name: Mari Maasikas
`)
	report := filepath.Join(dir, "report.json")

	out, _, err := run(t, "eval", dataset, "-o", report, "--min-pass-rate", "100")
	if err != nil {
		t.Fatalf("eval: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Passed: 1 (100.0%)") {
		t.Errorf("unexpected report:\n%s", out)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("reading JSON report: %v", err)
	}
	var decoded struct {
		Dataset string `json:"dataset"`
		Passed  int    `json:"passed"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Dataset != "cli" || decoded.Passed != 1 {
		t.Errorf("unexpected JSON report %+v", decoded)
	}
}

func TestEvalCommandBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "note.txt", sampleNote)
	dataset := writeFile(t, dir, "dataset.yaml", `cases:
  - file: note.txt
    fields:
      order_ref: 1/01.01.2024
`)

	_, _, err := run(t, "eval", dataset, "--min-pass-rate", "50")
	if err == nil || !strings.Contains(err.Error(), "below") {
		t.Errorf("expected threshold error, got %v", err)
	}
}
