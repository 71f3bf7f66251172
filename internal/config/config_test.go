package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOptions_Accessors(t *testing.T) {
	t.Parallel()

	o := Options{
		"has_header": false,
		"lazy":       "yes",
		"comma":      ";",
		"tab":        `\t`,
		"n":          float64(7),
		"ns":         "12",
		"header_map": map[string]any{"Kód": "[PRODUCT_CODE]", "bad": 3},
	}

	if o.Bool("has_header", true) {
		t.Fatalf("Bool(has_header) got=true want=false")
	}
	if !o.Bool("lazy", false) {
		t.Fatalf("Bool(lazy) got=false want=true")
	}
	if !o.Bool("missing", true) {
		t.Fatalf("Bool(missing) should return default")
	}
	if got := o.Rune("comma", ','); got != ';' {
		t.Fatalf("Rune(comma) got=%q want ';'", got)
	}
	if got := o.Rune("tab", ','); got != '\t' {
		t.Fatalf("Rune(tab) got=%q want tab", got)
	}
	if got := o.Int("n", 0); got != 7 {
		t.Fatalf("Int(n) got=%d want=7", got)
	}
	if got := o.Int("ns", 0); got != 12 {
		t.Fatalf("Int(ns) got=%d want=12", got)
	}
	hm := o.StringMap("header_map")
	if len(hm) != 1 || hm["Kód"] != "[PRODUCT_CODE]" {
		t.Fatalf("StringMap got=%v", hm)
	}
	if got := o.String("comma", ""); got != ";" {
		t.Fatalf("String(comma) got=%q", got)
	}
}

func TestRun_OutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, out, want string
	}{
		{in: "data/export.csv", want: filepath.Join("data", "export_variants.csv")},
		{in: "export.xlsx", want: "export_variants.xlsx"},
		{in: "export.csv", out: "x.csv", want: "x.csv"},
	}
	for _, tt := range tests {
		r := Run{Input: tt.in, Output: tt.out}
		if got := r.OutputPath(); got != tt.want {
			t.Errorf("OutputPath(%q,%q) got=%q want=%q", tt.in, tt.out, got, tt.want)
		}
	}
}

func TestRun_EffectiveEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		run  Run
		want string
	}{
		{Run{}, EncodingUTF8},
		{Run{OutEncoding: "UTF-8"}, EncodingUTF8},
		{Run{OutEncoding: "utf-8-bom"}, EncodingUTF8BOM},
		{Run{OutEncoding: "utf-8", ExcelBOM: true}, EncodingUTF8BOM},
		{Run{OutEncoding: "cp1250"}, "cp1250"},
	}
	for _, tt := range tests {
		if got := tt.run.EffectiveEncoding(); got != tt.want {
			t.Errorf("%+v got=%q want=%q", tt.run, got, tt.want)
		}
	}
}

func TestRun_DelimiterRune(t *testing.T) {
	t.Parallel()

	tests := map[string]rune{
		"":    0,
		";":   ';',
		`\t`:  '\t',
		"TAB": '\t',
		"||":  0,
	}
	for in, want := range tests {
		if got := (Run{Delimiter: in}).DelimiterRune(); got != want {
			t.Errorf("%q got=%q want=%q", in, got, want)
		}
	}
}

func TestValidateRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		run       Run
		wantPath  string
		wantError bool
	}{
		{"missing input", Run{}, "input", true},
		{"negative template", Run{Input: "a.csv", TemplateIndex: -1}, "template_index", true},
		{"bad encoding", Run{Input: "a.csv", OutEncoding: "cp1250"}, "out_encoding", true},
		{"long delimiter", Run{Input: "a.csv", Delimiter: ";;"}, "delimiter", true},
		{"output is input", Run{Input: "a.csv", Output: "a.csv"}, "output", true},
		{"ledger kind", Run{Input: "a.csv", Ledger: Ledger{Kind: "oracle", DSN: "x"}}, "ledger.kind", true},
		{"ledger dsn", Run{Input: "a.csv", Ledger: Ledger{Kind: "sqlite"}}, "ledger.dsn", true},
		{"unknown extension", Run{Input: "a.json"}, "input", false},
		{"unknown metrics", Run{Input: "a.csv", Metrics: Metrics{Backend: "statsd"}}, "metrics.backend", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := ValidateRun(tt.run)
			var found *Issue
			for i := range issues {
				if issues[i].Path == tt.wantPath {
					found = &issues[i]
					break
				}
			}
			if found == nil {
				t.Fatalf("no issue for %q in %+v", tt.wantPath, issues)
			}
			if (found.Severity == SeverityError) != tt.wantError {
				t.Fatalf("severity got=%s wantError=%v", found.Severity, tt.wantError)
			}
			if HasErrors(issues) != tt.wantError {
				t.Fatalf("HasErrors got=%v want=%v (%+v)", HasErrors(issues), tt.wantError, issues)
			}
		})
	}
}

func TestValidateRun_Clean(t *testing.T) {
	t.Parallel()

	r := Defaults()
	r.Input = "export.csv"
	r.Param = "[PARAMETER „Farba“]"
	if issues := ValidateRun(r); len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	body := `{
  "input": "export.csv",
  "param": "Balenie",
  "template_index": 2,
  "parser": {"comma": ";"},
  "ledger": {"dsn": "file:runs.db"}
}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if r.Input != "export.csv" || r.Param != "Balenie" || r.TemplateIndex != 2 {
		t.Fatalf("decoded run: %+v", r)
	}
	if r.Language != "sk" || r.Job != "upgates_variants" {
		t.Fatalf("defaults not applied: %+v", r)
	}
	if r.Parser.Rune("comma", ',') != ';' {
		t.Fatalf("parser options not decoded: %v", r.Parser)
	}
	if r.LedgerKind() != "sqlite" {
		t.Fatalf("LedgerKind got=%q want sqlite", r.LedgerKind())
	}
}

func TestLoadFile_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(`{"inputt": "x.csv"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}
