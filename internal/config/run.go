// Package config holds the options for one variant merge run and their
// validation.
//
// Options come from an optional JSON file and from command-line flags; the
// flags win. Validation never stops at the first problem: ValidateRun
// returns every issue so the CLI can print them all.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Output encodings accepted by the CSV writer.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
)

// Run is the full configuration of one merge.
type Run struct {
	Job string `json:"job"`

	Input  string `json:"input"`
	Output string `json:"output"`

	// Param is the header (or a unique fragment of it) of the distinguishing
	// parameter. Empty means "pick one", possibly interactively.
	Param         string `json:"param"`
	ProductCode   string `json:"product_code"`
	Title         string `json:"title"`
	TemplateIndex int    `json:"template_index"`
	Language      string `json:"language"`

	OutEncoding string `json:"out_encoding"`
	ExcelBOM    bool   `json:"excel_bom"`
	// Delimiter overrides the output delimiter; empty reuses the input's.
	Delimiter string `json:"delimiter"`

	NonInteractive bool `json:"non_interactive"`

	Parser  Options `json:"parser"`
	Metrics Metrics `json:"metrics"`
	Ledger  Ledger  `json:"ledger"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "datadog" or "none".
	Backend string `json:"backend"`
	// Tags are extra backend tags, e.g. "team:eshop".
	Tags []string `json:"tags"`
}

// Ledger selects where completed runs are recorded.
type Ledger struct {
	// Kind is "sqlite", "postgres" or "mssql". Empty with a DSN means sqlite.
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`
}

// Defaults returns a Run with every default applied.
func Defaults() Run {
	return Run{
		Job:         "upgates_variants",
		Language:    "sk",
		OutEncoding: EncodingUTF8,
		Parser:      Options{},
	}
}

// LoadFile decodes a JSON run file on top of Defaults.
func LoadFile(path string) (Run, error) {
	r := Defaults()
	f, err := os.Open(path)
	if err != nil {
		return r, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return r, fmt.Errorf("decode config %s: %w", path, err)
	}
	if r.Parser == nil {
		r.Parser = Options{}
	}
	return r, nil
}

// EffectiveEncoding resolves ExcelBOM and OutEncoding into one name.
func (r Run) EffectiveEncoding() string {
	if r.ExcelBOM {
		return EncodingUTF8BOM
	}
	enc := strings.ToLower(strings.TrimSpace(r.OutEncoding))
	switch enc {
	case "", "utf8", EncodingUTF8:
		return EncodingUTF8
	case "utf8-sig", "utf-8-bom", EncodingUTF8BOM:
		return EncodingUTF8BOM
	}
	return enc
}

// OutputPath returns Output, or "<stem>_variants<ext>" next to Input.
func (r Run) OutputPath() string {
	if r.Output != "" {
		return r.Output
	}
	ext := filepath.Ext(r.Input)
	stem := strings.TrimSuffix(filepath.Base(r.Input), ext)
	return filepath.Join(filepath.Dir(r.Input), stem+"_variants"+ext)
}

// LedgerKind returns the ledger backend, defaulting to sqlite when a DSN is
// configured without a kind.
func (r Run) LedgerKind() string {
	k := strings.ToLower(strings.TrimSpace(r.Ledger.Kind))
	if k == "" && r.Ledger.DSN != "" {
		return "sqlite"
	}
	return k
}

// DelimiterRune returns the output delimiter override, or 0 when it is unset
// or not a single character. `\t` and "tab" both mean a tab.
func (r Run) DelimiterRune() rune {
	d := r.Delimiter
	if d == `\t` || strings.EqualFold(d, "tab") {
		d = "\t"
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0
	}
	c, _ := utf8.DecodeRuneInString(d)
	return c
}
