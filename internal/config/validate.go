package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Severity grades a validation Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path uses the JSON key names.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var supportedInputs = map[string]bool{".csv": true, ".txt": true, ".tsv": true, ".xlsx": true}

// ValidateRun checks r for problems that can be found without reading the
// input file.
func ValidateRun(r Run) []Issue {
	var issues []Issue
	add := func(sev Severity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(r.Input) == "" {
		add(SeverityError, "input", "input path is required")
	} else if ext := strings.ToLower(filepath.Ext(r.Input)); !supportedInputs[ext] {
		add(SeverityWarning, "input", "unrecognised extension %q; reading as CSV", ext)
	}

	if r.TemplateIndex < 0 {
		add(SeverityError, "template_index", "must be >= 0, got %d", r.TemplateIndex)
	}

	switch enc := r.EffectiveEncoding(); enc {
	case EncodingUTF8, EncodingUTF8BOM:
	default:
		add(SeverityError, "out_encoding", "unsupported output encoding %q (use %s or %s)", enc, EncodingUTF8, EncodingUTF8BOM)
	}

	if r.Delimiter != "" && r.DelimiterRune() == 0 {
		add(SeverityError, "delimiter", "must be a single character, got %q", r.Delimiter)
	}

	if r.Input != "" && r.OutputPath() == r.Input {
		add(SeverityError, "output", "output would overwrite the input file")
	}

	if strings.EqualFold(filepath.Ext(r.OutputPath()), ".xlsx") && r.EffectiveEncoding() == EncodingUTF8BOM {
		add(SeverityWarning, "out_encoding", "ignored for .xlsx output")
	}

	if r.NonInteractive && strings.TrimSpace(r.Param) == "" {
		add(SeverityWarning, "param", "not set; a single PARAMETER column will be used if present")
	}

	switch strings.ToLower(r.Metrics.Backend) {
	case "", "none", "datadog":
	default:
		add(SeverityWarning, "metrics.backend", "unknown backend %q; metrics disabled", r.Metrics.Backend)
	}

	switch r.LedgerKind() {
	case "", "sqlite", "postgres", "mssql":
	default:
		add(SeverityError, "ledger.kind", "unsupported ledger backend %q", r.Ledger.Kind)
	}
	if r.Ledger.Kind != "" && r.Ledger.DSN == "" {
		add(SeverityError, "ledger.dsn", "required when ledger.kind is set")
	}

	return issues
}
