// Command variants merges the rows of one pre-grouped Upgates product export
// into a main product followed by its variants.
//
//	variants -param Farba -product-code NF-100 export.csv
//
// The input may be CSV (encoding and delimiter are detected) or XLSX. The
// output is written next to the input as <stem>_variants<ext> unless -output
// is given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"upvariants/internal/config"
	"upvariants/internal/metrics"
	"upvariants/internal/metrics/datadog"
	"upvariants/internal/prompt"
	"upvariants/internal/storage"
	"upvariants/internal/tableio"
	"upvariants/internal/transformer/builtin"
	"upvariants/internal/variants"

	// register all ledger backends with the storage factory.
	_ "upvariants/internal/storage/all"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cliFlags holds the raw flag values; only flags that were set override the
// config file.
type cliFlags struct {
	cfgPath  string
	validate bool
	verbose  bool
	strict   bool

	run  config.Run
	tags string
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, *flag.FlagSet, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("variants", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.cfgPath, "config", "", "optional run config JSON path")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&f.verbose, "v", false, "enable verbose logs")
	fs.BoolVar(&f.strict, "strict", false, "reject CSV rows shorter than the header instead of padding them")

	fs.StringVar(&f.run.Input, "input", "", "input CSV or XLSX (or first positional argument)")
	fs.StringVar(&f.run.Output, "output", "", "output path (default <stem>_variants<ext>)")
	fs.StringVar(&f.run.Param, "param", "", "distinguishing parameter column or a unique part of its name")
	fs.StringVar(&f.run.ProductCode, "product-code", "", "parent PRODUCT_CODE (default: template row's code)")
	fs.StringVar(&f.run.Title, "title", "", "main product TITLE (default: template row's title)")
	fs.IntVar(&f.run.TemplateIndex, "template-index", 0, "0-based row used as the main product template")
	fs.StringVar(&f.run.Language, "language", "", "LANGUAGE of the main row (default sk)")
	fs.StringVar(&f.run.OutEncoding, "out-encoding", "", "output encoding: utf-8 or utf-8-sig")
	fs.BoolVar(&f.run.ExcelBOM, "excel-bom", false, "write a UTF-8 BOM (same as -out-encoding utf-8-sig)")
	fs.StringVar(&f.run.Delimiter, "delimiter", "", "output delimiter (default: the input's)")
	fs.BoolVar(&f.run.NonInteractive, "non-interactive", false, "never prompt; fail instead")
	fs.StringVar(&f.run.Metrics.Backend, "metrics-backend", "", "metrics backend: datadog or none (env METRICS_BACKEND)")
	fs.StringVar(&f.tags, "metrics-tags", "", "extra metrics tags, comma separated (env METRICS_TAGS)")
	fs.StringVar(&f.run.Ledger.Kind, "ledger-kind", "", "run ledger backend: sqlite, postgres or mssql")
	fs.StringVar(&f.run.Ledger.DSN, "ledger-dsn", "", "run ledger DSN (env LEDGER_DSN)")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return f, fs, nil
}

// resolveRun layers defaults, the config file, the flags that were set and
// finally the environment fallbacks.
func resolveRun(f *cliFlags, fs *flag.FlagSet) (config.Run, error) {
	r := config.Defaults()
	if f.cfgPath != "" {
		var err error
		if r, err = config.LoadFile(f.cfgPath); err != nil {
			return r, err
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "input":
			r.Input = f.run.Input
		case "output":
			r.Output = f.run.Output
		case "param":
			r.Param = f.run.Param
		case "product-code":
			r.ProductCode = f.run.ProductCode
		case "title":
			r.Title = f.run.Title
		case "template-index":
			r.TemplateIndex = f.run.TemplateIndex
		case "language":
			r.Language = f.run.Language
		case "out-encoding":
			r.OutEncoding = f.run.OutEncoding
		case "excel-bom":
			r.ExcelBOM = f.run.ExcelBOM
		case "delimiter":
			r.Delimiter = f.run.Delimiter
		case "non-interactive":
			r.NonInteractive = f.run.NonInteractive
		case "metrics-backend":
			r.Metrics.Backend = f.run.Metrics.Backend
		case "ledger-kind":
			r.Ledger.Kind = f.run.Ledger.Kind
		case "ledger-dsn":
			r.Ledger.DSN = f.run.Ledger.DSN
		case "strict":
			if r.Parser == nil {
				r.Parser = config.Options{}
			}
			r.Parser["strict"] = f.strict
		}
	})
	if fs.NArg() > 0 && r.Input == "" {
		r.Input = fs.Arg(0)
	}

	if r.Metrics.Backend == "" {
		r.Metrics.Backend = os.Getenv("METRICS_BACKEND")
	}
	tags := f.tags
	if tags == "" {
		tags = os.Getenv("METRICS_TAGS")
	}
	r.Metrics.Tags = append(r.Metrics.Tags, datadog.ParseTagsCSV(tags)...)
	if r.Ledger.DSN == "" {
		r.Ledger.DSN = os.Getenv("LEDGER_DSN")
	}
	return r, nil
}

// run is the testable entrypoint. It returns the process exit code:
// 0 on success, 2 on usage and configuration errors, 1 otherwise.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		return exitConfig
	}
	log.SetOutput(stderr)

	cfg, err := resolveRun(f, fs)
	if err != nil {
		return fatalf(stderr, exitFailure, "%v", err)
	}

	issues := config.ValidateRun(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		if strings.TrimSpace(cfg.Input) == "" {
			fmt.Fprintln(stderr, "usage: variants [flags] <input.csv|input.xlsx>")
		}
		return exitConfig
	}
	if f.validate {
		fmt.Fprintln(stdout, "config ok")
		return exitOK
	}

	cleanup, err := initMetrics(ctx, cfg)
	if err != nil {
		return fatalf(stderr, exitFailure, "metrics: %v", err)
	}
	defer cleanup()

	m := &merger{cfg: cfg, verbose: f.verbose, stdout: stdout, ask: prompt.New(stdin, stdout)}
	if err := m.run(ctx); err != nil {
		if variants.IsConfigurationError(err) {
			return fatalf(stderr, exitConfig, "%v", err)
		}
		return fatalf(stderr, exitFailure, "%v", err)
	}
	return exitOK
}

// fatalf reports a fatal error on w and returns code for main to exit with.
func fatalf(w io.Writer, code int, format string, a ...any) int {
	fmt.Fprintf(w, format+"\n", a...)
	return code
}

// initMetrics installs the configured backend and returns a cleanup that
// flushes and closes it. The cleanup is never nil.
func initMetrics(ctx context.Context, cfg config.Run) (func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Metrics.Backend)) {
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{JobName: cfg.Job, Tags: cfg.Metrics.Tags})
		if err != nil {
			return func() {}, err
		}
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: close: %v", err)
			}
			metrics.SetBackend(nil)
		}, nil
	case "", "none", "noop":
		return func() {}, nil
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.Metrics.Backend)
		return func() {}, nil
	}
}

// merger carries one run from reading the input to recording it.
type merger struct {
	cfg     config.Run
	verbose bool
	stdout  io.Writer
	ask     *prompt.Prompter
}

func step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(name, err, time.Since(start))
	return err
}

func (m *merger) run(ctx context.Context) error {
	started := time.Now().UTC()
	cfg := m.cfg

	var src *tableio.Source
	err := step("read", func() error {
		var err error
		src, err = tableio.Read(cfg.Input, cfg.Parser)
		return err
	})
	if err != nil {
		return fmt.Errorf("read %s: %w", cfg.Input, err)
	}
	metrics.RecordRows("in", src.Table.Len())
	if m.verbose {
		log.Printf("read: file=%s format=%s encoding=%s delimiter=%q rows=%d cols=%d padded=%d",
			cfg.Input, src.Format, src.Encoding, src.Delimiter, src.Table.Len(), len(src.Table.Columns), src.Padded)
	}
	if src.Padded > 0 {
		log.Printf("read: %d short rows padded with empty values (use -strict to reject them)", src.Padded)
	}
	if src.Table.Len() == 0 {
		return fmt.Errorf("%s: %w", cfg.Input, variants.ErrEmptyInput)
	}

	param, err := m.resolveParam(src.Table.Columns)
	if err != nil {
		return err
	}
	if err := m.promptDefaults(); err != nil {
		return err
	}

	var res *variants.Result
	err = step("build", func() error {
		var err error
		res, err = variants.Build(src.Table, variants.Config{
			Parameter:     param,
			ParentCode:    m.cfg.ProductCode,
			MainTitle:     m.cfg.Title,
			TemplateIndex: cfg.TemplateIndex,
			Language:      cfg.Language,
		})
		return err
	})
	if err != nil {
		return err
	}
	metrics.IncCounter(metrics.PromotedParamsTotal, float64(len(res.Promoted)), nil)
	if m.verbose {
		log.Printf("variants: param=%q parent=%s promoted=%v", param, res.ParentCode, res.Promoted)
	}

	out := cfg.OutputPath()
	delim := cfg.DelimiterRune()
	if delim == 0 {
		delim = src.Delimiter
	}
	if delim == 0 {
		delim = ','
	}
	outEnc := cfg.EffectiveEncoding()
	if tableio.FormatOf(out) == tableio.FormatXLSX {
		outEnc = "xlsx"
	}
	err = step("write", func() error {
		return tableio.Write(out, res.Table, tableio.WriteOptions{
			Delimiter: delim,
			BOM:       outEnc == config.EncodingUTF8BOM,
		})
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	metrics.RecordRows("out", res.Table.Len())

	if cfg.LedgerKind() != "" {
		rec := storage.RunRecord{
			Job:           cfg.Job,
			StartedAt:     started,
			FinishedAt:    time.Now().UTC(),
			InputPath:     cfg.Input,
			OutputPath:    out,
			InputEncoding: src.Encoding,
			Delimiter:     string(delim),
			ParentCode:    res.ParentCode,
			ParamColumn:   param,
			TemplateIndex: cfg.TemplateIndex,
			InputRows:     src.Table.Len(),
			OutputRows:    res.Table.Len(),
			Promoted:      res.Promoted,
			Digest:        builtin.TableDigest(res.Table),
		}
		if err := step("ledger", func() error { return m.record(ctx, rec) }); err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
	}

	detected := fmt.Sprintf("encoding: %s, delimiter: %q", src.Encoding, src.Delimiter)
	if src.Format == tableio.FormatXLSX {
		detected = "format: xlsx"
	}
	fmt.Fprintf(m.stdout, "Done. Detected %s; written %d rows to %s (%s)\n",
		detected, res.Table.Len(), out, outEnc)
	return nil
}

// resolveParam turns the configured parameter into an exact header, or picks
// one when none was configured.
func (m *merger) resolveParam(columns []string) (string, error) {
	if strings.TrimSpace(m.cfg.Param) != "" {
		return prompt.ResolveParam(m.cfg.Param, columns)
	}
	candidates := variants.ParameterColumns(columns)
	switch {
	case len(candidates) == 1:
		if m.verbose {
			log.Printf("variants: using the only parameter column %q", candidates[0])
		}
		return candidates[0], nil
	case len(candidates) == 0:
		return "", &variants.ConfigurationError{Field: "param", Msg: "not set and the source has no parameter columns"}
	case m.cfg.NonInteractive:
		return "", &variants.ConfigurationError{
			Field: "param",
			Msg:   fmt.Sprintf("not set and %d parameter columns found: %s", len(candidates), strings.Join(candidates, ", ")),
		}
	}
	col, err := m.ask.ChooseParam(candidates)
	if errors.Is(err, prompt.ErrNoAnswer) {
		return "", &variants.ConfigurationError{Field: "param", Msg: "no parameter chosen"}
	}
	return col, err
}

// promptDefaults asks for the parent code and main title when they were not
// configured. An empty answer or closed input keeps the template values.
func (m *merger) promptDefaults() error {
	if m.cfg.NonInteractive {
		return nil
	}
	questions := []struct {
		label string
		dst   *string
	}{
		{"Parent PRODUCT_CODE (empty keeps the template's)", &m.cfg.ProductCode},
		{"Main product TITLE (empty keeps the template's)", &m.cfg.Title},
	}
	for _, q := range questions {
		if *q.dst != "" {
			continue
		}
		ans, err := m.ask.Ask(q.label, "")
		if errors.Is(err, prompt.ErrNoAnswer) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		*q.dst = ans
	}
	return nil
}

func (m *merger) record(ctx context.Context, rec storage.RunRecord) error {
	l, err := storage.Open(ctx, storage.Config{Kind: m.cfg.LedgerKind(), DSN: m.cfg.Ledger.DSN})
	if err != nil {
		return err
	}
	defer l.Close()

	prev, ok, err := l.LastDigest(ctx, rec.OutputPath)
	if err != nil {
		return err
	}
	switch {
	case !ok:
		log.Printf("ledger: first run for %s", rec.OutputPath)
	case prev == rec.Digest:
		log.Printf("ledger: output unchanged since last run")
	default:
		log.Printf("ledger: output changed since last run")
	}

	id, err := l.RecordRun(ctx, rec)
	if err != nil {
		return err
	}
	if m.verbose {
		log.Printf("ledger: recorded run id=%d kind=%s", id, m.cfg.LedgerKind())
	}
	return nil
}
