// Package csv reads an Upgates CSV export into a records.Table, detecting
// the text encoding and field delimiter when they are not configured.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"upvariants/internal/config"
	"upvariants/pkg/records"
)

// Result is a parsed table plus what was detected about its source.
type Result struct {
	Table     *records.Table
	Encoding  string
	Delimiter rune
	// Padded counts data rows that were shorter than the header and got
	// empty trailing values.
	Padded int
}

// ReadTable reads the whole of src.
//
// Options:
//
//	comma        force the delimiter instead of sniffing it
//	encoding     force the source encoding instead of detecting it
//	lazy_quotes  tolerate stray quotes in unquoted fields (default true)
//	trim_space   trim surrounding whitespace from values (default false)
//	header_map   rename source headers before anything else sees them
//	strict       reject rows shorter than the header instead of padding them
//
// Duplicate header names are disambiguated as "name.1", "name.2". Blank
// lines are skipped. A row with more fields than the header is an error;
// a shorter row is padded with empty values and counted in Result.Padded
// unless strict is set.
func ReadTable(src io.Reader, opt config.Options) (*Result, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("csv: read: %w", err)
	}

	res := &Result{}
	var text string
	if name := opt.String("encoding", ""); name != "" {
		t, ok := DecodeAs(data, name)
		if !ok {
			return nil, fmt.Errorf("csv: cannot decode input as %q", name)
		}
		text, res.Encoding = t, strings.ToLower(name)
	} else {
		text, res.Encoding = Decode(data)
	}
	text = strings.TrimPrefix(text, "\ufeff")

	res.Delimiter = opt.Rune("comma", 0)
	if res.Delimiter == 0 {
		res.Delimiter = SniffDelimiter(text)
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = res.Delimiter
	cr.LazyQuotes = opt.Bool("lazy_quotes", true)
	cr.FieldsPerRecord = -1
	trim := opt.Bool("trim_space", false)
	strict := opt.Bool("strict", false)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: input has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: header: %w", err)
	}
	columns := uniqueHeaders(header, opt.StringMap("header_map"))

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if len(rec) > len(columns) || (strict && len(rec) < len(columns)) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("csv: line %d: expected %d fields, saw %d", line, len(columns), len(rec))
		}
		row := make([]string, len(columns))
		copy(row, rec)
		if len(rec) < len(columns) {
			res.Padded++
		}
		if trim {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}
		rows = append(rows, row)
	}

	res.Table, err = records.FromRows(columns, rows)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func uniqueHeaders(header []string, rename map[string]string) []string {
	names := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if to, ok := rename[h]; ok && to != "" {
			h = to
		}
		names[i] = h
	}
	return records.UniqueNames(names)
}
