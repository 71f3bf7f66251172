// Package tableio picks a reader or writer by file extension and writes
// output atomically.
package tableio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"upvariants/internal/config"
	csvparser "upvariants/internal/parser/csv"
	xlsxparser "upvariants/internal/parser/xlsx"
	csvwriter "upvariants/internal/writer/csv"
	xlsxwriter "upvariants/internal/writer/xlsx"
	"upvariants/pkg/records"
)

// Format is a supported table file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf maps a path to its format. Anything that is not .xlsx is
// treated as delimited text.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Source is a table read from disk plus what was detected about the file.
type Source struct {
	Table  *records.Table
	Format Format
	// Encoding and Delimiter are empty / zero for workbooks.
	Encoding  string
	Delimiter rune
	Padded    int
}

// Read loads path using the parser for its extension.
func Read(path string, opt config.Options) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src := &Source{Format: FormatOf(path)}
	switch src.Format {
	case FormatXLSX:
		src.Table, err = xlsxparser.ReadTable(f, opt)
		if err != nil {
			return nil, err
		}
	default:
		res, err := csvparser.ReadTable(f, opt)
		if err != nil {
			return nil, err
		}
		src.Table, src.Encoding, src.Delimiter, src.Padded = res.Table, res.Encoding, res.Delimiter, res.Padded
	}
	return src, nil
}

// WriteOptions controls the output dialect of delimited text.
type WriteOptions struct {
	Delimiter rune
	BOM       bool
	Sheet     string
}

// outputMode is the permission of a newly created output file.
const outputMode os.FileMode = 0o644

// Write stores t at path in the format implied by its extension. Data is
// written to a temporary file in the same directory and renamed into
// place, so path never holds a partial table. A replaced file keeps its
// permissions; a new one gets outputMode.
func Write(path string, t *records.Table, opt WriteOptions) (err error) {
	mode := outputMode
	if fi, statErr := os.Stat(path); statErr == nil {
		mode = fi.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("tableio: temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	switch FormatOf(path) {
	case FormatXLSX:
		err = xlsxwriter.Write(tmp, t, opt.Sheet)
	default:
		err = csvwriter.Write(tmp, t, csvwriter.Options{Comma: opt.Delimiter, BOM: opt.BOM})
	}
	if err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return fmt.Errorf("tableio: chmod: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("tableio: sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("tableio: close: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("tableio: rename: %w", err)
	}
	return nil
}
