// Package csv writes a records.Table as delimited UTF-8 text.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"upvariants/pkg/records"
)

// Options controls the output dialect.
type Options struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
	// BOM prefixes the output with a UTF-8 byte order mark so Excel
	// recognises the encoding.
	BOM bool
	// CRLF ends lines with \r\n.
	CRLF bool
}

// Write emits the header then every row, columns in t.Columns order.
func Write(w io.Writer, t *records.Table, opt Options) error {
	out := w
	var tw *transform.Writer
	if opt.BOM {
		tw = transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
		out = tw
	}

	cw := csv.NewWriter(out)
	if opt.Comma != 0 {
		cw.Comma = opt.Comma
	}
	cw.UseCRLF = opt.CRLF

	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("csv: header: %w", err)
	}
	for i := range t.Rows {
		if err := cw.Write(t.Values(i)); err != nil {
			return fmt.Errorf("csv: row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return fmt.Errorf("csv: bom: %w", err)
		}
	}
	return nil
}
