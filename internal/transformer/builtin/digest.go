// Package builtin contains small deterministic helpers applied to finished
// tables.
package builtin

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"

	"upvariants/pkg/records"
)

// Digest computes SHA-256 fingerprints of table content.
//
// Canonical form:
//   - values are joined in column order with Separator;
//   - a key absent from the record is encoded as a single NUL byte, so
//     missing differs from empty;
//   - rows are terminated by ASCII Record Separator (0x1e);
//   - the column list is hashed first, as if it were a row.
//
// Output is lowercase hex, 64 characters.
type Digest struct {
	// Separator goes between values. Empty means ASCII Unit Separator (0x1f).
	Separator string

	// IncludeFieldNames writes "column=value" instead of the bare value.
	IncludeFieldNames bool

	// TrimSpace trims surrounding whitespace from values before hashing.
	TrimSpace bool
}

func (d Digest) sep() string {
	if d.Separator == "" {
		return "\x1f"
	}
	return d.Separator
}

// Row returns the digest of row i of t.
func (d Digest) Row(t *records.Table, i int) string {
	h := sha256.New()
	d.writeRecord(h, t.Columns, t.Rows[i])
	return hex.EncodeToString(h.Sum(nil))
}

// Table returns the digest of the header and every row, in order.
func (d Digest) Table(t *records.Table) string {
	h := sha256.New()
	header := make(records.Record, len(t.Columns))
	for _, c := range t.Columns {
		header[c] = c
	}
	d.writeRecord(h, t.Columns, header)
	for _, r := range t.Rows {
		d.writeRecord(h, t.Columns, r)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (d Digest) writeRecord(h hash.Hash, columns []string, r records.Record) {
	var b strings.Builder
	b.Grow(len(columns) * 20)

	sep := d.sep()
	for i, c := range columns {
		if i > 0 {
			b.WriteString(sep)
		}
		if d.IncludeFieldNames {
			b.WriteString(c)
			b.WriteByte('=')
		}
		v, ok := r[c]
		if !ok {
			b.WriteByte('\x00')
			continue
		}
		if d.TrimSpace && HasEdgeSpace(v) {
			v = strings.TrimSpace(v)
		}
		b.WriteString(v)
	}
	b.WriteByte('\x1e')
	h.Write([]byte(b.String()))
}

// TableDigest is the digest recorded for run outputs: bare values, no
// trimming.
func TableDigest(t *records.Table) string {
	return Digest{}.Table(t)
}

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
