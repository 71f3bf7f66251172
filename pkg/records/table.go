// Package records defines the in-memory table shape shared by readers,
// the variant builder and writers.
package records

import (
	"fmt"
	"strconv"
)

// Record is one row keyed by the exact source header name.
// Missing and empty values are both represented as "".
type Record map[string]string

// Clone returns an independent copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of rows with an ordered column list.
//
// Columns carries the source header order; Rows never reorder columns,
// they only map names to values.
type Table struct {
	Columns []string
	Rows    []Record
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Values returns row i as a positional slice aligned to Columns.
func (t *Table) Values(i int) []string {
	r := t.Rows[i]
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = r[c]
	}
	return out
}

// Column returns every row's value for col, in row order.
func (t *Table) Column(col string) []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[col]
	}
	return out
}

// HasColumn reports whether col is part of the header.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// FromRows builds a Table from a header and positional rows. Rows whose
// length differs from the header are rejected rather than padded.
func FromRows(columns []string, rows [][]string) (*Table, error) {
	t := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([]Record, 0, len(rows)),
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("records: row %d has %d fields, header has %d", i, len(row), len(columns))
		}
		rec := make(Record, len(columns))
		for j, c := range columns {
			rec[c] = row[j]
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// UniqueNames disambiguates repeated header names by appending ".1", ".2",
// keeping the first occurrence unchanged.
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for i, h := range names {
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
