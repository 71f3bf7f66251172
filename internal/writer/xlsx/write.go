// Package xlsx writes a records.Table as a single-sheet Excel workbook.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"upvariants/pkg/records"
)

// DefaultSheet is the sheet name used when none is given.
const DefaultSheet = "Products"

// Write emits t to w as an .xlsx workbook with a bold header row. All cells
// are written as text so codes like "007" keep their leading zeros.
func Write(w io.Writer, t *records.Table, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("xlsx: sheet name: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: style: %w", err)
	}

	if err := writeRow(f, sheet, 1, t.Columns); err != nil {
		return err
	}
	if len(t.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("xlsx: header style: %w", err)
		}
	}
	for i := range t.Rows {
		if err := writeRow(f, sheet, i+2, t.Values(i)); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	for j, v := range values {
		if v == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(j+1, row)
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		if err := f.SetCellStr(sheet, cell, v); err != nil {
			return fmt.Errorf("xlsx: %s: %w", cell, err)
		}
	}
	return nil
}
