// Package xlsx reads the first worksheet of an Excel workbook into a
// records.Table.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"upvariants/internal/config"
	"upvariants/pkg/records"
)

// ReadTable reads a workbook from src. Cells are taken as their formatted
// text; rows above the header row are ignored.
//
// Options:
//
//	sheet       read this sheet instead of the first one
//	header_row  1-based row holding the header (default 1)
//	trim_space  trim surrounding whitespace from values (default false)
//
// Excel drops trailing empty cells, so short rows are padded. Rows with no
// content at all are skipped. A non-empty cell beyond the header is an error.
func ReadTable(src io.Reader, opt config.Options) (*records.Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open: %w", err)
	}
	defer f.Close()

	sheet := opt.String("sheet", "")
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("xlsx: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: sheet %q: %w", sheet, err)
	}
	hdr := opt.Int("header_row", 1)
	if hdr < 1 {
		return nil, fmt.Errorf("xlsx: header_row must be >= 1, got %d", hdr)
	}
	if len(rows) < hdr {
		return nil, fmt.Errorf("xlsx: sheet %q has no header row", sheet)
	}

	columns := records.UniqueNames(rows[hdr-1])
	trim := opt.Bool("trim_space", false)

	data := make([][]string, 0, len(rows)-hdr)
	for i, r := range rows[hdr:] {
		if blank(r) {
			continue
		}
		row := make([]string, len(columns))
		for j, v := range r {
			if j >= len(columns) {
				if strings.TrimSpace(v) != "" {
					cell, _ := excelize.CoordinatesToCellName(j+1, hdr+i+1)
					return nil, fmt.Errorf("xlsx: cell %s is outside the header", cell)
				}
				continue
			}
			if trim {
				v = strings.TrimSpace(v)
			}
			row[j] = v
		}
		data = append(data, row)
	}
	return records.FromRows(columns, data)
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
