package xlsx

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"upvariants/pkg/records"
)

func TestWrite(t *testing.T) {
	tbl, err := records.FromRows(
		[]string{"[PRODUCT_CODE]", "[EAN]", "[TITLE]"},
		[][]string{
			{"P1", "", "Tričko"},
			{"P1-R", "007", ""},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, tbl, ""); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{DefaultSheet}) {
		t.Fatalf("sheets = %q", got)
	}
	rows, err := f.GetRows(DefaultSheet)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"[PRODUCT_CODE]", "[EAN]", "[TITLE]"},
		{"P1", "", "Tričko"},
		{"P1-R", "007"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %q, want %q", rows, want)
	}
}
