// Package export writes a reconstructed table as CSV or XLSX.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/thywilljoshua/lab-report-analyzer/internal/table"
)

const sheetName = "Tahlil"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TimestampedName names an export after the moment it was produced.
func TimestampedName(now time.Time, ext string) string {
	return now.Format("20060102_150405") + ext
}

// WriteCSV writes the header and every row. With bom set the output starts
// with a UTF-8 byte order mark so spreadsheet tools detect the encoding.
func WriteCSV(w io.Writer, t *table.Table, bom bool) error {
	if !t.HasHeader() {
		return fmt.Errorf("export csv: table has no header")
	}
	if bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// XLSX returns a single-sheet workbook holding the table.
func XLSX(t *table.Table) ([]byte, error) {
	if !t.HasHeader() {
		return nil, fmt.Errorf("export xlsx: table has no header")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(idx)

	write := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheetName, cell, v)
	}
	for i, h := range t.Header {
		if err := write(i+1, 1, h); err != nil {
			return nil, err
		}
	}
	for r, row := range t.Rows {
		for c, v := range row {
			if err := write(c+1, r+2, v); err != nil {
				return nil, err
			}
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
