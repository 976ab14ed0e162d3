// internal/report/xlsx.go
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/dalemusser/mailcheck/isemail"
	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
	maxColWidth  = 60
)

// writeXLSX builds a workbook with a Results sheet (one row per address,
// frozen header, auto filter) and a Summary sheet. Cells are written as
// strings so nothing is evaluated as a formula.
func writeXLSX(w io.Writer, results []isemail.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "#000000", Style: 1}},
	})
	if err != nil {
		return err
	}

	widths := make([]int, len(columns))
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, columns)
	for _, r := range results {
		rows = append(rows, row(r))
	}
	for y, cells := range rows {
		for x, v := range cells {
			cell, err := excelize.CoordinatesToCellName(x+1, y+1)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(resultsSheet, cell, v); err != nil {
				return err
			}
			widths[x] = max(widths[x], len(v))
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(resultsSheet, "A1", last, header); err != nil {
		return err
	}
	for x, width := range widths {
		col, _ := excelize.ColumnNumberToName(x + 1)
		if err := f.SetColWidth(resultsSheet, col, col, float64(min(max(width+2, 10), maxColWidth))); err != nil {
			return err
		}
	}
	if err := f.SetPanes(resultsSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}
	end, _ := excelize.CoordinatesToCellName(len(columns), len(rows))
	if err := f.AutoFilter(resultsSheet, "A1:"+end, nil); err != nil {
		return err
	}

	if err := writeSummarySheet(f, Summarize(results), header); err != nil {
		return err
	}
	return f.Write(w)
}

func writeSummarySheet(f *excelize.File, s Summary, header int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	rows := [][]any{
		{"metric", "count"},
		{"total", s.Total},
		{"valid", s.Valid},
		{"invalid", s.Invalid},
	}
	bands := make([]string, 0, len(s.ByBand))
	for b := range s.ByBand {
		bands = append(bands, b)
	}
	sort.Strings(bands)
	for _, b := range bands {
		rows = append(rows, []any{"band " + b, s.ByBand[b]})
	}
	for y, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, y+1)
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return fmt.Errorf("summary row %d: %w", y+1, err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", header); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "A", 20)
}
