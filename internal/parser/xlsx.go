package parser

import (
	"fmt"
	"log/slog"

	"github.com/tealeg/xlsx/v2"
)

// ParseXLSX reads book rows from the first sheet of an XLSX workbook.
// The first row is the header, matching the CSV layout.
func ParseXLSX(path string, mapping FieldMapping) ([]RowRecord, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("XLSX file %s has no sheets", path)
	}

	sheet := file.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("XLSX sheet %s is empty", sheet.Name)
	}

	idx, err := resolveColumns(rowToStrings(sheet.Rows[0]), mapping)
	if err != nil {
		return nil, err
	}

	var records []RowRecord
	for i, row := range sheet.Rows[1:] {
		record, ok := buildRecord(i+1, rowToStrings(row), idx)
		if !ok {
			slog.Warn("Skipping row with no title or ISBN", "row", i+1)
			continue
		}
		records = append(records, record)
	}

	slog.Debug("Parsed XLSX source", "file", path, "sheet", sheet.Name, "rows", len(records))
	return records, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}
