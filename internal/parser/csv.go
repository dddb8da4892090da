package parser

import (
	"fmt"
	"log/slog"

	"github.com/lepinkainen/stacks/internal/csvutil"
)

// ParseCSV reads book rows from a CSV export. The first row is the
// header; rows that fail to parse or carry no usable identity are
// skipped with a warning.
func ParseCSV(path string, mapping FieldMapping) ([]RowRecord, error) {
	bind := func(header []string) (func([]string) (RowRecord, error), error) {
		idx, err := resolveColumns(header, mapping)
		if err != nil {
			return nil, err
		}
		rowNum := 0
		return func(cells []string) (RowRecord, error) {
			rowNum++
			record, ok := buildRecord(rowNum, cells, idx)
			if !ok {
				return RowRecord{}, fmt.Errorf("row %d has no title or ISBN", rowNum)
			}
			return record, nil
		}, nil
	}

	// Exports from different tools disagree on trailing columns.
	records, err := csvutil.ProcessCSV(path, bind, csvutil.ProcessorOptions{
		FieldsPerRecord: -1,
		SkipInvalid:     true,
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Parsed CSV source", "file", path, "rows", len(records))
	return records, nil
}
