package parser

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lepinkainen/stacks/internal/catalog"
)

// ParseFile reads book rows from path, dispatching on the file extension.
// Malformed rows are skipped with a warning rather than failing the run.
func ParseFile(path string, mapping FieldMapping) ([]RowRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(path, mapping)
	case ".xlsx":
		return ParseXLSX(path, mapping)
	default:
		return nil, fmt.Errorf("unsupported source file type: %s", filepath.Ext(path))
	}
}

// buildRecord converts one raw row into a RowRecord. Returns false when
// the row carries neither a title nor an ISBN and cannot be looked up.
func buildRecord(index int, cells []string, idx columnIndex) (RowRecord, bool) {
	get := func(col int) string {
		if col < 0 || col >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[col])
	}

	record := RowRecord{
		Index:     index,
		Title:     get(idx.title),
		Author:    get(idx.author),
		Notes:     get(idx.notes),
		DateRead:  get(idx.dateRead),
		Tags:      splitList(get(idx.tags)),
		Publisher: get(idx.publisher),
		Genres:    splitList(get(idx.genres)),
	}

	// ISBN-13 is the better identifier when both are present.
	record.ISBN = catalog.NormalizeISBN(get(idx.isbn13))
	if record.ISBN == "" {
		record.ISBN = catalog.NormalizeISBN(get(idx.isbn))
	}

	if raw := get(idx.rating); raw != "" {
		if rating, err := strconv.ParseFloat(raw, 64); err == nil {
			record.Rating = rating
		} else {
			slog.Warn("Unparseable rating, keeping zero", "row", index, "value", raw)
		}
	}
	if raw := get(idx.pageCount); raw != "" {
		if pages, err := strconv.Atoi(raw); err == nil {
			record.PageCount = pages
		}
	}

	if record.Title == "" && record.ISBN == "" {
		return RowRecord{}, false
	}
	return record, true
}

// splitList splits a comma-separated cell into trimmed values.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
