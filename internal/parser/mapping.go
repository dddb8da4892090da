package parser

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldMapping names the source column for each record field. Empty
// entries mean the field is absent from the source.
type FieldMapping struct {
	Title     string `yaml:"title"`
	Author    string `yaml:"author"`
	ISBN      string `yaml:"isbn"`
	ISBN13    string `yaml:"isbn13"`
	Rating    string `yaml:"rating"`
	Notes     string `yaml:"notes"`
	DateRead  string `yaml:"date_read"`
	Tags      string `yaml:"tags"`
	Publisher string `yaml:"publisher"`
	PageCount string `yaml:"page_count"`
	Genres    string `yaml:"genres"`
}

// GoodreadsMapping returns the default mapping for Goodreads library
// exports.
func GoodreadsMapping() FieldMapping {
	return FieldMapping{
		Title:     "Title",
		Author:    "Author",
		ISBN:      "ISBN",
		ISBN13:    "ISBN13",
		Rating:    "My Rating",
		Notes:     "My Review",
		DateRead:  "Date Read",
		Tags:      "Bookshelves",
		Publisher: "Publisher",
		PageCount: "Number of Pages",
	}
}

// LoadMapping reads a field mapping from a YAML file. An empty path
// returns the Goodreads default.
func LoadMapping(path string) (FieldMapping, error) {
	if path == "" {
		return GoodreadsMapping(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FieldMapping{}, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var mapping FieldMapping
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return FieldMapping{}, fmt.Errorf("failed to parse mapping file: %w", err)
	}

	if mapping.Title == "" {
		return FieldMapping{}, fmt.Errorf("mapping file %s does not name a title column", path)
	}
	return mapping, nil
}

// columnIndex resolves a mapping to header positions. Matching is
// case-insensitive and ignores surrounding whitespace. Missing columns
// resolve to -1.
type columnIndex struct {
	title     int
	author    int
	isbn      int
	isbn13    int
	rating    int
	notes     int
	dateRead  int
	tags      int
	publisher int
	pageCount int
	genres    int
}

func resolveColumns(headers []string, mapping FieldMapping) (columnIndex, error) {
	positions := make(map[string]int, len(headers))
	for i, h := range headers {
		positions[strings.ToLower(strings.TrimSpace(h))] = i
	}

	find := func(name string) int {
		if name == "" {
			return -1
		}
		if idx, ok := positions[strings.ToLower(strings.TrimSpace(name))]; ok {
			return idx
		}
		return -1
	}

	idx := columnIndex{
		title:     find(mapping.Title),
		author:    find(mapping.Author),
		isbn:      find(mapping.ISBN),
		isbn13:    find(mapping.ISBN13),
		rating:    find(mapping.Rating),
		notes:     find(mapping.Notes),
		dateRead:  find(mapping.DateRead),
		tags:      find(mapping.Tags),
		publisher: find(mapping.Publisher),
		pageCount: find(mapping.PageCount),
		genres:    find(mapping.Genres),
	}

	if idx.title < 0 {
		return columnIndex{}, fmt.Errorf("source file has no %q column", mapping.Title)
	}
	return idx, nil
}
