package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lepinkainen/stacks/internal/catalog"
	"github.com/lepinkainen/stacks/internal/parser"
)

func sampleRow() parser.RowRecord {
	return parser.RowRecord{
		Index:    1,
		Title:    "Dune",
		Author:   "Frank Herbert",
		ISBN:     "9780441172719",
		Rating:   5,
		Notes:    "Read on vacation",
		DateRead: "2024/01/15",
		Tags:     []string{"sci-fi", "favorites"},
	}
}

func sampleMetadata() *catalog.Metadata {
	return &catalog.Metadata{
		CatalogID:   "/works/OL893415W",
		Title:       "Dune",
		Authors:     []string{"Frank Herbert"},
		Publisher:   "Chilton Books",
		PublishDate: "1965",
		Description: "Desert planet epic",
		PageCount:   604,
		Language:    "eng",
		Genres:      []string{"Science fiction"},
		CoverURL:    "https://covers.openlibrary.org/b/id/1-L.jpg",
		ISBN:        "9780441172719",
	}
}

func TestMergePersonalFieldsAlwaysFromRow(t *testing.T) {
	m := &Merger{}
	row := sampleRow()

	book := m.Merge(row, sampleMetadata())

	assert.Equal(t, row.Rating, book.Rating)
	assert.Equal(t, row.Notes, book.Notes)
	assert.Equal(t, row.DateRead, book.DateRead)
	assert.Equal(t, row.Tags, book.Tags)
}

func TestMergeCatalogWinsForBibliographicFields(t *testing.T) {
	m := &Merger{}
	row := sampleRow()
	row.Publisher = "Some Reprint House"
	row.PageCount = 500

	book := m.Merge(row, sampleMetadata())

	assert.Equal(t, "Chilton Books", book.Publisher)
	assert.Equal(t, 604, book.PageCount)
	assert.Equal(t, SourceAPI, book.FieldSources["publisher"])
	assert.Equal(t, SourceAPI, book.FieldSources["page_count"])
	assert.Equal(t, SourceAPI, book.PrimarySource)
}

func TestMergeRowFillsEmptyCatalogFields(t *testing.T) {
	m := &Merger{}
	row := sampleRow()
	row.Publisher = "Chilton Books"
	row.PageCount = 604

	meta := sampleMetadata()
	meta.Publisher = ""
	meta.PageCount = 0
	meta.Language = ""

	book := m.Merge(row, meta)

	assert.Equal(t, "Chilton Books", book.Publisher)
	assert.Equal(t, 604, book.PageCount)
	assert.Equal(t, "", book.Language)
	assert.Equal(t, SourceRow, book.FieldSources["publisher"])
	assert.Equal(t, SourceRow, book.FieldSources["page_count"])
}

func TestMergeWithoutMetadataSynthesizesFromRow(t *testing.T) {
	m := &Merger{}
	row := sampleRow()

	book := m.Merge(row, nil)

	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, []string{"Frank Herbert"}, book.Authors)
	assert.Equal(t, "9780441172719", book.ISBN)
	assert.Equal(t, SourceRow, book.PrimarySource)
	assert.Equal(t, SourceRow, book.FieldSources["title"])
}

func TestMergeWithoutMetadataOrRowIdentity(t *testing.T) {
	m := &Merger{}
	row := parser.RowRecord{Index: 3, ISBN: "9780000000000"}

	book := m.Merge(row, nil)

	assert.Equal(t, "Unknown Title", book.Title)
	assert.Equal(t, []string{"Unknown Author"}, book.Authors)
}

func TestMergeTitleDiscrepancyPreserved(t *testing.T) {
	m := &Merger{}
	row := sampleRow()
	row.Title = "Dune (Collector's Edition)"

	book := m.Merge(row, sampleMetadata())

	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Dune (Collector's Edition)", book.OriginalTitle)
}

func TestMergeGenreUnion(t *testing.T) {
	row := sampleRow()
	row.Genres = []string{"Space Opera", "science fiction"}

	plain := (&Merger{}).Merge(row, sampleMetadata())
	assert.Equal(t, []string{"Science fiction"}, plain.Genres, "without enhancement the catalog overrides")

	enhanced := (&Merger{EnhanceGenres: true}).Merge(row, sampleMetadata())
	assert.Equal(t, []string{"Science fiction", "Space Opera"}, enhanced.Genres,
		"union is case-insensitively deduplicated and sorted")
}

func TestMergeValidationDropsBadRating(t *testing.T) {
	row := sampleRow()
	row.Rating = 12

	book := (&Merger{ValidateRows: true}).Merge(row, sampleMetadata())
	assert.Equal(t, 0.0, book.Rating)

	kept := (&Merger{}).Merge(row, sampleMetadata())
	assert.Equal(t, 12.0, kept.Rating, "validation off keeps the row value as-is")
}
