package importer

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/lepinkainen/stacks/internal/catalog"
	"github.com/lepinkainen/stacks/internal/parser"
)

const (
	unknownTitle  = "Unknown Title"
	unknownAuthor = "Unknown Author"
)

// Merger combines catalog metadata with row-supplied fields. Catalog
// values win for bibliographic fields when non-empty; the row fills the
// gaps. Personal fields always come from the row.
type Merger struct {
	// EnhanceGenres merges row genres into the catalog's set instead of
	// letting the catalog override them.
	EnhanceGenres bool
	// ValidateRows drops out-of-range row values (rating outside 0-5,
	// negative page counts) before merging.
	ValidateRows bool
}

// Merge produces the final record for one row. meta may be nil when the
// catalog had no match; the record is then synthesized from the row
// alone.
func (m *Merger) Merge(row parser.RowRecord, meta *catalog.Metadata) Book {
	rating := row.Rating
	if m.ValidateRows && (rating < 0 || rating > 5) {
		slog.Warn("Dropping out-of-range rating", "row", row.Index, "rating", rating)
		rating = 0
	}
	rowPages := row.PageCount
	if m.ValidateRows && rowPages < 0 {
		rowPages = 0
	}

	book := Book{
		RowIndex:     row.Index,
		Rating:       rating,
		Notes:        row.Notes,
		DateRead:     row.DateRead,
		Tags:         row.Tags,
		FieldSources: make(map[string]FieldSource),
	}

	if meta == nil {
		book.PrimarySource = SourceRow
		book.Title = fallback(row.Title, unknownTitle)
		book.ISBN = row.ISBN
		book.Publisher = row.Publisher
		book.Genres = row.Genres
		book.PageCount = rowPages
		if row.Author != "" {
			book.Authors = []string{row.Author}
		} else {
			book.Authors = []string{unknownAuthor}
		}
		for _, field := range []string{"title", "authors", "isbn", "publisher", "genres", "page_count"} {
			book.FieldSources[field] = SourceRow
		}
		return book
	}

	book.PrimarySource = SourceAPI
	book.CatalogID = meta.CatalogID
	book.FieldSources["catalog_id"] = SourceAPI

	book.Title = m.pickString(&book, "title", meta.Title, fallback(row.Title, unknownTitle))
	if meta.Title != "" && row.Title != "" && !strings.EqualFold(meta.Title, row.Title) {
		book.OriginalTitle = row.Title
	}

	if len(meta.Authors) > 0 {
		book.Authors = meta.Authors
		book.FieldSources["authors"] = SourceAPI
	} else {
		book.Authors = []string{fallback(row.Author, unknownAuthor)}
		book.FieldSources["authors"] = SourceRow
	}

	book.Subtitle = meta.Subtitle
	if meta.Subtitle != "" {
		book.FieldSources["subtitle"] = SourceAPI
	}
	book.ISBN = m.pickString(&book, "isbn", meta.ISBN, row.ISBN)
	book.Publisher = m.pickString(&book, "publisher", meta.Publisher, row.Publisher)
	book.PublishDate = m.pickString(&book, "publish_date", meta.PublishDate, "")
	book.Description = m.pickString(&book, "description", meta.Description, "")
	book.Language = m.pickString(&book, "language", meta.Language, "")
	book.CoverURL = m.pickString(&book, "cover_url", meta.CoverURL, "")

	if meta.PageCount > 0 {
		book.PageCount = meta.PageCount
		book.FieldSources["page_count"] = SourceAPI
	} else if rowPages > 0 {
		book.PageCount = rowPages
		book.FieldSources["page_count"] = SourceRow
	}

	book.Genres = m.mergeGenres(&book, meta.Genres, row.Genres)
	return book
}

// pickString applies the precedence policy for one bibliographic field
// and records its provenance.
func (m *Merger) pickString(book *Book, field, apiValue, rowValue string) string {
	if apiValue != "" {
		book.FieldSources[field] = SourceAPI
		return apiValue
	}
	if rowValue != "" {
		book.FieldSources[field] = SourceRow
		return rowValue
	}
	return ""
}

func (m *Merger) mergeGenres(book *Book, apiGenres, rowGenres []string) []string {
	if m.EnhanceGenres && len(apiGenres) > 0 && len(rowGenres) > 0 {
		book.FieldSources["genres"] = SourceAPI
		return unionStrings(apiGenres, rowGenres)
	}
	if len(apiGenres) > 0 {
		book.FieldSources["genres"] = SourceAPI
		return apiGenres
	}
	if len(rowGenres) > 0 {
		book.FieldSources["genres"] = SourceRow
		return rowGenres
	}
	return nil
}

// unionStrings merges two genre lists, case-insensitively deduplicated,
// sorted for stable output.
func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var result []string
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			key := strings.ToLower(strings.TrimSpace(v))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, v)
		}
	}
	sort.Strings(result)
	return result
}

func fallback(value, alt string) string {
	if value != "" {
		return value
	}
	return alt
}
