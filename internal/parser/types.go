// Package parser reads book rows from spreadsheet exports (CSV and XLSX)
// into a uniform record the import pipeline consumes. Column layout is
// driven by a field mapping, defaulting to the Goodreads export format.
package parser

// RowRecord is one book row from the source file. Personal fields
// (Rating, Notes, DateRead, Tags) belong to the reader, not the book,
// and are never replaced by catalog data downstream.
type RowRecord struct {
	// Index is the 1-based data row number in the source file, used for
	// progress reporting and retry bookkeeping.
	Index int

	Title  string
	Author string
	// ISBN is normalized to bare digits. ISBN-13 wins over ISBN-10 when
	// the source carries both.
	ISBN string

	Rating   float64
	Notes    string
	DateRead string
	Tags     []string

	Publisher string
	PageCount int
	Genres    []string
}

// HasISBN reports whether the row carries an identifier usable for the
// direct lookup phase.
func (r RowRecord) HasISBN() bool {
	return r.ISBN != ""
}
