// Package catalog defines the remote metadata collaborator: the lookup
// interface the import pipeline depends on, the lookup key and metadata
// types, and the OpenLibrary-backed implementation.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Key addresses one catalog lookup: either by ISBN or by a title/author
// pair. Exactly one form is populated.
type Key struct {
	ISBN   string
	Title  string
	Author string
}

// ISBNKey creates an identifier-keyed lookup. Hyphens and spaces are
// stripped so equivalent ISBN spellings share a key.
func ISBNKey(isbn string) Key {
	return Key{ISBN: NormalizeISBN(isbn)}
}

// TitleAuthorKey creates a fallback lookup keyed by title and author.
func TitleAuthorKey(title, author string) Key {
	return Key{Title: strings.TrimSpace(title), Author: strings.TrimSpace(author)}
}

// IsISBN reports whether this key addresses the catalog by identifier.
func (k Key) IsISBN() bool {
	return k.ISBN != ""
}

// String returns the canonical form used for dedupe maps and cache keys.
func (k Key) String() string {
	if k.IsISBN() {
		return "isbn:" + k.ISBN
	}
	return fmt.Sprintf("title:%s|author:%s", strings.ToLower(k.Title), strings.ToLower(k.Author))
}

// NormalizeISBN reduces an ISBN to its bare digits. Spreadsheet exports
// wrap ISBNs in ="..." to stop them being parsed as numbers, and the
// ISBN-10 check digit may appear as a lowercase x.
func NormalizeISBN(isbn string) string {
	var b strings.Builder
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'X' || r == 'x':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// Metadata is the bibliographic record a catalog lookup returns.
type Metadata struct {
	// CatalogID is the catalog's own identifier for the work.
	CatalogID   string   `json:"catalog_id"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	Authors     []string `json:"authors"`
	Publisher   string   `json:"publisher"`
	PublishDate string   `json:"publish_date"`
	Description string   `json:"description"`
	PageCount   int      `json:"page_count"`
	Language    string   `json:"language"`
	Genres      []string `json:"genres"`
	CoverURL    string   `json:"cover_url"`
	ISBN        string   `json:"isbn"`
}

// Client is the metadata collaborator interface. Implementations return
// (nil, nil) when the catalog has no record for the key, and an error
// carrying enough detail (status code, retry-after, transport failure)
// for the resilience layer to classify it.
type Client interface {
	// Name identifies this collaborator for logging and circuit scoping.
	Name() string

	// LookupISBN retrieves metadata by normalized ISBN.
	LookupISBN(ctx context.Context, isbn string) (*Metadata, error)

	// LookupTitleAuthor retrieves metadata by title/author search.
	LookupTitleAuthor(ctx context.Context, title, author string) (*Metadata, error)

	// LookupBatch resolves several keys, returning a map keyed by input.
	// Keys the catalog has no record for map to nil. The first hard
	// error aborts the batch.
	LookupBatch(ctx context.Context, keys []Key) (map[Key]*Metadata, error)
}

// Lookup dispatches a single key to the matching client method.
func Lookup(ctx context.Context, c Client, key Key) (*Metadata, error) {
	if key.IsISBN() {
		return c.LookupISBN(ctx, key.ISBN)
	}
	return c.LookupTitleAuthor(ctx, key.Title, key.Author)
}
