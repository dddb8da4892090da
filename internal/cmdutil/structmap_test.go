package cmdutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructToMap(t *testing.T) {
	type record struct {
		CatalogID string
		Title     string
		Authors   []string
		PageCount int
		CoverURL  string
		Secret    string
	}

	m := StructToMap(record{
		CatalogID: "/works/OL1W",
		Title:     "Dune",
		Authors:   []string{"Frank Herbert", "Someone Else"},
		PageCount: 412,
		CoverURL:  "https://example.com/c.jpg",
		Secret:    "drop me",
	}, StructToMapOptions{
		OmitFields:       map[string]bool{"Secret": true},
		JoinStringSlices: true,
	})

	assert.Equal(t, "/works/OL1W", m["catalog_id"])
	assert.Equal(t, "Dune", m["title"])
	assert.Equal(t, "Frank Herbert,Someone Else", m["authors"])
	assert.Equal(t, 412, m["page_count"])
	assert.Equal(t, "https://example.com/c.jpg", m["cover_url"])
	_, ok := m["secret"]
	assert.False(t, ok)
}

func TestStructToMapKeyOverrides(t *testing.T) {
	type record struct {
		Kind string
	}

	m := StructToMap(record{Kind: "csv"}, StructToMapOptions{
		KeyOverrides: map[string]string{"Kind": "title_source"},
	})

	assert.Equal(t, "csv", m["title_source"])
}

func TestStructToMapNilPointer(t *testing.T) {
	type record struct{ Title string }
	var r *record

	m := StructToMap(r, StructToMapOptions{})
	assert.Empty(t, m)
}
