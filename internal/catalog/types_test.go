package catalog

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain isbn13", "9780134190440", "9780134190440"},
		{"hyphenated", "978-0-13-419044-0", "9780134190440"},
		{"spaces", "978 0134190440", "9780134190440"},
		{"goodreads export wrapper", `="9780134190440"`, "9780134190440"},
		{"isbn10 with check X", "0-8044-2957-X", "080442957X"},
		{"lowercase x", "080442957x", "080442957X"},
		{"empty", "", ""},
		{"garbage only", `=""`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeISBN(tt.input))
		})
	}
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "isbn:9780134190440", ISBNKey("978-0-13-419044-0").String())
	assert.Equal(t, "title:the go programming language|author:alan donovan",
		TitleAuthorKey("The Go Programming Language", "Alan Donovan").String())
}

func TestKeyIsISBN(t *testing.T) {
	assert.True(t, ISBNKey("9780134190440").IsISBN())
	assert.False(t, TitleAuthorKey("Some Title", "Some Author").IsISBN())
}
