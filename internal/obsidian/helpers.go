package obsidian

import "strings"

// NewFrontmatterWithTitle returns a Frontmatter seeded with the title
// field, the one key every note carries.
func NewFrontmatterWithTitle(title string) *Frontmatter {
	fm := NewFrontmatter()
	fm.Set("title", title)
	return fm
}

// ApplyTagSet assigns a TagSet to the frontmatter in sorted form.
func ApplyTagSet(fm *Frontmatter, tags *TagSet) {
	fm.Set("tags", tags.GetSorted())
}

// BuildNoteMarkdown builds the markdown for a note, trimming stray
// whitespace around the body first.
func BuildNoteMarkdown(fm *Frontmatter, body string) ([]byte, error) {
	note := &Note{
		Frontmatter: fm,
		Body:        strings.TrimSpace(body),
	}

	return note.Build()
}
