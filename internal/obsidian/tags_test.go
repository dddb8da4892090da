package obsidian

import (
	"reflect"
	"testing"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Basic cases
		{"simple tag", "biography", "biography"},
		{"with spaces", "Literary Fiction", "Literary-Fiction"},
		{"multiple spaces", "Literary  Fiction", "Literary-Fiction"},
		{"leading hash", "#Sci-Fi", "Sci-Fi"},
		{"leading and trailing whitespace", "  genre/Horror  ", "genre/Horror"},
		{"ampersand", "& Other", "and-Other"},
		{"ampersand in middle", "Rock & Roll", "Rock-and-Roll"},

		// Edge cases from plan
		{"double spaces", "Literary  Fiction", "Literary-Fiction"},
		{"hash symbol", "#Sci-Fi", "Sci-Fi"},
		{"genre with spaces", "  genre/Horror  ", "genre/Horror"},
		{"ampersand prefix", "& Other", "and-Other"},

		// Hyphen handling
		{"multiple hyphens", "foo---bar", "foo-bar"},
		{"leading hyphens", "---test", "test"},
		{"trailing hyphens", "test---", "test"},
		{"mixed hyphens and spaces", "foo -- bar", "foo-bar"},

		// Special characters
		{"hash in middle", "test#value", "testvalue"},
		{"multiple hashes", "##test##", "test"},
		{"mixed special chars", "Rock & Roll #1", "Rock-and-Roll-1"},

		// Hierarchy preservation
		{"genre hierarchy", "genre/Biography", "genre/Biography"},
		{"nested hierarchy", "books/genre/Fantasy", "books/genre/Fantasy"},
		{"hierarchy with spaces", "genre / Biography", "genre-/-Biography"},

		// Empty and whitespace
		{"empty string", "", ""},
		{"only whitespace", "   ", ""},
		{"only hash", "#", ""},
		{"only hyphens", "---", ""},
		{"only ampersand", "&", "and"},

		// Case preservation
		{"preserve case", "MyTag", "MyTag"},
		{"preserve mixed case", "camelCaseTag", "camelCaseTag"},

		// Tab and newline handling
		{"tabs", "foo\tbar", "foo-bar"},
		{"newlines", "foo\nbar", "foo-bar"},
		{"mixed whitespace", "foo \t\n bar", "foo-bar"},

		// Real-world examples
		{"book genre", "Science Fiction", "Science-Fiction"},
		{"compound genre", "Sci-Fi & Fantasy", "Sci-Fi-and-Fantasy"},
		{"rating tag", "rating/4", "rating/4"},
		{"decade tag", "year/2020s", "year/2020s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTag(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeTag(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "simple list",
			input: []string{"biography", "fiction", "mystery"},
			want:  []string{"biography", "fiction", "mystery"},
		},
		{
			name:  "with duplicates",
			input: []string{"biography", "Biography", "BIOGRAPHY"},
			want:  []string{"BIOGRAPHY", "Biography", "biography"}, // Case preserved and sorted
		},
		{
			name:  "with spaces and normalization",
			input: []string{"Literary Fiction", "#Sci-Fi", "genre/Horror"},
			want:  []string{"Literary-Fiction", "Sci-Fi", "genre/Horror"},
		},
		{
			name:  "with empty strings",
			input: []string{"biography", "", "fiction", "   ", "mystery"},
			want:  []string{"biography", "fiction", "mystery"},
		},
		{
			name:  "duplicates after normalization",
			input: []string{"Literary  Fiction", "Literary Fiction", "#Literary-Fiction"},
			want:  []string{"Literary-Fiction"},
		},
		{
			name:  "empty input",
			input: []string{},
			want:  []string{},
		},
		{
			name:  "all empty",
			input: []string{"", "   ", "#", "---"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTagSet(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		ts := NewTagSet()
		ts.Add("biography")
		ts.Add("fiction")
		ts.Add("mystery")

		got := ts.GetSorted()
		want := []string{"biography", "fiction", "mystery"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("GetSorted() = %v, want %v", got, want)
		}
	})

	t.Run("automatic normalization", func(t *testing.T) {
		ts := NewTagSet()
		ts.Add("Literary  Fiction")
		ts.Add("#Sci-Fi")
		ts.Add("  genre/Horror  ")

		got := ts.GetSorted()
		want := []string{"Literary-Fiction", "Sci-Fi", "genre/Horror"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("GetSorted() = %v, want %v", got, want)
		}
	})

	t.Run("deduplication", func(t *testing.T) {
		ts := NewTagSet()
		ts.Add("biography")
		ts.Add("biography")
		ts.Add("Biography")
		ts.Add("#biography")

		got := ts.GetSorted()
		// Case preserved - "biography" and "Biography" are different
		want := []string{"Biography", "biography"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("GetSorted() = %v, want %v", got, want)
		}
	})

	t.Run("AddIf conditional", func(t *testing.T) {
		ts := NewTagSet()
		ts.AddIf(true, "biography")
		ts.AddIf(false, "fiction")
		ts.AddIf(true, "mystery")

		got := ts.GetSorted()
		want := []string{"biography", "mystery"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("GetSorted() = %v, want %v", got, want)
		}
	})

	t.Run("AddFormat", func(t *testing.T) {
		ts := NewTagSet()
		ts.AddFormat("rating/%d", 4)
		ts.AddFormat("year/%ds", 2020)
		ts.AddFormat("genre/%s", "Biography")

		got := ts.GetSorted()
		want := []string{"genre/Biography", "rating/4", "year/2020s"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("GetSorted() = %v, want %v", got, want)
		}
	})

	t.Run("empty tags filtered", func(t *testing.T) {
		ts := NewTagSet()
		ts.Add("")
		ts.Add("   ")
		ts.Add("#")
		ts.Add("valid")

		got := ts.GetSorted()
		want := []string{"valid"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("GetSorted() = %v, want %v", got, want)
		}
	})
}

func TestMergeTags(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		new      []string
		want     []string
	}{
		{
			name:     "no overlap",
			existing: []string{"biography", "fiction"},
			new:      []string{"mystery", "romance"},
			want:     []string{"biography", "fiction", "mystery", "romance"},
		},
		{
			name:     "with overlap",
			existing: []string{"biography", "fiction"},
			new:      []string{"fiction", "mystery"},
			want:     []string{"biography", "fiction", "mystery"},
		},
		{
			name:     "empty existing",
			existing: []string{},
			new:      []string{"biography", "fiction"},
			want:     []string{"biography", "fiction"},
		},
		{
			name:     "empty new",
			existing: []string{"biography", "fiction"},
			new:      []string{},
			want:     []string{"biography", "fiction"},
		},
		{
			name:     "both empty",
			existing: []string{},
			new:      []string{},
			want:     []string{},
		},
		{
			name:     "with normalization",
			existing: []string{"Literary  Fiction", "#Sci-Fi"},
			new:      []string{"genre/Horror", "Literary-Fiction"},
			want:     []string{"Literary-Fiction", "Sci-Fi", "genre/Horror"},
		},
		{
			name:     "empty strings filtered",
			existing: []string{"biography", "", "fiction"},
			new:      []string{"mystery", "   ", "romance"},
			want:     []string{"biography", "fiction", "mystery", "romance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeTags(tt.existing, tt.new)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeTags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTagsFromAny(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  []string
	}{
		{
			name:  "nil",
			input: nil,
			want:  []string{},
		},
		{
			name:  "string slice",
			input: []string{"biography", "fiction", "mystery"},
			want:  []string{"biography", "fiction", "mystery"},
		},
		{
			name:  "string slice with empty",
			input: []string{"biography", "", "fiction"},
			want:  []string{"biography", "fiction"},
		},
		{
			name:  "interface slice",
			input: []interface{}{"biography", "fiction", "mystery"},
			want:  []string{"biography", "fiction", "mystery"},
		},
		{
			name:  "interface slice with mixed types",
			input: []interface{}{"biography", 123, "fiction", nil, "mystery"},
			want:  []string{"biography", "fiction", "mystery"},
		},
		{
			name:  "interface slice with empty strings",
			input: []interface{}{"biography", "", "fiction"},
			want:  []string{"biography", "fiction"},
		},
		{
			name:  "wrong type",
			input: "not a slice",
			want:  []string{},
		},
		{
			name:  "empty string slice",
			input: []string{},
			want:  []string{},
		},
		{
			name:  "empty interface slice",
			input: []interface{}{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TagsFromAny(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TagsFromAny() = %v, want %v", got, tt.want)
			}
		})
	}
}
