package obsidian

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	hyphenRun     = regexp.MustCompile(`-+`)
)

// NormalizeTag normalizes a tag to Obsidian's conventions: case is
// preserved, a leading # is stripped, whitespace runs become a single
// hyphen, & becomes "and", and / survives for tag hierarchies. An empty
// result means the input had nothing usable.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}

	tag = strings.ReplaceAll(tag, "&", "and")
	tag = strings.ReplaceAll(tag, "#", "")
	tag = whitespaceRun.ReplaceAllString(tag, "-")
	tag = hyphenRun.ReplaceAllString(tag, "-")
	return strings.Trim(tag, "-")
}

// NormalizeTags normalizes a slice of tags and returns the survivors
// sorted and deduplicated.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))

	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized != "" && !seen[normalized] {
			seen[normalized] = true
			result = append(result, normalized)
		}
	}

	sort.Strings(result)
	return result
}

// MergeTags combines two tag slices into one normalized, sorted,
// deduplicated result.
func MergeTags(existing, new []string) []string {
	merged := make([]string, 0, len(existing)+len(new))
	merged = append(merged, existing...)
	merged = append(merged, new...)
	return NormalizeTags(merged)
}

// TagSet collects tags with automatic normalization and deduplication.
type TagSet struct {
	tags map[string]bool
}

// NewTagSet creates an empty TagSet.
func NewTagSet() *TagSet {
	return &TagSet{
		tags: make(map[string]bool),
	}
}

// Add adds a tag after normalization. Tags that normalize to the empty
// string are dropped.
func (ts *TagSet) Add(tag string) {
	normalized := NormalizeTag(tag)
	if normalized != "" {
		ts.tags[normalized] = true
	}
}

// AddIf adds the tag only when the condition holds.
func (ts *TagSet) AddIf(condition bool, tag string) {
	if condition {
		ts.Add(tag)
	}
}

// AddFormat adds a tag built from a format string.
func (ts *TagSet) AddFormat(format string, args ...any) {
	ts.Add(fmt.Sprintf(format, args...))
}

// GetSorted returns the collected tags as a sorted slice.
func (ts *TagSet) GetSorted() []string {
	result := make([]string, 0, len(ts.tags))
	for tag := range ts.tags {
		result = append(result, tag)
	}
	sort.Strings(result)
	return result
}

// TagsFromAny extracts a string slice from a polymorphic YAML value.
// Unmarshaling can produce []any or []string; both are handled, and
// empty strings are dropped.
func TagsFromAny(val any) []string {
	switch tags := val.(type) {
	case []string:
		result := make([]string, 0, len(tags))
		for _, s := range tags {
			if s != "" {
				result = append(result, s)
			}
		}
		return result
	case []any:
		result := make([]string, 0, len(tags))
		for _, item := range tags {
			if s, ok := item.(string); ok && s != "" {
				result = append(result, s)
			}
		}
		return result
	default:
		return []string{}
	}
}
