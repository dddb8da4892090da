package content

import (
	"strings"
)

const (
	// BookDataStart is the start marker for generated book content
	BookDataStart = "<!-- BOOK_DATA_START -->"
	// BookDataEnd is the end marker for generated book content
	BookDataEnd = "<!-- BOOK_DATA_END -->"
)

// WrapWithMarkers wraps generated content with book markers so later
// imports can replace it without touching the user's own notes.
func WrapWithMarkers(content string) string {
	if content == "" {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(BookDataStart)
	builder.WriteString("\n")
	builder.WriteString(strings.TrimSpace(content))
	builder.WriteString("\n")
	builder.WriteString(BookDataEnd)
	return builder.String()
}

// HasContentMarkers checks if a note contains book content markers
func HasContentMarkers(noteContent string) bool {
	return strings.Contains(noteContent, BookDataStart) &&
		strings.Contains(noteContent, BookDataEnd)
}

// GetMarkedContent extracts content between book markers
func GetMarkedContent(noteContent string) (string, bool) {
	startIndex := strings.Index(noteContent, BookDataStart)
	endIndex := strings.Index(noteContent, BookDataEnd)

	if startIndex == -1 || endIndex == -1 || endIndex <= startIndex {
		return "", false
	}

	start := startIndex + len(BookDataStart)
	return strings.TrimSpace(noteContent[start:endIndex]), true
}

// ReplaceMarkedContent replaces content between book markers with new
// content. If markers don't exist, returns the original body unchanged.
func ReplaceMarkedContent(body string, newContent string) string {
	if !HasContentMarkers(body) {
		return body
	}
	startIdx := strings.Index(body, BookDataStart)
	endIdx := strings.Index(body, BookDataEnd)
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return body
	}

	before := strings.TrimSpace(body[:startIdx])
	after := strings.TrimSpace(body[endIdx+len(BookDataEnd):])

	var builder strings.Builder
	if before != "" {
		builder.WriteString(before)
		builder.WriteString("\n\n")
	}
	builder.WriteString(BookDataStart)
	builder.WriteString("\n")
	builder.WriteString(strings.TrimSpace(newContent))
	builder.WriteString("\n")
	builder.WriteString(BookDataEnd)
	if after != "" {
		builder.WriteString("\n")
		builder.WriteString(after)
	}
	return builder.String()
}
