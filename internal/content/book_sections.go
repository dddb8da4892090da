package content

import (
	"fmt"
	"strings"
)

// BookDetails contains the information needed to generate book content sections
type BookDetails struct {
	Title       string
	Subtitle    string
	Authors     []string
	Publisher   string
	PublishDate string
	Pages       int
	Language    string
	Rating      float64
	ISBN        string
	CatalogID   string
	Description string
	Genres      []string
}

// BuildBookContent generates note body sections for a book.
// sections can include: "info", "description", "genres"
func BuildBookContent(details *BookDetails, sections []string) string {
	if details == nil {
		return ""
	}

	sectionMap := make(map[string]bool)
	for _, s := range sections {
		sectionMap[s] = true
	}

	var builder strings.Builder
	first := true

	if sectionMap["info"] {
		builder.WriteString(buildInfoSection(details))
		first = false
	}

	if sectionMap["description"] && details.Description != "" {
		if !first {
			builder.WriteString("\n")
		}
		builder.WriteString(buildDescriptionSection(details))
		first = false
	}

	if sectionMap["genres"] && len(details.Genres) > 0 {
		if !first {
			builder.WriteString("\n")
		}
		builder.WriteString(buildGenresSection(details))
	}

	return builder.String()
}

// buildInfoSection creates the book info table
func buildInfoSection(details *BookDetails) string {
	var builder strings.Builder
	builder.WriteString("## Book Info\n\n")
	builder.WriteString("| | |\n")
	builder.WriteString("|---|---|\n")

	titleLine := details.Title
	if details.Subtitle != "" {
		titleLine = fmt.Sprintf("%s: %s", details.Title, details.Subtitle)
	}
	if details.PublishDate != "" {
		titleLine = fmt.Sprintf("%s (%s)", titleLine, details.PublishDate)
	}
	builder.WriteString(fmt.Sprintf("| **Title** | %s |\n", titleLine))

	if len(details.Authors) > 0 {
		builder.WriteString(fmt.Sprintf("| **Author** | %s |\n", strings.Join(details.Authors, ", ")))
	}

	if details.Publisher != "" {
		builder.WriteString(fmt.Sprintf("| **Publisher** | %s |\n", details.Publisher))
	}

	if details.Pages > 0 {
		builder.WriteString(fmt.Sprintf("| **Pages** | %d |\n", details.Pages))
	}

	if details.Language != "" {
		builder.WriteString(fmt.Sprintf("| **Language** | %s |\n", details.Language))
	}

	if details.Rating > 0 {
		stars := buildStarRating5(details.Rating)
		builder.WriteString(fmt.Sprintf("| **My Rating** | %s (%.1f/5) |\n", stars, details.Rating))
	}

	if details.ISBN != "" {
		builder.WriteString(fmt.Sprintf("| **ISBN** | %s |\n", details.ISBN))
	}

	if details.CatalogID != "" {
		builder.WriteString(fmt.Sprintf("| **Open Library** | [openlibrary.org%s](https://openlibrary.org%s) |\n",
			details.CatalogID, details.CatalogID))
	}

	return builder.String()
}

// buildDescriptionSection creates the description section
func buildDescriptionSection(details *BookDetails) string {
	var builder strings.Builder
	builder.WriteString("## Description\n\n")
	builder.WriteString(details.Description)
	builder.WriteString("\n")
	return builder.String()
}

// buildGenresSection creates the genres section
func buildGenresSection(details *BookDetails) string {
	var builder strings.Builder
	builder.WriteString("## Genres\n\n")
	builder.WriteString(strings.Join(details.Genres, ", "))
	builder.WriteString("\n")
	return builder.String()
}

// buildStarRating5 converts a 1-5 rating to star emojis
func buildStarRating5(rating float64) string {
	fullStars := int(rating)
	hasHalf := (rating - float64(fullStars)) >= 0.5

	var builder strings.Builder
	for i := 0; i < fullStars; i++ {
		builder.WriteString("⭐")
	}
	if hasHalf {
		builder.WriteString("½")
	}

	return builder.String()
}
