package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lepinkainen/stacks/internal/config"
	"github.com/lepinkainen/stacks/internal/content"
	"github.com/lepinkainen/stacks/internal/fileutil"
	"github.com/lepinkainen/stacks/internal/importer"
	"github.com/lepinkainen/stacks/internal/obsidian"
)

// writeBookNote writes one imported book as an Obsidian note. Existing
// notes with content markers get their generated section refreshed while
// the user's own text is left alone; unmarked existing notes are only
// replaced when overwrite is enabled.
func writeBookNote(ctx context.Context, book importer.Book, directory string) error {
	filePath := fileutil.GetMarkdownFilePath(book.Title, directory)

	fm := buildBookFrontmatter(book)

	var body strings.Builder

	if book.CoverURL != "" {
		result, err := fileutil.DownloadCover(ctx, fileutil.CoverDownloadOptions{
			URL:          book.CoverURL,
			OutputDir:    directory,
			Filename:     fileutil.BuildCoverFilename(book.Title),
			UpdateCovers: config.UpdateCovers,
		})
		if err != nil {
			slog.Warn("Failed to download cover", "title", book.Title, "error", err)
			// Fall back to the remote URL when the download fails
			fm.Set("cover", book.CoverURL)
			body.WriteString(fmt.Sprintf("![](%s)\n\n", book.CoverURL))
		} else if result != nil {
			fm.Set("cover", result.RelativePath)
			body.WriteString(content.BuildCoverImageEmbed(result.Filename))
			body.WriteString("\n\n")
		}
	}

	section := content.BuildBookContent(&content.BookDetails{
		Title:       book.Title,
		Subtitle:    book.Subtitle,
		Authors:     book.Authors,
		Publisher:   book.Publisher,
		PublishDate: book.PublishDate,
		Pages:       book.PageCount,
		Language:    book.Language,
		Rating:      book.Rating,
		ISBN:        book.ISBN,
		CatalogID:   book.CatalogID,
		Description: book.Description,
		Genres:      book.Genres,
	}, []string{"info", "description", "genres"})

	wrapped := content.WrapWithMarkers(section)
	if wrapped != "" {
		body.WriteString(wrapped)
		body.WriteString("\n\n")
	}

	if book.Notes != "" {
		body.WriteString("## Notes\n\n")
		body.WriteString(book.Notes)
		body.WriteString("\n")
	}

	if fileutil.FileExists(filePath) && !config.OverwriteFiles {
		existing, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read existing note: %w", err)
		}
		if content.HasContentMarkers(string(existing)) {
			return refreshBookNote(filePath, existing, fm, section)
		}
		slog.Debug("Skipping existing note without markers", "file", filePath)
		return nil
	}

	markdown, err := obsidian.BuildNoteMarkdown(fm, body.String())
	if err != nil {
		return fmt.Errorf("failed to build markdown: %w", err)
	}

	written, err := fileutil.WriteFileWithOverwrite(filePath, markdown, 0644, true)
	if err != nil {
		return err
	}
	if written {
		slog.Debug("Wrote note", "file", filePath)
	}
	return nil
}

// refreshBookNote updates the generated section and frontmatter of an
// existing note. User-added frontmatter keys and body text outside the
// markers survive the refresh.
func refreshBookNote(filePath string, existing []byte, fm *obsidian.Frontmatter, section string) error {
	note, err := obsidian.ParseMarkdown(existing)
	if err != nil {
		return fmt.Errorf("failed to parse existing note: %w", err)
	}

	for _, key := range fm.Keys() {
		if key == "tags" {
			continue
		}
		if value, ok := fm.Get(key); ok {
			note.Frontmatter.Set(key, value)
		}
	}
	note.Frontmatter.Set("tags", obsidian.MergeTags(
		note.Frontmatter.GetStringArray("tags"),
		fm.GetStringArray("tags")))

	note.Body = content.ReplaceMarkedContent(note.Body, section)

	markdown, err := note.Build()
	if err != nil {
		return fmt.Errorf("failed to build markdown: %w", err)
	}
	if err := os.WriteFile(filePath, markdown, 0644); err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	slog.Debug("Refreshed note", "file", filePath)
	return nil
}

func buildBookFrontmatter(book importer.Book) *obsidian.Frontmatter {
	fm := obsidian.NewFrontmatterWithTitle(fileutil.SanitizeFilename(book.Title))
	fm.Set("type", "book")
	fm.Set("source", string(book.PrimarySource))

	if book.CatalogID != "" {
		fm.Set("catalog_id", book.CatalogID)
	}
	if book.Subtitle != "" {
		fm.Set("subtitle", book.Subtitle)
	}
	if len(book.Authors) > 0 {
		fm.Set("authors", book.Authors)
	}
	if book.ISBN != "" {
		fm.Set("isbn", book.ISBN)
	}
	if book.Publisher != "" {
		fm.Set("publisher", book.Publisher)
	}
	if book.PublishDate != "" {
		fm.Set("publish_date", book.PublishDate)
	}
	if book.PageCount > 0 {
		fm.Set("pages", book.PageCount)
	}
	if book.Language != "" {
		fm.Set("language", book.Language)
	}
	if book.Description != "" {
		fm.Set("description", book.Description)
	}
	if book.Rating > 0 {
		fm.Set("rating", book.Rating)
	}
	if book.DateRead != "" {
		fm.Set("date_read", book.DateRead)
	}
	if book.OriginalTitle != "" {
		fm.Set("original_title", book.OriginalTitle)
	}

	ts := obsidian.NewTagSet()
	ts.Add("books/import")
	ts.AddIf(book.Rating > 0, fmt.Sprintf("rating/%.0f", book.Rating))
	for _, genre := range book.Genres {
		ts.AddFormat("genre/%s", genre)
	}
	for _, tag := range book.Tags {
		ts.Add(tag)
	}
	obsidian.ApplyTagSet(fm, ts)

	return fm
}
