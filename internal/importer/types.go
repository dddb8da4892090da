// Package importer contains the import pipeline: the two-phase lookup
// queue, the concurrent batch lookup engine, the metadata merge policy
// and the checkpointing coordinator that ties them together.
package importer

import (
	"time"

	"github.com/google/uuid"

	"github.com/lepinkainen/stacks/internal/parser"
	"github.com/lepinkainen/stacks/internal/resilience"
)

// Phase is the pipeline's position in the two-phase lookup schedule.
type Phase int

const (
	// PhaseIdentifier resolves every row that carries an ISBN.
	PhaseIdentifier Phase = iota
	// PhaseFallback resolves remaining rows by title/author search.
	PhaseFallback
	PhaseCompleted
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdentifier:
		return "identifier"
	case PhaseFallback:
		return "fallback"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends the run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled
}

// Session describes one import run. It is created once at import start
// and read-only afterward.
type Session struct {
	ID         string              `json:"id"`
	SourceFile string              `json:"source_file"`
	Rows       []parser.RowRecord  `json:"rows"`
	Mapping    parser.FieldMapping `json:"mapping"`
	StartedAt  time.Time           `json:"started_at"`
}

// NewSession creates a session for rows parsed from sourceFile.
func NewSession(sourceFile string, rows []parser.RowRecord, mapping parser.FieldMapping) Session {
	return Session{
		ID:         uuid.NewString(),
		SourceFile: sourceFile,
		Rows:       rows,
		Mapping:    mapping,
		StartedAt:  time.Now(),
	}
}

// Progress is the coordinator's running tally, emitted to observers and
// checkpointed for resume.
type Progress struct {
	SessionID     string    `json:"session_id"`
	TotalRows     int       `json:"total_rows"`
	ProcessedRows int       `json:"processed_rows"`
	SuccessCount  int       `json:"success_count"`
	FailureCount  int       `json:"failure_count"`
	Duplicates    int       `json:"duplicates"`
	Phase         Phase     `json:"phase"`
	RetryAttempts int       `json:"retry_attempts"`
	LastUpdated   time.Time `json:"last_updated"`
}

// RowFailure describes one row the pipeline could not import.
type RowFailure struct {
	RowIndex   int    `json:"row_index"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// DuplicateCounts breaks down skipped duplicates by how they were
// detected.
type DuplicateCounts struct {
	ByISBN        int `json:"by_isbn"`
	ByCatalogID   int `json:"by_catalog_id"`
	ByTitleAuthor int `json:"by_title_author"`
}

// Total returns the combined duplicate count.
func (d DuplicateCounts) Total() int {
	return d.ByISBN + d.ByCatalogID + d.ByTitleAuthor
}

// Result is the terminal summary of one import run.
type Result struct {
	SessionID   string                `json:"session_id"`
	TotalRows   int                   `json:"total_rows"`
	Successful  int                   `json:"successful"`
	Failed      int                   `json:"failed"`
	Duplicates  DuplicateCounts       `json:"duplicates"`
	RowFailures []RowFailure          `json:"row_failures,omitempty"`
	Retries     resilience.RetryStats `json:"retries"`
	Elapsed     time.Duration         `json:"elapsed"`
	Cancelled   bool                  `json:"cancelled,omitempty"`
	// Books holds the records written during this run, in commit order,
	// for downstream output like notes or JSON export.
	Books []Book `json:"-"`
}

// FieldSource tags where a merged field's value came from.
type FieldSource string

const (
	SourceAPI FieldSource = "api"
	SourceRow FieldSource = "csv"
)

// Book is the final merged record for one row: catalog bibliographic
// data, the row's personal fields, and per-field provenance.
type Book struct {
	CatalogID   string   `json:"catalog_id,omitempty"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Authors     []string `json:"authors"`
	ISBN        string   `json:"isbn,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	PublishDate string   `json:"publish_date,omitempty"`
	Description string   `json:"description,omitempty"`
	PageCount   int      `json:"page_count,omitempty"`
	Language    string   `json:"language,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`

	// Personal fields, always sourced from the row.
	Rating   float64  `json:"rating,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	DateRead string   `json:"date_read,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	// Provenance for audit and discrepancy tracking.
	RowIndex      int                    `json:"row_index"`
	PrimarySource FieldSource            `json:"primary_source"`
	FieldSources  map[string]FieldSource `json:"field_sources,omitempty"`
	// OriginalTitle holds the row's title when the catalog returned a
	// different one.
	OriginalTitle string `json:"original_title,omitempty"`
}

// EventKind distinguishes progress stream events.
type EventKind int

const (
	// EventProgress carries an updated Progress snapshot.
	EventProgress EventKind = iota
	// EventPhaseChange marks a phase transition.
	EventPhaseChange
	// EventStalled signals that the circuit is open and no lookups are
	// being issued, so observers can tell a stall from a hang.
	EventStalled
	// EventDone is the final event and carries the Result.
	EventDone
)

// Event is one entry in the coordinator's progress stream.
type Event struct {
	Kind     EventKind
	Progress Progress
	Message  string
	Result   *Result
}
