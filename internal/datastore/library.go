package datastore

import (
	"database/sql"
	"fmt"
	"time"
)

// BooksSchema is the table imported books land in.
const BooksSchema = `CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	catalog_id TEXT,
	title TEXT NOT NULL,
	subtitle TEXT,
	authors TEXT,
	isbn TEXT,
	publisher TEXT,
	publish_date TEXT,
	description TEXT,
	page_count INTEGER,
	language TEXT,
	genres TEXT,
	cover_url TEXT,
	rating REAL,
	notes TEXT,
	date_read TEXT,
	tags TEXT,
	title_source TEXT,
	imported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_books_isbn ON books(isbn);
CREATE INDEX IF NOT EXISTS idx_books_catalog_id ON books(catalog_id);
CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
`

// ImportStateSchema holds checkpointed pipeline state, one row per
// import session.
const ImportStateSchema = `CREATE TABLE IF NOT EXISTS import_state (
	session_id TEXT PRIMARY KEY NOT NULL,
	source_file TEXT NOT NULL,
	payload TEXT NOT NULL,
	saved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// LibraryStore is the local library database: the imported books plus
// checkpointed import sessions, in one SQLite file.
type LibraryStore struct {
	store *SQLiteStore
}

// NewLibraryStore opens (or creates) the library database at dbPath.
func NewLibraryStore(dbPath string) (*LibraryStore, error) {
	store := NewSQLiteStore(dbPath)
	if err := store.Connect(); err != nil {
		return nil, err
	}
	for _, schema := range []string{BooksSchema, ImportStateSchema} {
		if err := store.CreateTable(schema); err != nil {
			closeErr := store.Close()
			if closeErr != nil {
				return nil, fmt.Errorf("%w (also failed to close: %v)", err, closeErr)
			}
			return nil, err
		}
	}
	return &LibraryStore{store: store}, nil
}

// Close closes the underlying database connection.
func (l *LibraryStore) Close() error {
	return l.store.Close()
}

// InsertBooks writes a batch of book records to the books table.
func (l *LibraryStore) InsertBooks(records []map[string]any) error {
	return l.store.BatchInsert("stacks", "books", records)
}

// ExistsByISBN reports whether a book with this normalized ISBN is
// already in the library.
func (l *LibraryStore) ExistsByISBN(isbn string) (bool, error) {
	if isbn == "" {
		return false, nil
	}
	return l.exists("SELECT 1 FROM books WHERE isbn = ? LIMIT 1", isbn)
}

// ExistsByCatalogID reports whether a book with this catalog identifier
// is already in the library.
func (l *LibraryStore) ExistsByCatalogID(catalogID string) (bool, error) {
	if catalogID == "" {
		return false, nil
	}
	return l.exists("SELECT 1 FROM books WHERE catalog_id = ? LIMIT 1", catalogID)
}

// ExistsByTitleAuthor reports whether a book with this title and author
// is already in the library. Matching is case-insensitive.
func (l *LibraryStore) ExistsByTitleAuthor(title, author string) (bool, error) {
	if title == "" {
		return false, nil
	}
	return l.exists(
		"SELECT 1 FROM books WHERE lower(title) = lower(?) AND lower(authors) LIKE lower(?) LIMIT 1",
		title, "%"+author+"%")
}

// CountBooks returns the number of books in the library.
func (l *LibraryStore) CountBooks() (int, error) {
	var count int
	err := l.store.db.QueryRow("SELECT COUNT(*) FROM books").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return count, nil
}

func (l *LibraryStore) exists(query string, args ...any) (bool, error) {
	var one int
	err := l.store.db.QueryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query books: %w", err)
	}
	return true, nil
}

// SessionInfo describes one checkpointed import session.
type SessionInfo struct {
	SessionID  string
	SourceFile string
	SavedAt    time.Time
}

// SaveState checkpoints payload for the given session, replacing any
// previous checkpoint.
func (l *LibraryStore) SaveState(sessionID, sourceFile string, payload []byte) error {
	_, err := l.store.db.Exec(
		"INSERT OR REPLACE INTO import_state (session_id, source_file, payload, saved_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		sessionID, sourceFile, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save import state: %w", err)
	}
	return nil
}

// LoadState retrieves the checkpoint for sessionID. Returns found=false
// when no checkpoint exists.
func (l *LibraryStore) LoadState(sessionID string) (payload []byte, savedAt time.Time, found bool, err error) {
	var data string
	err = l.store.db.QueryRow(
		"SELECT payload, saved_at FROM import_state WHERE session_id = ?",
		sessionID).Scan(&data, &savedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("failed to load import state: %w", err)
	}
	return []byte(data), savedAt, true, nil
}

// LatestState retrieves the most recently saved checkpoint.
func (l *LibraryStore) LatestState() (info SessionInfo, payload []byte, found bool, err error) {
	var data string
	err = l.store.db.QueryRow(
		"SELECT session_id, source_file, payload, saved_at FROM import_state ORDER BY saved_at DESC LIMIT 1").
		Scan(&info.SessionID, &info.SourceFile, &data, &info.SavedAt)
	if err == sql.ErrNoRows {
		return SessionInfo{}, nil, false, nil
	}
	if err != nil {
		return SessionInfo{}, nil, false, fmt.Errorf("failed to load latest import state: %w", err)
	}
	return info, []byte(data), true, nil
}

// ListStates returns all checkpointed sessions, newest first.
func (l *LibraryStore) ListStates() ([]SessionInfo, error) {
	rows, err := l.store.db.Query(
		"SELECT session_id, source_file, saved_at FROM import_state ORDER BY saved_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list import states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.SessionID, &info.SourceFile, &info.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import state row: %w", err)
		}
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

// DeleteState removes the checkpoint for sessionID.
func (l *LibraryStore) DeleteState(sessionID string) error {
	_, err := l.store.db.Exec("DELETE FROM import_state WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete import state: %w", err)
	}
	return nil
}
