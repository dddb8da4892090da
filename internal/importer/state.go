package importer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StateStore is the durable home for checkpoints, keyed by session id.
// The library database implements it.
type StateStore interface {
	SaveState(sessionID, sourceFile string, payload []byte) error
	LoadState(sessionID string) (payload []byte, savedAt time.Time, found bool, err error)
	DeleteState(sessionID string) error
}

// PersistedState is the checkpoint blob: everything needed to
// reconstruct a coordinator mid-run.
type PersistedState struct {
	Session       Session   `json:"session"`
	Progress      Progress  `json:"progress"`
	CompletedRows []int     `json:"completed_rows"`
	SavedAt       time.Time `json:"saved_at"`
}

// StateManager serializes checkpoint writes and applies the staleness
// policy on load.
type StateManager struct {
	mu     sync.Mutex
	store  StateStore
	maxAge time.Duration
	now    func() time.Time
}

// NewStateManager creates a manager over store. Checkpoints older than
// maxAge are treated as non-resumable.
func NewStateManager(store StateStore, maxAge time.Duration) *StateManager {
	return &StateManager{
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Checkpoint persists state, stamping it with the current time. Writes
// for the same manager never race each other.
func (s *StateManager) Checkpoint(state PersistedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.SavedAt = s.now()
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize import state: %w", err)
	}
	if err := s.store.SaveState(state.Session.ID, state.Session.SourceFile, payload); err != nil {
		return err
	}
	slog.Debug("Checkpoint saved",
		"session", state.Session.ID,
		"processed", state.Progress.ProcessedRows,
		"phase", state.Progress.Phase.String())
	return nil
}

// Load retrieves the checkpoint for sessionID. Stale checkpoints and
// checkpoints for already-terminal runs are deleted and reported as not
// found.
func (s *StateManager) Load(sessionID string) (*PersistedState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, savedAt, found, err := s.store.LoadState(sessionID)
	if err != nil || !found {
		return nil, false, err
	}

	var state PersistedState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, false, fmt.Errorf("failed to decode import state: %w", err)
	}
	if state.SavedAt.IsZero() {
		state.SavedAt = savedAt
	}

	if age := s.now().Sub(state.SavedAt); age > s.maxAge {
		slog.Info("Discarding stale checkpoint", "session", sessionID, "age", age)
		_ = s.store.DeleteState(sessionID)
		return nil, false, nil
	}
	if state.Progress.Phase.Terminal() {
		_ = s.store.DeleteState(sessionID)
		return nil, false, nil
	}

	return &state, true, nil
}

// Delete removes the checkpoint for sessionID, typically on successful
// completion.
func (s *StateManager) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteState(sessionID)
}
