package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lepinkainen/stacks/internal/config"
	"github.com/lepinkainen/stacks/internal/importer"
)

// SessionsCmd lists resumable import checkpoints, or purges them.
type SessionsCmd struct {
	Purge bool `help:"Delete all stored checkpoints instead of listing them"`
}

func (s *SessionsCmd) Run() error {
	store, err := openLibraryDB()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close library database", "error", err)
		}
	}()

	states, err := store.ListStates()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if s.Purge {
		for _, info := range states {
			if err := store.DeleteState(info.SessionID); err != nil {
				return fmt.Errorf("failed to delete session %s: %w", info.SessionID, err)
			}
		}
		slog.Info("Purged checkpoints", "count", len(states))
		return nil
	}

	if len(states) == 0 {
		fmt.Println("No stored import sessions.")
		return nil
	}
	for _, info := range states {
		fmt.Printf("%s  %s  (saved %s)\n",
			info.SessionID, info.SourceFile, info.SavedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// ResumeCmd continues an interrupted import from its last checkpoint.
type ResumeCmd struct {
	Session    string `arg:"" optional:"" help:"Session ID to resume (defaults to the most recent checkpoint)"`
	Output     string `short:"o" help:"Subdirectory under markdown output directory for book notes" default:"books"`
	JSON       bool   `help:"Write imported books to JSON format"`
	JSONOutput string `help:"Path to JSON output file (defaults to json/books.json)"`
	Plain      bool   `help:"Disable the live progress display"`
}

func (r *ResumeCmd) Run() error {
	store, err := openLibraryDB()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close library database", "error", err)
		}
	}()

	sessionID := r.Session
	if sessionID == "" {
		info, _, found, err := store.LatestState()
		if err != nil {
			return fmt.Errorf("failed to look up latest session: %w", err)
		}
		if !found {
			return fmt.Errorf("no stored import sessions to resume")
		}
		sessionID = info.SessionID
	}

	states := importer.NewStateManager(store, config.PipelineConfig().StateMaxAge)
	state, ok, err := states.Load(sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s has no resumable checkpoint (finished, stale or unknown)", sessionID)
	}

	coord := buildPipeline(store, importer.Session{}, state)
	result, err := runImport(coord, state.Session.SourceFile, r.Plain)
	if err != nil {
		return err
	}
	return writeOutputs(result, outputOptions{
		Dir:        r.Output,
		JSON:       r.JSON,
		JSONOutput: r.JSONOutput,
	})
}
