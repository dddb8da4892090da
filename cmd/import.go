package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/stacks/internal/cmdutil"
	"github.com/lepinkainen/stacks/internal/fileutil"
	"github.com/lepinkainen/stacks/internal/importer"
	"github.com/lepinkainen/stacks/internal/parser"
	"github.com/lepinkainen/stacks/internal/tui"
)

type runOutcome struct {
	result *importer.Result
	err    error
}

// runImport drives a coordinator to completion. SIGINT cancels the run,
// SIGTERM checkpoints first via the lifecycle signal and then cancels,
// SIGUSR1 checkpoints and sheds concurrency without stopping.
func runImport(coord *importer.Coordinator, sourceFile string, plain bool) (*importer.Result, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(sigs)
	go func() {
		for sig := range sigs {
			switch sig {
			case syscall.SIGTERM:
				coord.Signal(importer.SignalWillTerminate)
				cancel()
			case syscall.SIGUSR1:
				coord.Signal(importer.SignalMemoryWarning)
			default:
				cancel()
			}
		}
	}()

	done := make(chan runOutcome, 1)
	go func() {
		result, err := coord.Run(ctx)
		done <- runOutcome{result: result, err: err}
	}()

	if plain {
		consumeEvents(coord.Events())
	} else {
		if _, err := tui.RunProgress(sourceFile, coord.Events()); err != nil {
			slog.Warn("Progress display failed, falling back to log output", "error", err)
			consumeEvents(coord.Events())
		}
	}

	out := <-done
	return out.result, out.err
}

// consumeEvents drains the progress stream, logging phase changes and
// stalls. The done event is the coordinator's cue that it may finish, so
// the loop always runs to channel close.
func consumeEvents(events <-chan importer.Event) {
	for event := range events {
		switch event.Kind {
		case importer.EventPhaseChange:
			slog.Info("Phase change",
				"phase", event.Progress.Phase.String(),
				"processed", event.Progress.ProcessedRows,
				"total", event.Progress.TotalRows)
		case importer.EventStalled:
			slog.Warn("Import stalled", "reason", event.Message)
		case importer.EventDone:
			return
		default:
			slog.Debug("Progress",
				"processed", event.Progress.ProcessedRows,
				"total", event.Progress.TotalRows,
				"retries", event.Progress.RetryAttempts)
		}
	}
}

type outputOptions struct {
	Dir        string
	JSON       bool
	JSONOutput string
}

// writeOutputs logs the run summary and writes notes and optional JSON
// for the books committed during the run.
func writeOutputs(result *importer.Result, opts outputOptions) error {
	logSummary(result)

	if len(result.Books) == 0 {
		return nil
	}

	cfg := &cmdutil.BaseCommandConfig{
		OutputDir:  opts.Dir,
		ConfigKey:  "books",
		JSONOutput: opts.JSONOutput,
		WriteJSON:  opts.JSON,
	}
	if err := cmdutil.SetupOutputDir(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	for _, book := range result.Books {
		if err := writeBookNote(ctx, book, cfg.OutputDir); err != nil {
			slog.Error("Failed to write note", "title", book.Title, "error", err)
		}
	}

	if cfg.WriteJSON {
		if _, err := fileutil.WriteJSONFile(result.Books, cfg.JSONOutput, true); err != nil {
			return fmt.Errorf("failed to write JSON output: %w", err)
		}
		slog.Info("Wrote JSON output", "file", cfg.JSONOutput, "books", len(result.Books))
	}

	return nil
}

func logSummary(result *importer.Result) {
	slog.Info("Import finished",
		"session", result.SessionID,
		"total", result.TotalRows,
		"imported", result.Successful,
		"failed", result.Failed,
		"duplicates", result.Duplicates.Total(),
		"retry_attempts", result.Retries.TotalAttempts,
		"elapsed", result.Elapsed.Round(time.Millisecond),
		"cancelled", result.Cancelled)

	for _, failure := range result.RowFailures {
		slog.Warn("Row failed",
			"row", failure.RowIndex,
			"title", failure.Title,
			"reason", failure.Message,
			"suggestion", failure.Suggestion)
	}
}

// loadRows parses the source file with the configured field mapping.
func loadRows(input, mappingPath string) ([]parser.RowRecord, parser.FieldMapping, error) {
	mapping := parser.GoodreadsMapping()
	if mappingPath == "" {
		mappingPath = viper.GetString("import.mapping")
	}
	if mappingPath != "" {
		loaded, err := parser.LoadMapping(mappingPath)
		if err != nil {
			return nil, mapping, fmt.Errorf("failed to load field mapping: %w", err)
		}
		mapping = loaded
	}

	rows, err := parser.ParseFile(input, mapping)
	if err != nil {
		return nil, mapping, err
	}
	if len(rows) == 0 {
		return nil, mapping, fmt.Errorf("no importable rows found in %s", input)
	}
	return rows, mapping, nil
}
