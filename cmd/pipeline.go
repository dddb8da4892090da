package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/lepinkainen/stacks/internal/cache"
	"github.com/lepinkainen/stacks/internal/catalog"
	"github.com/lepinkainen/stacks/internal/config"
	"github.com/lepinkainen/stacks/internal/datastore"
	"github.com/lepinkainen/stacks/internal/importer"
	"github.com/lepinkainen/stacks/internal/ratelimit"
	"github.com/lepinkainen/stacks/internal/resilience"
)

// openLibraryDB opens the library database configured via --database.
func openLibraryDB() (*datastore.LibraryStore, error) {
	dbPath := viper.GetString("database.file")
	store, err := datastore.NewLibraryStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open library database: %w", err)
	}
	return store, nil
}

// newCatalogClient builds the Open Library client, wrapped in the SQLite
// lookup cache when it can be opened. A cache failure degrades to
// uncached lookups instead of failing the import.
func newCatalogClient() catalog.Client {
	client := catalog.NewOpenLibraryClient()
	lookupCache, err := cache.NewLookupCache()
	if err != nil {
		slog.Warn("Lookup cache unavailable, proceeding without it", "error", err)
		return client
	}
	return catalog.NewCachedClient(client, lookupCache)
}

// buildPipeline assembles the coordinator and its collaborators from the
// pipeline config. When state is non-nil the coordinator resumes from it
// and the session argument is ignored.
func buildPipeline(store *datastore.LibraryStore, session importer.Session, state *importer.PersistedState) *importer.Coordinator {
	cfg := config.PipelineConfig()
	client := newCatalogClient()

	limiter := ratelimit.New(client.Name(), cfg.InitialRate, cfg.MinRate, cfg.MaxRate)
	monitor := ratelimit.NewMonitor(ratelimit.MonitorConfig{
		MinConcurrency:     cfg.MinWorkers,
		MaxConcurrency:     cfg.MaxWorkers,
		InitialConcurrency: cfg.InitialWorkers,
		MinSamples:         cfg.MonitorMinSamples,
		ThrottlePenalty:    cfg.ThrottlePenalty,
	})
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Name:              client.Name(),
		FailureThreshold:  cfg.FailureThreshold,
		RecoveryTimeout:   cfg.RecoveryTimeout,
		HalfOpenSuccesses: cfg.HalfOpenSuccesses,
	})
	backoff := resilience.NewBackoff(cfg.BackoffBase, cfg.BackoffMax, cfg.BackoffMultiplier)
	retries := resilience.NewRetryQueue(backoff, cfg.MaxRetryAttempts, breaker)

	engine := importer.NewEngine(importer.EngineConfig{
		Client:  client,
		Limiter: limiter,
		Monitor: monitor,
		Breaker: breaker,
		Retries: retries,
		Timeout: cfg.LookupTimeout,
	})

	coordCfg := importer.CoordinatorConfig{
		Session: session,
		Engine:  engine,
		Merger: &importer.Merger{
			EnhanceGenres: cfg.EnhanceGenres,
			ValidateRows:  cfg.ValidateRows,
		},
		States:          importer.NewStateManager(store, cfg.StateMaxAge),
		Store:           store,
		Monitor:         monitor,
		Retries:         retries,
		CheckpointEvery: cfg.CheckpointEvery,
	}

	if state != nil {
		return importer.ResumeCoordinator(coordCfg, state)
	}
	return importer.NewCoordinator(coordCfg)
}
