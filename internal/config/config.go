package config

import (
	"time"

	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// OverwriteFiles controls whether existing markdown files should be overwritten
	OverwriteFiles bool
	// UpdateCovers forces re-downloading cover images even if they already exist
	UpdateCovers bool
)

// Pipeline holds the tuning knobs for the import pipeline. All values have
// config defaults and can be overridden in config.yaml under "pipeline".
type Pipeline struct {
	MinWorkers        int
	MaxWorkers        int
	InitialWorkers    int
	MinRate           float64
	MaxRate           float64
	InitialRate       float64
	MaxRetryAttempts  int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	BackoffMultiplier float64
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	HalfOpenSuccesses int
	ThrottlePenalty   int
	CheckpointEvery   int
	LookupTimeout     time.Duration
	StateMaxAge       time.Duration
	MonitorMinSamples int
	EnhanceGenres     bool
	ValidateRows      bool
}

// InitConfig initializes the global configuration
func InitConfig() {
	// Set default values
	viper.SetDefault("MarkdownOutputDir", "./markdown/")
	viper.SetDefault("OverwriteFiles", false)

	// Pipeline defaults
	viper.SetDefault("pipeline.min_workers", 3)
	viper.SetDefault("pipeline.max_workers", 20)
	viper.SetDefault("pipeline.initial_workers", 5)
	viper.SetDefault("pipeline.min_rate", 1.0)
	viper.SetDefault("pipeline.max_rate", 20.0)
	viper.SetDefault("pipeline.initial_rate", 5.0)
	viper.SetDefault("pipeline.max_retry_attempts", 3)
	viper.SetDefault("pipeline.backoff_base", "1s")
	viper.SetDefault("pipeline.backoff_max", "2m")
	viper.SetDefault("pipeline.backoff_multiplier", 2.0)
	viper.SetDefault("pipeline.failure_threshold", 5)
	viper.SetDefault("pipeline.recovery_timeout", "30s")
	viper.SetDefault("pipeline.half_open_successes", 2)
	viper.SetDefault("pipeline.throttle_penalty_steps", 1)
	viper.SetDefault("pipeline.checkpoint_every", 10)
	viper.SetDefault("pipeline.lookup_timeout", "10s")
	viper.SetDefault("pipeline.state_max_age", "24h")
	viper.SetDefault("pipeline.monitor_min_samples", 10)
	viper.SetDefault("pipeline.enhance_genres", true)
	viper.SetDefault("pipeline.validate_rows", false)

	// Get values from viper
	OverwriteFiles = viper.GetBool("OverwriteFiles")
	UpdateCovers = viper.GetBool("UpdateCovers")
}

// PipelineConfig reads the pipeline tuning values from viper.
func PipelineConfig() Pipeline {
	return Pipeline{
		MinWorkers:        viper.GetInt("pipeline.min_workers"),
		MaxWorkers:        viper.GetInt("pipeline.max_workers"),
		InitialWorkers:    viper.GetInt("pipeline.initial_workers"),
		MinRate:           viper.GetFloat64("pipeline.min_rate"),
		MaxRate:           viper.GetFloat64("pipeline.max_rate"),
		InitialRate:       viper.GetFloat64("pipeline.initial_rate"),
		MaxRetryAttempts:  viper.GetInt("pipeline.max_retry_attempts"),
		BackoffBase:       viper.GetDuration("pipeline.backoff_base"),
		BackoffMax:        viper.GetDuration("pipeline.backoff_max"),
		BackoffMultiplier: viper.GetFloat64("pipeline.backoff_multiplier"),
		FailureThreshold:  viper.GetInt("pipeline.failure_threshold"),
		RecoveryTimeout:   viper.GetDuration("pipeline.recovery_timeout"),
		HalfOpenSuccesses: viper.GetInt("pipeline.half_open_successes"),
		ThrottlePenalty:   viper.GetInt("pipeline.throttle_penalty_steps"),
		CheckpointEvery:   viper.GetInt("pipeline.checkpoint_every"),
		LookupTimeout:     viper.GetDuration("pipeline.lookup_timeout"),
		StateMaxAge:       viper.GetDuration("pipeline.state_max_age"),
		MonitorMinSamples: viper.GetInt("pipeline.monitor_min_samples"),
		EnhanceGenres:     viper.GetBool("pipeline.enhance_genres"),
		ValidateRows:      viper.GetBool("pipeline.validate_rows"),
	}
}

// SetOverwriteFiles sets the OverwriteFiles flag
func SetOverwriteFiles(overwrite bool) {
	OverwriteFiles = overwrite
}

// SetUpdateCovers sets the UpdateCovers flag
func SetUpdateCovers(update bool) {
	UpdateCovers = update
}
