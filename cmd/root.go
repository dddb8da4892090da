package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/stacks/internal/cache"
	"github.com/lepinkainen/stacks/internal/config"
	"github.com/lepinkainen/stacks/internal/importer"
)

// CLI represents the complete command structure for the stacks application
type CLI struct {
	// Global flags
	Overwrite    bool `help:"Overwrite existing markdown files when processing"`
	UpdateCovers bool `help:"Re-download cover images even if they already exist"`

	// Database flags
	Database string `help:"Path to the library SQLite database file" default:"./stacks.db"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file" default:"./cache.db"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)" default:"720h"`

	Import   ImportCmd   `cmd:"" help:"Import books from a library export spreadsheet"`
	Resume   ResumeCmd   `cmd:"" help:"Resume an interrupted import from its checkpoint"`
	Sessions SessionsCmd `cmd:"" help:"List or purge stored import sessions"`
	Cache    CacheCmd    `cmd:"" help:"Manage the lookup cache"`
}

// ImportCmd imports a book spreadsheet through the lookup pipeline.
type ImportCmd struct {
	Input      string `short:"f" help:"Path to the library export file (CSV or XLSX)"`
	Mapping    string `help:"Path to a YAML column mapping file (defaults to the Goodreads export layout)"`
	Output     string `short:"o" help:"Subdirectory under markdown output directory for book notes" default:"books"`
	JSON       bool   `help:"Write imported books to JSON format"`
	JSONOutput string `help:"Path to JSON output file (defaults to json/books.json)"`
	Plain      bool   `help:"Disable the live progress display"`
}

// CacheCmd groups cache maintenance subcommands.
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Invalidate cached data for a source"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging()
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("stacks"),
		kong.Description("Import book spreadsheets into an Obsidian library, enriched with Open Library metadata."),
		kong.UsageOnError(),
	)

	// Update global config based on parsed flags
	updateGlobalConfig(&cli)

	err := ctx.Run()
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetDefault("MarkdownOutputDir", "./markdown/")
	viper.SetDefault("JSONOutputDir", "./json/")
	viper.SetDefault("OverwriteFiles", false)

	// Library database defaults
	viper.SetDefault("database.file", "./stacks.db")

	// Cache defaults
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h") // 30 days

	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("Config file not found, writing default config file...")
			if err := viper.SafeWriteConfig(); err != nil {
				slog.Error("Error writing config file", "error", err)
			}
			os.Exit(0)
		} else {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	// Initialize global config
	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	config.SetOverwriteFiles(cli.Overwrite)
	config.SetUpdateCovers(cli.UpdateCovers)

	viper.Set("database.file", cli.Database)

	viper.Set("cache.dbfile", cli.CacheDBFile)
	viper.Set("cache.ttl", cli.CacheTTL)
}

func (c *ImportCmd) Run() error {
	// Read from config if value not provided via flag
	input := c.Input
	if input == "" {
		input = viper.GetString("import.file")
	}
	if input == "" {
		return fmt.Errorf("input file is required (provide via --input flag or import.file in config)")
	}

	rows, mapping, err := loadRows(input, c.Mapping)
	if err != nil {
		return err
	}

	store, err := openLibraryDB()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close library database", "error", err)
		}
	}()

	session := importer.NewSession(input, rows, mapping)
	slog.Info("Starting import",
		"session", session.ID,
		"source", input,
		"rows", len(rows))

	coord := buildPipeline(store, session, nil)
	result, err := runImport(coord, input, c.Plain)
	if err != nil {
		return err
	}

	return writeOutputs(result, outputOptions{
		Dir:        c.Output,
		JSON:       c.JSON,
		JSONOutput: c.JSONOutput,
	})
}

func initLogging() {
	// Create a human-readable handler for logging
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: slog.LevelInfo,
	})

	slog.SetDefault(slog.New(handler))
}
