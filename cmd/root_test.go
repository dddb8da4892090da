package cmd

import (
	"os"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/stacks/internal/cache"
	"github.com/lepinkainen/stacks/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetCmdState(t *testing.T) {
	origOverwrite := config.OverwriteFiles
	origUpdate := config.UpdateCovers

	t.Cleanup(func() {
		config.OverwriteFiles = origOverwrite
		config.UpdateCovers = origUpdate
		viper.Reset()
	})

	viper.Reset()
}

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()

	originalArgs := os.Args
	os.Args = append([]string{"stacks"}, args...)
	t.Cleanup(func() { os.Args = originalArgs })

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("stacks"),
		kong.Description("Import book spreadsheets into an Obsidian library, enriched with Open Library metadata."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			t.Fatalf("unexpected Kong exit %d", code)
		}),
	)

	return cli, ctx
}

func TestUpdateGlobalConfig(t *testing.T) {
	resetCmdState(t)

	cli := &CLI{
		Overwrite:    true,
		UpdateCovers: true,
		Database:     "/tmp/stacks.db",
		CacheDBFile:  "/tmp/cache.db",
		CacheTTL:     "12h",
	}

	updateGlobalConfig(cli)

	assert.True(t, config.OverwriteFiles)
	assert.True(t, config.UpdateCovers)
	assert.Equal(t, "/tmp/stacks.db", viper.GetString("database.file"))
	assert.Equal(t, "/tmp/cache.db", viper.GetString("cache.dbfile"))
	assert.Equal(t, "12h", viper.GetString("cache.ttl"))
}

func TestImportCommandParsing(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "import", "-f", "library.csv", "-o", "books", "--json", "--plain")

	assert.Equal(t, "library.csv", cli.Import.Input)
	assert.Equal(t, "books", cli.Import.Output)
	assert.True(t, cli.Import.JSON)
	assert.True(t, cli.Import.Plain)
	assert.Empty(t, cli.Import.Mapping)
}

func TestImportCommandRequiresInput(t *testing.T) {
	resetCmdState(t)

	cli, ctx := parseCLI(t, "import")
	updateGlobalConfig(cli)
	err := ctx.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file is required")
}

func TestResumeCommandParsing(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "resume", "session-123", "-o", "books")

	assert.Equal(t, "session-123", cli.Resume.Session)
	assert.Equal(t, "books", cli.Resume.Output)
}

func TestResumeSessionDefaultsToLatest(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "resume")

	assert.Empty(t, cli.Resume.Session)
}

func TestCLIDefaultFlags(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "import", "-f", "library.csv")

	assert.False(t, cli.Overwrite, "Overwrite should default to false")
	assert.False(t, cli.UpdateCovers, "UpdateCovers should default to false")
	assert.Equal(t, "./stacks.db", cli.Database, "Database should default to ./stacks.db")
	assert.Equal(t, "./cache.db", cli.CacheDBFile, "CacheDBFile should default to ./cache.db")
	assert.Equal(t, "720h", cli.CacheTTL, "CacheTTL should default to 720h")
	assert.False(t, cli.Import.Plain, "Plain should default to false")
}

func TestCLIFlagsOverrideDefaults(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t,
		"--overwrite",
		"--update-covers",
		"--database", "/custom/stacks.db",
		"--cache-db-file", "/custom/cache.db",
		"--cache-ttl", "24h",
		"import", "-f", "library.csv")

	assert.True(t, cli.Overwrite, "Overwrite flag should be set")
	assert.True(t, cli.UpdateCovers, "UpdateCovers flag should be set")
	assert.Equal(t, "/custom/stacks.db", cli.Database)
	assert.Equal(t, "/custom/cache.db", cli.CacheDBFile)
	assert.Equal(t, "24h", cli.CacheTTL)
}

func TestInitConfigSetsDefaults(t *testing.T) {
	resetCmdState(t)

	// Set defaults directly without calling initConfig to avoid os.Exit
	viper.SetDefault("MarkdownOutputDir", "./markdown/")
	viper.SetDefault("JSONOutputDir", "./json/")
	viper.SetDefault("OverwriteFiles", false)
	viper.SetDefault("database.file", "./stacks.db")
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h")

	assert.Equal(t, "./markdown/", viper.GetString("MarkdownOutputDir"))
	assert.Equal(t, "./json/", viper.GetString("JSONOutputDir"))
	assert.False(t, viper.GetBool("OverwriteFiles"))
	assert.Equal(t, "./stacks.db", viper.GetString("database.file"))
	assert.Equal(t, "./cache.db", viper.GetString("cache.dbfile"))
	assert.Equal(t, "720h", viper.GetString("cache.ttl"))
}

func TestPipelineConfigDefaults(t *testing.T) {
	resetCmdState(t)

	config.InitConfig()
	cfg := config.PipelineConfig()

	assert.Equal(t, 3, cfg.MinWorkers)
	assert.Equal(t, 20, cfg.MaxWorkers)
	assert.Equal(t, 5, cfg.InitialWorkers)
	assert.InDelta(t, 1.0, cfg.MinRate, 0.001)
	assert.InDelta(t, 20.0, cfg.MaxRate, 0.001)
	assert.Equal(t, 3, cfg.MaxRetryAttempts)
	assert.Equal(t, 10, cfg.CheckpointEvery)
}

func TestInitLogging(t *testing.T) {
	require.NotPanics(t, func() {
		initLogging()
	})
}

func TestCommandStructure(t *testing.T) {
	resetCmdState(t)

	cli := &CLI{}

	assert.NotNil(t, cli.Import)
	assert.NotNil(t, cli.Resume)
	assert.NotNil(t, cli.Sessions)
	assert.IsType(t, cache.InvalidateCacheCmd{}, cli.Cache.Invalidate)
}
