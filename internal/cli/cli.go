// Package cli implements the elicit command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/elicitlabs/elicit/pkg/buildinfo"
	"github.com/elicitlabs/elicit/pkg/cache"
	"github.com/elicitlabs/elicit/pkg/collection"
	"github.com/elicitlabs/elicit/pkg/config"
	"github.com/elicitlabs/elicit/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "elicit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	configPath string
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Elicit captures troubleshooting knowledge as diagnostic pathways",
		Long:         `Elicit is a CLI tool for building diagnostic pathways (problem, check, condition, and action nodes), converting them into IF/THEN rules, and managing a searchable rule collection.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config file (default ~/.config/elicit/config.toml)")

	// Register all subcommands
	root.AddCommand(c.pathwayCommand())
	root.AddCommand(c.rulesCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Backend Factories
// =============================================================================

// openStore creates the collection store selected by the configuration.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	switch c.Config.Storage.Backend {
	case config.StorageMongo:
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:        c.Config.Storage.Mongo.URI,
			Database:   c.Config.Storage.Mongo.Database,
			Collection: c.Config.Storage.Mongo.Collection,
		})
	default:
		return store.NewFileStore(c.Config.Storage.Path)
	}
}

// openCache creates the render artifact cache selected by the configuration.
// noCache forces the null cache regardless of config.
func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.CacheNull:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, c.Config.Cache.Redis.Addr, c.Config.Cache.Redis.Password, c.Config.Cache.Redis.DB)
	default:
		dir := c.Config.Cache.Dir
		if dir == "" {
			var err error
			dir, err = cacheDir()
			if err != nil {
				return cache.NewNullCache(), nil
			}
		}
		return cache.NewFileCache(dir)
	}
}

// loadCollection loads the rule collection through the configured store.
// The caller should Close the returned store when done.
func (c *CLI) loadCollection(ctx context.Context) (*collection.Collection, store.Store, error) {
	st, err := c.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	coll, err := st.Load(ctx)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return coll, st, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/elicit/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
