package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mixorder/pkg/cache"
	"github.com/matzehuels/mixorder/pkg/config"
	"github.com/matzehuels/mixorder/pkg/pipeline"
	"github.com/matzehuels/mixorder/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "mixorder"

	// configFile is looked up in the config directory when --config is unset.
	configFile = "config.toml"
)

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

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig reads --config, or the default config file when the flag is
// unset. A missing default file yields built-in settings.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		dir, err := configDir()
		if err == nil {
			path = filepath.Join(dir, configFile)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		c.Logger.Debug("config loaded", "path", path)
	}
	return cfg, nil
}

// =============================================================================
// Backend Factories
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	ch, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, c.Logger)
	r.CacheTTL = cfg.Cache.TTL.Duration
	return r, nil
}

// newCache builds the cache named by cfg.Cache.Backend. A file cache that
// cannot locate its directory degrades to no caching.
func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: os.Getenv("MIXORDER_REDIS_PASSWORD"),
			DB:       cfg.Cache.RedisDB,
		})
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// newStore opens the saved-set store named by cfg.Store.Backend.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Backend == "mongo" {
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:        cfg.Store.MongoURI,
			Database:   cfg.Store.Database,
			Collection: cfg.Store.Collection,
		})
	}
	return store.NewFileStore(cfg.Store.Dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/mixorder/).
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

// configDir returns the config directory using XDG standard (~/.config/mixorder/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
