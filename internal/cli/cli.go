// Package cli implements the reqtrace command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/reqtrace/pkg/buildinfo"
	"github.com/matzehuels/reqtrace/pkg/cache"
	"github.com/matzehuels/reqtrace/pkg/config"
	reqerrors "github.com/matzehuels/reqtrace/pkg/errors"
	"github.com/matzehuels/reqtrace/pkg/integrations/pypi"
	"github.com/matzehuels/reqtrace/pkg/observability"
	"github.com/matzehuels/reqtrace/pkg/pep508"
	"github.com/matzehuels/reqtrace/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "reqtrace"

	// defaultPackage is traced when no package argument is given.
	defaultPackage = "anyio"
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

	// Out receives the metadata block and trace lines.
	Out io.Writer

	cfg   *config.Config
	flags globalFlags
}

// globalFlags are the persistent flags that override config file values.
type globalFlags struct {
	verbose      bool
	configPath   string
	env          []string
	registry     string
	noCache      bool
	cacheBackend string
	retries      int
	timeout      string
	store        string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The root command itself traces the packages given as arguments.
func (c *CLI) RootCommand() *cobra.Command {
	var opts traceOptions

	root := &cobra.Command{
		Use:   "reqtrace [package...]",
		Short: "reqtrace shows which PyPI dependencies apply to a Python environment",
		Long: `reqtrace fetches the requires_dist metadata of PyPI packages and evaluates
each dependency's environment marker, printing which dependencies apply to the
configured Python environment and where they were pulled in from.`,
		Example: `  reqtrace anyio
  reqtrace --env python_version=3.12 httpx
  reqtrace --all-depths --graph anyio.svg anyio`,
		Version:       buildinfo.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.flags.verbose {
				c.SetLogLevel(LogDebug)
			}
			installHooks(c.Logger)
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{defaultPackage}
			}
			return c.runTrace(cmd.Context(), args, opts)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&c.flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/reqtrace/config.toml)")
	pf.StringArrayVar(&c.flags.env, "env", nil, "marker environment override key=value (repeatable)")
	pf.StringVar(&c.flags.registry, "registry", "", "PyPI JSON API root")
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "disable the response cache")
	pf.StringVar(&c.flags.cacheBackend, "cache-backend", "", "response cache backend: file, redis or none")
	pf.IntVar(&c.flags.retries, "retries", 0, "retry 5xx responses and transport failures N times")
	pf.StringVar(&c.flags.timeout, "timeout", "", "HTTP request timeout (e.g. 10s)")
	pf.StringVar(&c.flags.store, "store", "", "save reports to a directory or mongodb:// URI")

	f := root.Flags()
	f.BoolVar(&opts.allDepths, "all-depths", false, "report excluded dependencies at every depth")
	f.BoolVar(&opts.deep, "deep", false, "also trace dependencies without a marker")
	f.BoolVar(&opts.refresh, "refresh", false, "bypass the response cache for this run")
	f.StringVar(&opts.graph, "graph", "", "write the trace graph to FILE (.dot or .svg)")
	f.BoolVar(&opts.hideMarkers, "hide-markers", false, "omit marker labels from the graph")
	f.BoolVar(&opts.json, "json", false, "print reports as JSON instead of trace lines")

	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.envCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the config file and applies flag overrides on top.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if c.flags.configPath != "" {
		cfg, err = config.LoadFile(c.flags.configPath)
	} else {
		var path string
		if path, err = config.DefaultPath(); err == nil {
			cfg, err = config.Load(path)
		} else {
			cfg, err = config.Default(), nil
		}
	}
	if err != nil {
		return err
	}

	pf := cmd.Flags()
	for _, a := range c.flags.env {
		k, v, err := pep508.ParseAssignment(a)
		if err != nil {
			return reqerrors.Wrap(reqerrors.ErrCodeInvalidInput, err, "--env")
		}
		cfg.SetEnv(k, v)
	}
	if pf.Changed("registry") {
		cfg.Registry = c.flags.registry
	}
	if pf.Changed("cache-backend") {
		cfg.Cache.Backend = c.flags.cacheBackend
	}
	if c.flags.noCache {
		cfg.Cache.Backend = config.CacheNone
	}
	if pf.Changed("retries") {
		cfg.Retries = c.flags.retries
	}
	if pf.Changed("timeout") {
		if err := cfg.Timeout.UnmarshalText([]byte(c.flags.timeout)); err != nil {
			return reqerrors.Wrap(reqerrors.ErrCodeInvalidInput, err, "--timeout")
		}
	}
	if pf.Changed("store") {
		cfg.Store = c.flags.store
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.Logger.Debug("configuration loaded", "registry", cfg.Registry, "cache", cfg.Cache.Backend, "retries", cfg.Retries)
	return nil
}

// settings returns the loaded configuration, or the defaults when a command
// runs without the root's pre-run hook (as in tests).
func (c *CLI) settings() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Component Factories
// =============================================================================

// newCache opens the configured response cache backend.
func (c *CLI) newCache(ctx context.Context) (cache.Cache, error) {
	cfg := c.settings()
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "redis cache")
		}
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return rc, nil
	default:
		dir, err := cacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// newClient creates a PyPI client over the configured cache. The returned
// close function releases the cache.
func (c *CLI) newClient(ctx context.Context) (*pypi.Client, func(), error) {
	cfg := c.settings()
	backend, err := c.newCache(ctx)
	if err != nil {
		return nil, nil, err
	}
	client := pypi.NewClient(backend, cfg.Cache.TTL.Duration)
	client.SetBaseURL(cfg.Registry)
	client.SetTimeout(cfg.Timeout.Duration)
	client.SetAttempts(cfg.Retries + 1)
	return client, func() { backend.Close() }, nil
}

// openStore opens the configured report store, or returns nil when none is set.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	loc := c.settings().Store
	if loc == "" {
		return nil, nil
	}
	s, err := store.Open(ctx, loc)
	if err != nil {
		return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "open store %s", loc)
	}
	return s, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/reqtrace/).
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

// installHooks routes observability events to debug logs.
func installHooks(l *log.Logger) {
	h := &logHooks{l: l}
	observability.SetHTTPHooks(h)
	observability.SetCacheHooks(h)
	observability.SetTraceHooks(h)
}
