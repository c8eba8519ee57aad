package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vpcmap/internal/metrics"
	"github.com/matzehuels/vpcmap/pkg/accounts"
	"github.com/matzehuels/vpcmap/pkg/buildinfo"
	"github.com/matzehuels/vpcmap/pkg/cache"
	"github.com/matzehuels/vpcmap/pkg/config"
	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/pipeline"
	"github.com/matzehuels/vpcmap/pkg/provider/awsec2"
	"github.com/matzehuels/vpcmap/pkg/provider/cached"
	"github.com/matzehuels/vpcmap/pkg/provider/snapshot"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "vpcmap"

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

	// Config is loaded in the root PersistentPreRunE unless already set.
	Config     *config.Config
	configPath string

	// Metrics is created lazily by commands that report metrics.
	Metrics *metrics.Metrics
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "vpcmap draws the network topology of AWS accounts",
		Long:         `vpcmap lists the VPCs, subnets, route tables and peering connections of one or more AWS accounts and renders them as a clustered Graphviz diagram.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $"+config.EnvConfigPath+" or ~/.config/vpcmap/config.toml)")

	root.AddCommand(c.graphCommand())
	root.AddCommand(c.accountsCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	if c.Config != nil {
		return nil
	}
	cfg, path, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	c.Config = cfg
	return nil
}

func (c *CLI) config() *config.Config {
	if c.Config == nil {
		c.Config = config.DefaultConfig()
	}
	return c.Config
}

// metrics returns the CLI's metrics, installing them as the global hooks
// on first use.
func (c *CLI) metrics() *metrics.Metrics {
	if c.Metrics == nil {
		c.Metrics = metrics.New()
		c.Metrics.Install()
	}
	return c.Metrics
}

// =============================================================================
// Scope Flags - shared by graph, snapshot and serve
// =============================================================================

// scopeFlags selects the accounts and regions to inspect and where their
// resources come from.
type scopeFlags struct {
	accounts    []string
	regions     []string
	credentials string
	snapshot    string
	concurrency int
	strict      bool
	noCache     bool
	refresh     bool
}

func (f *scopeFlags) register(cmd *cobra.Command, withSnapshot bool) {
	cmd.Flags().StringSliceVarP(&f.accounts, "accounts", "a", nil, "account search terms, matched against profile names (comma-separated)")
	cmd.Flags().StringSliceVarP(&f.regions, "regions", "r", nil, "regions to inspect (comma-separated)")
	cmd.Flags().StringVar(&f.credentials, "credentials", "", "AWS shared credentials file (default from config or ~/.aws/credentials)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "number of account/region listings fetched at once")
	cmd.Flags().BoolVar(&f.strict, "strict-targets", false, "draw only the first matching target of each route")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached listings and artifacts")
	_ = cmd.MarkFlagRequired("accounts")
	if withSnapshot {
		cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "read resources from a snapshot file instead of AWS")
	}
}

// regionsOrDefault returns the --regions flag, falling back to the config.
func (f *scopeFlags) regionsOrDefault(cfg *config.Config) ([]string, error) {
	regions := f.regions
	if len(regions) == 0 {
		regions = cfg.Regions
	}
	if len(regions) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "at least one region is required (--regions)")
	}
	return regions, nil
}

func (f *scopeFlags) concurrencyOrDefault(cfg *config.Config) int {
	if f.concurrency > 0 {
		return f.concurrency
	}
	return cfg.Concurrency
}

// session is the provider and account list a command runs against.
type session struct {
	provider topology.Provider
	accounts []topology.AccountScope
	regions  []string
	cache    cache.Cache
	keyer    cache.Keyer
}

func (s *session) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// openSession resolves accounts and regions and wires the provider stack:
// snapshot or EC2, wrapped in the listing cache.
func (c *CLI) openSession(ctx context.Context, f *scopeFlags) (*session, error) {
	cfg := c.config()
	for _, term := range f.accounts {
		if err := errs.ValidateSearchTerm(term); err != nil {
			return nil, err
		}
	}
	regions, err := f.regionsOrDefault(cfg)
	if err != nil {
		return nil, err
	}

	var (
		inner topology.Provider
		all   []topology.AccountScope
	)
	if f.snapshot != "" {
		doc, err := snapshot.Load(f.snapshot)
		if err != nil {
			return nil, err
		}
		sp := snapshot.New(doc)
		inner, all = sp, sp.Accounts()
		c.Logger.Debug("using snapshot", "path", f.snapshot, "captured", doc.CapturedAt)
	} else {
		path := c.credentialsPath(f.credentials)
		if all, err = accounts.Discover(path); err != nil {
			return nil, err
		}
		inner = awsec2.New(awsec2.WithConfigFiles(path), awsec2.WithLogger(c.Logger))
	}

	selected := accounts.Filter(all, f.accounts)
	if len(selected) == 0 {
		return nil, errs.New(errs.ErrCodeNotFound, "no accounts match %s", strings.Join(f.accounts, ", "))
	}

	// Snapshots are already local; caching them would only shadow edits.
	noCache := f.noCache || f.snapshot != ""
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	keyer := c.newKeyer()
	p := cached.New(inner, ch, keyer)
	p.TTL = cfg.Cache.TTL
	p.Refresh = f.refresh
	p.Logger = c.Logger

	return &session{provider: p, accounts: selected, regions: regions, cache: ch, keyer: keyer}, nil
}

func (c *CLI) credentialsPath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := c.config().CredentialsFile; p != "" {
		return p
	}
	return accounts.DefaultCredentialsPath()
}

// newRunner returns a pipeline runner sharing the session's cache and keys.
func (s *session) newRunner(logger *log.Logger) *pipeline.Runner {
	return pipeline.NewRunner(s.provider, s.cache, s.keyer, logger)
}

// pipelineOptions builds runner options for a session.
func (s *session) pipelineOptions(f *scopeFlags, cfg *config.Config, formats []string) pipeline.Options {
	return pipeline.Options{
		Accounts:      s.accounts,
		Regions:       s.regions,
		Concurrency:   f.concurrencyOrDefault(cfg),
		StrictTargets: f.strict || cfg.StrictTargets,
		Formats:       formats,
		Refresh:       f.refresh,
	}
}

// =============================================================================
// Cache Factory
// =============================================================================

// newCache opens the configured cache backend. Redis failures are fatal;
// an unusable cache directory silently disables caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.config().Cache
	if noCache || cfg.Backend == config.BackendNone {
		return cache.NewNullCache(), nil
	}
	if cfg.Backend == config.BackendRedis {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis cache: %w", err)
		}
		return rc, nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("cache disabled", "dir", dir, "error", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// newKeyer namespaces cache keys with the configured prefix, so several
// credential sets can share one cache backend.
func (c *CLI) newKeyer() cache.Keyer {
	if prefix := c.config().Cache.Prefix; prefix != "" {
		return cache.NewScopedKeyer(cache.NewDefaultKeyer(), prefix)
	}
	return cache.NewDefaultKeyer()
}

func (c *CLI) cacheDir() (string, error) {
	if dir := c.config().Cache.Dir; dir != "" {
		return dir, nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
