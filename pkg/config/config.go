// Package config loads the vpcmap settings file.
//
// Config file locations (priority order):
//  1. the --config flag
//  2. $VPCMAP_CONFIG
//  3. $XDG_CONFIG_HOME/vpcmap/config.toml
//  4. ~/.config/vpcmap/config.toml
//
// A missing file is not an error: [DefaultConfig] is used instead. Command
// line flags override file values.
//
//	credentials_file = "~/.aws/credentials"
//	output_dir       = "out"
//	formats          = ["svg", "json"]
//	concurrency      = 4
//
//	[cache]
//	backend   = "redis"
//	redis_url = "redis://localhost:6379/0"
//	ttl       = "30m"
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/vpcmap/pkg/cache"
	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/render"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path.
	EnvConfigPath = "VPCMAP_CONFIG"
	// ConfigDirName is the config directory name under XDG.
	ConfigDirName = "vpcmap"
	// ConfigFileName is the config file name inside ConfigDirName.
	ConfigFileName = "config.toml"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// ValidBackends lists the accepted [CacheConfig.Backend] values.
var ValidBackends = []string{BackendFile, BackendRedis, BackendNone}

// Config is the decoded settings file.
type Config struct {
	CredentialsFile string   `toml:"credentials_file"`
	OutputDir       string   `toml:"output_dir"`
	Formats         []string `toml:"formats"`
	Concurrency     int      `toml:"concurrency"`
	StrictTargets   bool     `toml:"strict_targets"`
	Regions         []string `toml:"regions"`

	Cache CacheConfig `toml:"cache"`
	Serve ServeConfig `toml:"serve"`
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	Backend  string        `toml:"backend"`
	Dir      string        `toml:"dir"`
	RedisURL string        `toml:"redis_url"`
	Prefix   string        `toml:"prefix"`
	TTL      time.Duration `toml:"ttl"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if len(c.Formats) == 0 {
		c.Formats = []string{render.FormatSVG}
	}
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendFile
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = cache.TTLNetworks
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8080"
	}
	c.CredentialsFile = expandHome(c.CredentialsFile)
	c.Cache.Dir = expandHome(c.Cache.Dir)
}

// Validate rejects unknown formats and backends and non-positive
// concurrency.
func (c *Config) Validate() error {
	if err := render.ValidateFormats(c.Formats); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "formats")
	}
	if c.Concurrency < 1 {
		return errs.New(errs.ErrCodeInvalidConfig, "concurrency must be at least 1, got %d", c.Concurrency)
	}
	if !slices.Contains(ValidBackends, c.Cache.Backend) {
		return errs.New(errs.ErrCodeInvalidConfig, "unknown cache backend %q (valid: %s)", c.Cache.Backend, strings.Join(ValidBackends, ", "))
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "cache backend redis requires redis_url")
	}
	if c.Cache.TTL < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "cache ttl must not be negative")
	}
	for _, r := range c.Regions {
		if err := errs.ValidateRegion(r); err != nil {
			return err
		}
	}
	return nil
}

// Load finds and loads the config file. An explicit path must exist; when
// path is empty the default locations are searched and defaults are
// returned if none exists. The second return value is the file that was
// read, or "".
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = FindConfigPath()
		if path == "" {
			return DefaultConfig(), "", nil
		}
	}
	c, err := LoadFromPath(path)
	return c, path, err
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "config file %s not found", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown key %q in %s", undecoded[0].String(), path)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes c to path as TOML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns the XDG location of the config file.
func DefaultPath() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, ConfigFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", ConfigDirName, ConfigFileName), nil
}

// FindConfigPath returns the first existing config file from
// $VPCMAP_CONFIG and the XDG locations, or "".
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}
	if path, err := DefaultPath(); err == nil && fileExists(path) {
		return path
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
