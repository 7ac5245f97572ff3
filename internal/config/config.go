// Package config provides configuration loading for the overlay
// manager: where the installed list and the remote cache live, which
// remote lists to follow and which tools drive each source type.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/overlay-tools/ovm/internal/overlay"
)

// EnvPrefix is the prefix of environment variables overriding
// configuration values, e.g. OVM_INSTALLED_LIST.
const EnvPrefix = "OVM"

const (
	appDir       = "ovm"
	defaultWidth = 80
)

// Config is the root configuration of the overlay manager.
type Config struct {
	// InstalledList is the XML file recording locally enabled
	// overlays. It is the single point of persisted local truth.
	InstalledList string `yaml:"installedList"`

	// RemoteCache is the local copy of the merged remote lists.
	RemoteCache string `yaml:"remoteCache"`

	// StorageDir is where overlay working copies are kept; an overlay
	// named N syncs into StorageDir/N.
	StorageDir string `yaml:"storageDir"`

	// Remotes are the published overlay list URLs, merged in order
	// with later lists overwriting same-named entries.
	Remotes []string `yaml:"remotes"`

	// ToolCommands maps source types to the binaries that sync them.
	// Git sources are handled natively and need no entry.
	ToolCommands map[string]string `yaml:"toolCommands"`

	// Quiet suppresses sync tool output.
	Quiet bool `yaml:"quiet"`

	// Width bounds one-line listing output in columns.
	Width int `yaml:"width"`
}

// Option defines the interface for configuration loader options.
type Option func(*loaderConfig) error

type loaderConfig struct {
	path     string
	optional bool
}

// WithConfigPath loads configuration from a YAML file at path. The
// file must exist.
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}
		cfg.path = filepath.Clean(path)
		return nil
	}
}

// WithDefaultConfigPath loads the user's config file from the XDG
// config directory when present, and silently falls back to defaults
// when it is not.
func WithDefaultConfigPath() Option {
	return func(cfg *loaderConfig) error {
		cfg.path = filepath.Join(xdg.ConfigHome, appDir, "config.yaml")
		cfg.optional = true
		return nil
	}
}

// Load builds the configuration: defaults, then the YAML file, then
// OVM_* environment overrides, then validation.
func Load(opts ...Option) (*Config, error) {
	var loader loaderConfig
	for _, opt := range opts {
		if err := opt(&loader); err != nil {
			return nil, err
		}
	}

	cfg := defaultConfig()

	if loader.path != "" {
		data, err := os.ReadFile(loader.path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %q: %w", loader.path, err)
			}
		case os.IsNotExist(err) && loader.optional:
			// No user config file; defaults apply.
		default:
			return nil, fmt.Errorf("failed to read config file %q: %w", loader.path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		InstalledList: filepath.Join(xdg.DataHome, appDir, "installed.xml"),
		RemoteCache:   filepath.Join(xdg.CacheHome, appDir, "remotes.xml"),
		StorageDir:    filepath.Join(xdg.DataHome, appDir, "overlays"),
		Remotes: []string{
			"https://api.gentoo.org/overlays/repositories.xml",
		},
		ToolCommands: map[string]string{
			string(overlay.TypeRsync):     "rsync",
			string(overlay.TypeSvn):       "svn",
			string(overlay.TypeMercurial): "hg",
			string(overlay.TypeBzr):       "bzr",
			string(overlay.TypeCvs):       "cvs",
		},
		Width: defaultWidth,
	}
}

func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if s := v.GetString("INSTALLED_LIST"); s != "" {
		cfg.InstalledList = s
	}
	if s := v.GetString("REMOTE_CACHE"); s != "" {
		cfg.RemoteCache = s
	}
	if s := v.GetString("STORAGE_DIR"); s != "" {
		cfg.StorageDir = s
	}
	if s := v.GetString("REMOTES"); s != "" {
		cfg.Remotes = strings.Fields(s)
	}
	if s := v.GetString("QUIET"); s != "" {
		cfg.Quiet = v.GetBool("QUIET")
	}
	if w := v.GetInt("WIDTH"); w > 0 {
		cfg.Width = w
	}
}

// Validate checks the configuration for values the manager cannot run
// with.
func (c *Config) Validate() error {
	if c.InstalledList == "" {
		return fmt.Errorf("installedList must not be empty")
	}
	if c.RemoteCache == "" {
		return fmt.Errorf("remoteCache must not be empty")
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storageDir must not be empty")
	}
	if c.Width < 0 {
		return fmt.Errorf("width must not be negative")
	}
	return nil
}

// SupportedTypes returns the source types this installation can sync:
// git natively plus every type with a configured tool.
func (c *Config) SupportedTypes() []overlay.SourceType {
	types := []overlay.SourceType{overlay.TypeGit}
	for name, command := range c.ToolCommands {
		if command == "" || name == string(overlay.TypeGit) {
			continue
		}
		types = append(types, overlay.SourceType(name))
	}
	return types
}

// AdapterCommands returns the tool command map keyed by source type,
// the shape the sync dispatcher is wired from.
func (c *Config) AdapterCommands() map[overlay.SourceType]string {
	commands := make(map[overlay.SourceType]string, len(c.ToolCommands))
	for name, command := range c.ToolCommands {
		commands[overlay.SourceType(name)] = command
	}
	return commands
}
