// Package config handles updater config parsing and location resolution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnvConfig names the environment variable holding an explicit config path.
const EnvConfig = "EZUPDATE_CONFIG"

// Defaults for optional fields.
const (
	DefaultMaxRetries   = 4
	DefaultStallWindow  = 5 * time.Second
	DefaultSettleDelay  = time.Second
	DefaultBackupSuffix = ".EZold"
	DefaultAPIURL       = "https://api.github.com"
	DefaultLogLevel     = "info"
	DefaultLogFile      = "console"
)

// ErrNotFound is returned by Find when no config file exists in any of the
// standard locations.
var ErrNotFound = errors.New("no ezupdate config found in standard locations")

// Duration is a time.Duration that reads and writes as "5s" in every format.
// A bare integer is taken as seconds.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if n, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the updater configuration file.
type Config struct {
	Owner            string   `yaml:"owner" toml:"owner" json:"owner"`
	Repo             string   `yaml:"repo" toml:"repo" json:"repo"`
	Asset            string   `yaml:"asset,omitempty" toml:"asset,omitempty" json:"asset,omitempty"`                                        // Release asset to install
	OriginalName     string   `yaml:"original_name,omitempty" toml:"original_name,omitempty" json:"original_name,omitempty"`                // Program name inside the release
	KeepOriginalName bool     `yaml:"keep_original_name,omitempty" toml:"keep_original_name,omitempty" json:"keep_original_name,omitempty"` // Rename the running file to original_name
	CurrentVersion   string   `yaml:"current_version,omitempty" toml:"current_version,omitempty" json:"current_version,omitempty"`
	AppDir           string   `yaml:"app_dir,omitempty" toml:"app_dir,omitempty" json:"app_dir,omitempty"`
	TempRoot         string   `yaml:"temp_root,omitempty" toml:"temp_root,omitempty" json:"temp_root,omitempty"`
	MaxRetries       int      `yaml:"max_retries" toml:"max_retries" json:"max_retries"`
	StallWindow      Duration `yaml:"stall_window" toml:"stall_window" json:"stall_window"`
	SettleDelay      Duration `yaml:"settle_delay" toml:"settle_delay" json:"settle_delay"`
	BackupSuffix     string   `yaml:"backup_suffix" toml:"backup_suffix" json:"backup_suffix"`
	GitHubToken      string   `yaml:"github_token,omitempty" toml:"github_token,omitempty" json:"github_token,omitempty"`
	APIURL           string   `yaml:"api_url" toml:"api_url" json:"api_url"`
	LogLevel         string   `yaml:"log_level" toml:"log_level" json:"log_level"`
	LogFile          string   `yaml:"log_file" toml:"log_file" json:"log_file"`
}

// Default returns a config with every optional field at its default.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset optional fields. Fields whose default depends
// on the running program (asset, app_dir) are left to the updater.
func (c *Config) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.StallWindow == 0 {
		c.StallWindow = Duration(DefaultStallWindow)
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = Duration(DefaultSettleDelay)
	}
	if c.BackupSuffix == "" {
		c.BackupSuffix = DefaultBackupSuffix
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFile == "" {
		c.LogFile = DefaultLogFile
	}
	if c.TempRoot == "" {
		c.TempRoot = os.TempDir()
	}
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.GitHubToken != "" {
		out.GitHubToken = "********"
	}
	return &out
}

// fileNames are the accepted config file names, in order of preference.
var fileNames = []string{
	"ezupdate.yaml",
	"ezupdate.yml",
	"ezupdate.toml",
	"ezupdate.json",
	".ezupdate.yaml",
	".ezupdate.yml",
	".ezupdate.toml",
	".ezupdate.json",
}

// SearchDirs returns the directories Find looks in, in order of precedence.
func SearchDirs() []string {
	var dirs []string

	home, err := os.UserHomeDir()
	if err == nil {
		// XDG_CONFIG_HOME or default
		xdgConfig := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfig == "" {
			xdgConfig = filepath.Join(home, ".config")
		}
		dirs = append(dirs, filepath.Join(xdgConfig, "ezupdate"))
		dirs = append(dirs, filepath.Join(home, ".ezupdate"))
	}

	// Next to the program being updated
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	return dirs
}

// Find searches for a config file in the standard locations.
// Returns the path to the first file found, or ErrNotFound.
func Find(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Check EZUPDATE_CONFIG environment variable
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	for _, dir := range SearchDirs() {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", ErrNotFound
}

// Load reads and parses a config file, applies defaults and validates it.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	cfg, err := parse(content, format)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
