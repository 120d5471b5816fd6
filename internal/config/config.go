package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	BaseURL       string        // HTTP origin the fragments are fetched from
	DataDir       string        // Local directory used instead of HTTP when set
	Root          string        // Root fragment path
	DataPrefix    string        // Canonical fragment directory
	Addr          string        // Listen address for --web
	Timeout       time.Duration // Per-fetch timeout
	CaseSensitive bool          // Search matching policy
	LogLevel      string
	LogFile       string // TUI mode log destination
	GlamourStyle  string
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"base-url":       "base_url",
	"dir":            "data_dir",
	"root":           "root",
	"addr":           "addr",
	"case-sensitive": "case_sensitive",
	"log-level":      "log_level",
}

// SetDefaults registers the default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "http://localhost:8080/")
	v.SetDefault("data_dir", "")
	v.SetDefault("root", "data/main.json")
	v.SetDefault("data_prefix", "data/")
	v.SetDefault("addr", "localhost:8080")
	v.SetDefault("timeout", "15s")
	v.SetDefault("case_sensitive", false)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_file", filepath.Join(os.TempDir(), "faulttree.log"))
	v.SetDefault("glamour_style", "auto")
}

// Load reads configuration from (highest first) flags, FAULTTREE_* environment
// variables, the config file, and defaults. A missing default config file is
// fine; a missing explicit one is an error.
func Load(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "faulttree"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FAULTTREE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		BaseURL:       v.GetString("base_url"),
		DataDir:       ExpandTilde(v.GetString("data_dir")),
		Root:          v.GetString("root"),
		DataPrefix:    v.GetString("data_prefix"),
		Addr:          v.GetString("addr"),
		Timeout:       v.GetDuration("timeout"),
		CaseSensitive: v.GetBool("case_sensitive"),
		LogLevel:      v.GetString("log_level"),
		LogFile:       ExpandTilde(v.GetString("log_file")),
		GlamourStyle:  v.GetString("glamour_style"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	if c.Root == "" {
		return errors.New("root fragment path must not be empty")
	}
	if c.DataPrefix != "" && !strings.HasSuffix(c.DataPrefix, "/") {
		return fmt.Errorf("data_prefix %q must end with /", c.DataPrefix)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.DataDir == "" && c.BaseURL == "" {
		return errors.New("either base_url or data_dir must be set")
	}
	return nil
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
