// Package config loads the typetest configuration file and resolves XDG paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultShareBaseURL is the link prefix used when share.base-url is unset.
const DefaultShareBaseURL = "https://typetest.local/result"

// FileConfig represents the configuration file. Pointer fields stay nil when
// a key is absent so callers can tell "unset" from a zero value.
type FileConfig struct {
	Test  TestConfig  `toml:"test" yaml:"test"`
	Log   LogConfig   `toml:"log" yaml:"log"`
	Share ShareConfig `toml:"share" yaml:"share"`
}

// TestConfig maps test-related settings.
type TestConfig struct {
	Lang       *string  `toml:"lang" yaml:"lang"`
	Duration   *int     `toml:"duration" yaml:"duration"`
	WordList   *string  `toml:"wordlist" yaml:"wordlist"`
	MaxWrong   *int     `toml:"max-wrong" yaml:"max-wrong"`
	FocusWeak  *bool    `toml:"focus-weak" yaml:"focus-weak"`
	WeakTop    *int     `toml:"weak-top" yaml:"weak-top"`
	WeakFactor *float64 `toml:"weak-factor" yaml:"weak-factor"`
	WeakWindow *int     `toml:"weak-window" yaml:"weak-window"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level" yaml:"level"`
	Format *string `toml:"format" yaml:"format"`
	Path   *string `toml:"path" yaml:"path"`
}

// ShareConfig maps share link settings.
type ShareConfig struct {
	BaseURL *string `toml:"base-url" yaml:"base-url"`
}

// ShareBaseURL returns the configured share prefix or the default.
func (c FileConfig) ShareBaseURL() string {
	if c.Share.BaseURL != nil && *c.Share.BaseURL != "" {
		return *c.Share.BaseURL
	}
	return DefaultShareBaseURL
}

// LoadConfig reads the config file at path. The format is chosen by
// extension: .yaml and .yml are YAML, anything else is TOML. A missing file
// is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data, formatFor(path))
	if err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// Format is a config file syntax.
type Format string

// Supported config formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Parse decodes config data in the given format and validates it.
func Parse(data []byte, format Format) (FileConfig, error) {
	var cfg FileConfig
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode YAML config: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode TOML config: %w", err)
		}
	default:
		return FileConfig{}, fmt.Errorf("unsupported config format %q", format)
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// Validate rejects values no command could use.
func (c FileConfig) Validate() error {
	t := c.Test
	if t.Duration != nil && *t.Duration <= 0 {
		return fmt.Errorf("test.duration must be positive, got %d", *t.Duration)
	}
	if t.MaxWrong != nil && *t.MaxWrong < 0 {
		return fmt.Errorf("test.max-wrong must not be negative, got %d", *t.MaxWrong)
	}
	if t.WeakFactor != nil && *t.WeakFactor < 0 {
		return fmt.Errorf("test.weak-factor must not be negative, got %v", *t.WeakFactor)
	}
	if t.WeakTop != nil && *t.WeakTop < 0 {
		return fmt.Errorf("test.weak-top must not be negative, got %d", *t.WeakTop)
	}
	if t.WeakWindow != nil && *t.WeakWindow < 0 {
		return fmt.Errorf("test.weak-window must not be negative, got %d", *t.WeakWindow)
	}
	if c.Log.Format != nil {
		switch *c.Log.Format {
		case "", "text", "json":
		default:
			return fmt.Errorf("log.format must be text or json, got %q", *c.Log.Format)
		}
	}
	return nil
}

// Template is written by "typetest config" when no file exists yet.
const Template = `# typetest configuration

[test]
# lang = "en"
# duration = 30
# wordlist = ""
# max-wrong = 10
# focus-weak = false
# weak-top = 5
# weak-factor = 2.0
# weak-window = 20

[log]
# level = "info"
# format = "text"
# path = ""

[share]
# base-url = "` + DefaultShareBaseURL + `"
`
