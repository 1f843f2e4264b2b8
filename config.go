package tspec

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .tspec.yaml configuration file.
type Config struct {
	// Defaults are applied to every spec's baseline default config.
	Defaults Overrides `yaml:"defaults,omitempty"`

	// Run holds engine selection and output settings.
	Run RunConfig `yaml:"run,omitempty"`
}

// RunConfig holds settings for the run command.
type RunConfig struct {
	// Filter is a regular expression matched against slash-joined test paths.
	Filter string `yaml:"filter,omitempty"`

	// Glob is a doublestar pattern matched against slash-joined test paths.
	Glob string `yaml:"glob,omitempty"`

	// Tags is a tag expression, e.g. "db && !slow".
	Tags string `yaml:"tags,omitempty"`

	// FailFast stops at the first failure.
	FailFast bool `yaml:"fail_fast,omitempty"`

	// Format selects the output: dots, verbose, json or tui.
	Format string `yaml:"format,omitempty"`
}

// SpecOptions returns the spec options implied by the config.
func (c *Config) SpecOptions() []Option {
	if c == nil || c.Defaults.IsZero() {
		return nil
	}

	return []Option{WithDefaults(c.Defaults)}
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".tspec.yaml", ".tspec.yml", "tspec.yaml", "tspec.yml"}

// LoadConfig finds and loads the nearest .tspec.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
