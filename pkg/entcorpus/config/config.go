package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
)

// Config represents the corpus build configuration
type Config struct {
	Tokenizer        string            `yaml:"tokenizer"`
	TokenizerOptions map[string]string `yaml:"tokenizer_options"`
	Lowercase        bool              `yaml:"lowercase"`
	Language         string            `yaml:"language"`
	ResolveRedirects bool              `yaml:"resolve_redirects"`
	Marker           Marker            `yaml:"marker"`
	Workers          int               `yaml:"workers"`
	ProgressEvery    int               `yaml:"progress_every"`
	ExampleLines     int               `yaml:"example_lines"`
	RedirectDB       string            `yaml:"redirect_db"`
}

// Marker is the framing of entity tokens in the output corpus
type Marker struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
	Join  string `yaml:"join"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Tokenizer:     "simple",
		Marker:        Marker{Open: "[", Close: "]", Join: "_"},
		Workers:       1,
		ProgressEvery: 10000,
		ExampleLines:  10,
	}
}

// Load reads a YAML file on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks option values that can be checked without building
// components.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Tokenizer) == "" {
		return fmt.Errorf("%w: tokenizer is required", internalerr.ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", internalerr.ErrInvalidConfig, c.Workers)
	}
	if c.ProgressEvery < 0 || c.ExampleLines < 0 {
		return fmt.Errorf("%w: progress_every and example_lines must not be negative", internalerr.ErrInvalidConfig)
	}
	return nil
}
