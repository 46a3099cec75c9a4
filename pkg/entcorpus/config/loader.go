package config

import (
	"fmt"
	"io"

	"golang.org/x/text/language"

	"github.com/cognicore/entcorpus/pkg/entcorpus/corpus"
	"github.com/cognicore/entcorpus/pkg/entcorpus/ingest"
	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
)

// Loader loads the configuration file and constructs components
type Loader struct {
	ConfigPath string

	// Override is applied after the file is read, before validation.
	// Command-line flags use it.
	Override func(*Config)
}

// Components holds all loaded configuration components
type Components struct {
	Config    Config
	Segmenter ingest.Segmenter
	Tokenizer *ingest.Tokenizer
	Framing   corpus.Framing
}

// Load reads the configuration and returns initialized components
func (l *Loader) Load() (*Components, error) {
	cfg := Default()
	if l.ConfigPath != "" {
		var err error
		if cfg, err = Load(l.ConfigPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if l.Override != nil {
		l.Override(&cfg)
	}
	return Build(cfg)
}

// Build validates cfg and constructs its components.
func Build(cfg Config) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	framing := corpus.Framing{Open: cfg.Marker.Open, Close: cfg.Marker.Close, Join: cfg.Marker.Join}
	if err := framing.Validate(); err != nil {
		return nil, err
	}

	lang := language.Und
	if cfg.Language != "" {
		tag, err := language.Parse(cfg.Language)
		if err != nil {
			return nil, fmt.Errorf("%w: language %q: %v", internalerr.ErrInvalidConfig, cfg.Language, err)
		}
		lang = tag
	}

	segmenter, err := ingest.NewSegmenter(cfg.Tokenizer, ingest.Options(cfg.TokenizerOptions))
	if err != nil {
		return nil, fmt.Errorf("build tokenizer: %w", err)
	}

	tokenizer := ingest.NewTokenizer(segmenter)
	tokenizer.SetLowercase(cfg.Lowercase, lang)

	return &Components{
		Config:    cfg,
		Segmenter: segmenter,
		Tokenizer: tokenizer,
		Framing:   framing,
	}, nil
}

// Close releases resources held by the segmenter, such as an external
// analyzer process.
func (c *Components) Close() error {
	if closer, ok := c.Segmenter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
