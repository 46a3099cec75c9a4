package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
)

// Segmenter splits a plain text fragment into surface strings. It never
// sees placeholders and must not carry state from one call to the next.
type Segmenter interface {
	Segment(fragment string) ([]string, error)
}

// Options are strategy specific settings, passed through from configuration.
type Options map[string]string

// Get returns the option value or def when unset.
func (o Options) Get(name, def string) string {
	if v, ok := o[name]; ok && v != "" {
		return v
	}
	return def
}

// NewSegmenterFunc builds a segmenter from its options.
type NewSegmenterFunc func(opts Options) (Segmenter, error)

// Strategies is the explicit registry of segmentation strategies.
var Strategies = map[string]NewSegmenterFunc{
	"simple":     newSimpleSegmenter,
	"dictionary": newDictionarySegmenter,
	"mecab":      newMeCabSegmenter,
}

// strategyAliases maps alternative names to registry keys.
var strategyAliases = map[string]string{
	"regexp":              "simple",
	"simple-pattern":      "simple",
	"uax29":               "dictionary",
	"dictionary-assisted": "dictionary",
	"morphological":       "mecab",
}

// CanonicalStrategy resolves aliases. Unknown names are returned unchanged.
func CanonicalStrategy(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := strategyAliases[name]; ok {
		return canonical
	}
	return name
}

// NewSegmenter builds the named strategy.
func NewSegmenter(name string, opts Options) (Segmenter, error) {
	factory, ok := Strategies[CanonicalStrategy(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown tokenizer %q (known: %s)",
			internalerr.ErrInvalidConfig, name, strings.Join(StrategyNames(), ", "))
	}
	return factory(opts)
}

// StrategyNames lists registered strategy names.
func StrategyNames() []string {
	names := make([]string, 0, len(Strategies))
	for name := range Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
