package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
)

// DefaultPattern matches runs of word characters, or any other single
// non-space character.
const DefaultPattern = `[\p{L}\p{N}\p{M}_]+|\S`

// RegexpSegmenter emits every match of a pattern.
type RegexpSegmenter struct {
	pattern *regexp.Regexp
}

// NewRegexpSegmenter compiles pattern; an empty pattern means DefaultPattern.
func NewRegexpSegmenter(pattern string) (*RegexpSegmenter, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: tokenizer pattern: %v", internalerr.ErrInvalidConfig, err)
	}
	return &RegexpSegmenter{pattern: re}, nil
}

func newSimpleSegmenter(opts Options) (Segmenter, error) {
	return NewRegexpSegmenter(opts.Get("pattern", ""))
}

// Segment implements Segmenter.
func (s *RegexpSegmenter) Segment(fragment string) ([]string, error) {
	matches := s.pattern.FindAllString(fragment, -1)
	tokens := matches[:0]
	for _, m := range matches {
		if m = strings.TrimSpace(m); m != "" {
			tokens = append(tokens, m)
		}
	}
	return tokens, nil
}
