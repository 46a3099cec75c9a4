package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"

	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
	"github.com/cognicore/entcorpus/pkg/entcorpus/lexicon"
)

// DictionarySegmenter splits text on Unicode word boundaries (UAX #29) and
// then merges compounds listed in a lexicon.
type DictionarySegmenter struct {
	parser *MultiTokenParser
}

// NewDictionarySegmenter creates a segmenter. lex may be nil.
func NewDictionarySegmenter(lex *lexicon.Lexicon, join string) *DictionarySegmenter {
	if lex == nil {
		return &DictionarySegmenter{}
	}
	return &DictionarySegmenter{parser: NewMultiTokenParser(lex, join)}
}

func newDictionarySegmenter(opts Options) (Segmenter, error) {
	path := opts.Get("lexicon", "")
	if path == "" {
		return NewDictionarySegmenter(nil, ""), nil
	}
	join := opts.Get("join", "_")
	if strings.IndexFunc(join, unicode.IsSpace) >= 0 {
		return nil, fmt.Errorf("%w: compound join %q contains whitespace", internalerr.ErrInvalidConfig, join)
	}
	lex, err := lexicon.LoadFromYAML(path)
	if err != nil {
		return nil, fmt.Errorf("%w: load lexicon: %w", internalerr.ErrStrategyFailure, err)
	}
	return NewDictionarySegmenter(lex, join), nil
}

// Segment implements Segmenter.
func (s *DictionarySegmenter) Segment(fragment string) ([]string, error) {
	var tokens []string
	segments := words.FromString(fragment)
	for segments.Next() {
		seg := segments.Value()
		if isSpace(seg) {
			continue
		}
		tokens = append(tokens, seg)
	}

	if s.parser != nil {
		tokens = s.parser.Parse(tokens)
	}
	return tokens, nil
}

func isSpace(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}
