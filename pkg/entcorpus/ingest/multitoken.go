package ingest

import (
	"strings"

	"github.com/cognicore/entcorpus/pkg/entcorpus/lexicon"
)

// MultiTokenParser merges runs of segments that spell a known compound
type MultiTokenParser struct {
	lex  *lexicon.Lexicon
	join string
}

// NewMultiTokenParser creates a parser over lex. Merged compounds are
// emitted in canonical form with spaces replaced by join.
func NewMultiTokenParser(lex *lexicon.Lexicon, join string) *MultiTokenParser {
	if lex == nil {
		lex = lexicon.New()
	}
	return &MultiTokenParser{lex: lex, join: join}
}

// Parse applies greedy longest-match to recognize compounds
func (p *MultiTokenParser) Parse(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	i := 0

	for i < len(tokens) {
		matched := ""
		matchLen := 1

		// Try matching from longest phrase to shortest (bigram)
		maxPhrase := p.lex.MaxWords()
		if remaining := len(tokens) - i; maxPhrase > remaining {
			maxPhrase = remaining
		}
		for n := maxPhrase; n >= 2; n-- {
			if canonical, ok := p.lex.Lookup(strings.Join(tokens[i:i+n], " ")); ok {
				matched = canonical
				matchLen = n
				break
			}
		}

		if matched == "" {
			// Single tokens may still be a variant spelling
			if canonical, ok := p.lex.Lookup(tokens[i]); ok {
				matched = canonical
			} else {
				matched = tokens[i]
			}
		}

		result = append(result, strings.ReplaceAll(matched, " ", p.join))
		i += matchLen
	}

	return result
}
