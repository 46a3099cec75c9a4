package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cognicore/entcorpus/pkg/entcorpus/anchors"
	"github.com/cognicore/entcorpus/pkg/entcorpus/annotate"
	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
)

// Tokenizer turns annotated text into word and entity tokens. Placeholders
// are cut out before segmentation, so the segmenter only ever sees the plain
// text between them.
type Tokenizer struct {
	segmenter Segmenter
	lowercase bool
	lang      language.Tag
}

// NewTokenizer creates a tokenizer around segmenter.
func NewTokenizer(segmenter Segmenter) *Tokenizer {
	return &Tokenizer{segmenter: segmenter, lang: language.Und}
}

// SetLowercase enables case folding of word tokens. Entity identifiers are
// never folded. lang selects language-specific rules; use language.Und for
// none.
func (t *Tokenizer) SetLowercase(enabled bool, lang language.Tag) {
	t.lowercase = enabled
	t.lang = lang
}

// Tokenize splits text at placeholders, segments each plain fragment on its
// own and substitutes each placeholder with the entity it stands for.
//
// A malformed placeholder yields ErrMarkerCorruption; a segmenter error
// yields ErrStrategyFailure.
func (t *Tokenizer) Tokenize(text string, table *anchors.Table) ([]Token, error) {
	var (
		tokens []Token
		caser  cases.Caser
	)
	if t.lowercase {
		caser = cases.Lower(t.lang)
	}

	offset := 0
	for {
		open := strings.IndexRune(text, annotate.OpenMark)
		fragment := text
		if open >= 0 {
			fragment = text[:open]
		}
		if i := strings.IndexRune(fragment, annotate.CloseMark); i >= 0 {
			return nil, fmt.Errorf("%w: stray closing delimiter at byte %d",
				internalerr.ErrMarkerCorruption, offset+i)
		}

		words, err := t.segment(fragment)
		if err != nil {
			return nil, err
		}
		for _, w := range words {
			if t.lowercase {
				w = caser.String(w)
			}
			tokens = append(tokens, Word(w))
		}

		if open < 0 {
			return tokens, nil
		}

		rest := text[open+utf8.RuneLen(annotate.OpenMark):]
		end := strings.IndexRune(rest, annotate.CloseMark)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated placeholder at byte %d",
				internalerr.ErrMarkerCorruption, offset+open)
		}
		rank, err := parseRank(rest[:end])
		if err != nil || rank >= table.Len() {
			return nil, fmt.Errorf("%w: bad placeholder %q at byte %d",
				internalerr.ErrMarkerCorruption, rest[:end], offset+open)
		}
		tokens = append(tokens, Entity(table.At(rank).Entity))

		consumed := len(text) - len(rest) + end + utf8.RuneLen(annotate.CloseMark)
		offset += consumed
		text = text[consumed:]
	}
}

func (t *Tokenizer) segment(fragment string) ([]string, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}
	words, err := t.segmenter.Segment(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStrategyFailure, err)
	}
	out := words[:0]
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out, nil
}

// parseRank accepts only plain decimal digits.
func parseRank(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}
