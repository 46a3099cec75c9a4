// Package annotate replaces anchor occurrences in article text with
// numbered placeholders.
//
// A placeholder is the rune OpenMark, the decimal rank of the anchor in its
// table, and the rune CloseMark. Both runes are in the Unicode private use
// area; any occurrence in the input is blanked before matching, so every
// placeholder in the output was written by the annotator.
package annotate

import (
	"strconv"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/cognicore/entcorpus/pkg/entcorpus/anchors"
)

const (
	OpenMark  = '\uE000'
	CloseMark = '\uE001'
)

// Span is a consumed region of the input text.
type Span struct {
	Start int // byte offset in the sanitized input
	End   int
	Rank  int // index into the anchor table
}

// Result is the annotated text plus the spans that were replaced.
type Result struct {
	Text  string
	Spans []Span
}

// Annotator matches the anchors of one table.
type Annotator struct {
	table *anchors.Table
	ac    ahocorasick.AhoCorasick
}

// New compiles an annotator for table. Pattern ids are anchor ranks.
func New(table *anchors.Table) *Annotator {
	entries := table.Entries()
	patterns := make([]string, len(entries))
	for i, e := range entries {
		patterns[i] = e.Anchor
	}
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		MatchKind: ahocorasick.LeftMostLongestMatch,
	})
	return &Annotator{table: table, ac: builder.Build(patterns)}
}

// Annotate scans text once from the left. At each offset the longest anchor
// starting there is replaced and scanning resumes after it, so no two
// replacements overlap and a longer anchor always beats a shorter one that
// starts at the same offset.
func (a *Annotator) Annotate(text string) Result {
	text = Sanitize(text)
	if a.table.Len() == 0 || text == "" {
		return Result{Text: text}
	}

	matches := a.ac.FindAll(text)
	if len(matches) == 0 {
		return Result{Text: text}
	}

	var (
		out       strings.Builder
		spans     = make([]Span, 0, len(matches))
		watermark int // everything before this offset has been emitted
	)
	out.Grow(len(text))

	for i := range matches {
		m := &matches[i]
		start, end, rank := m.Start(), m.End(), m.Pattern()
		out.WriteString(text[watermark:start])
		out.WriteString(Placeholder(rank))
		spans = append(spans, Span{Start: start, End: end, Rank: rank})
		watermark = end
	}
	out.WriteString(text[watermark:])

	return Result{Text: out.String(), Spans: spans}
}

// Annotate is a convenience wrapper for one-off use.
func Annotate(text string, table *anchors.Table) Result {
	return New(table).Annotate(text)
}

// Placeholder returns the placeholder for an anchor rank.
func Placeholder(rank int) string {
	return string(OpenMark) + strconv.Itoa(rank) + string(CloseMark)
}

// Sanitize blanks the placeholder delimiters in raw text.
func Sanitize(text string) string {
	if !strings.ContainsRune(text, OpenMark) && !strings.ContainsRune(text, CloseMark) {
		return text
	}
	return strings.Map(func(r rune) rune {
		if r == OpenMark || r == CloseMark {
			return ' '
		}
		return r
	}, text)
}
