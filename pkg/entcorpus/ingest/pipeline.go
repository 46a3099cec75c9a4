package ingest

import (
	"regexp"

	"github.com/cognicore/entcorpus/pkg/entcorpus/anchors"
	"github.com/cognicore/entcorpus/pkg/entcorpus/annotate"
	"github.com/cognicore/entcorpus/pkg/entcorpus/redirect"
)

var whitespace = regexp.MustCompile(`\s+`)

// Pipeline orchestrates the per-article flow:
// links → anchor table → annotation → entity-preserving tokenization
type Pipeline struct {
	tokenizer *Tokenizer
	resolver  redirect.Resolver
}

// NewPipeline creates a pipeline. resolver may be nil to keep link targets
// unresolved.
func NewPipeline(tokenizer *Tokenizer, resolver redirect.Resolver) *Pipeline {
	return &Pipeline{
		tokenizer: tokenizer,
		resolver:  resolver,
	}
}

// ProcessedDoc represents an article after processing
type ProcessedDoc struct {
	Title      string
	Tokens     []Token
	Anchors    int // size of the anchor table
	Mentions   int // replaced anchor occurrences
	Unresolved int // links dropped for lack of a redirect target
}

// Process runs one article through the pipeline. Errors wrap the sentinels
// of internalerr; only ErrStrategyFailure should end a run.
func (p *Pipeline) Process(a Article) (ProcessedDoc, error) {
	if err := a.Validate(); err != nil {
		return ProcessedDoc{}, err
	}

	// 1. Anchor table (title seed + hyperlinks, redirect-resolved)
	table := anchors.Build(a.Title, a.SourceText, p.resolver)

	// 2. Replace anchors with placeholders
	text := whitespace.ReplaceAllString(a.Text, " ")
	annotated := annotate.New(table).Annotate(text)

	// 3. Tokenize around the placeholders
	tokens, err := p.tokenizer.Tokenize(annotated.Text, table)
	if err != nil {
		return ProcessedDoc{}, err
	}

	return ProcessedDoc{
		Title:      a.Title,
		Tokens:     tokens,
		Anchors:    table.Len(),
		Mentions:   len(annotated.Spans),
		Unresolved: table.Unresolved(),
	}, nil
}
