package corpus

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cognicore/entcorpus/pkg/entcorpus/ingest"
	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
)

// EntityJoin is the only supported Join. Wiki titles read "_" as a space,
// so entity identifiers carry no underscore and Decode can map it back
// without ambiguity.
const EntityJoin = "_"

// Framing is the textual form of entity tokens in the corpus.
type Framing struct {
	Open  string
	Close string
	Join  string // replaces whitespace inside identifiers
}

// DefaultFraming writes entities as [New_York_City].
func DefaultFraming() Framing {
	return Framing{Open: "[", Close: "]", Join: "_"}
}

// Validate checks that framed entities stay single fields and can be
// told apart from words.
func (f Framing) Validate() error {
	if f.Open == "" || f.Close == "" {
		return fmt.Errorf("%w: entity delimiters must not be empty", internalerr.ErrInvalidConfig)
	}
	if f.Join != EntityJoin {
		return fmt.Errorf("%w: join string must be %q, got %q", internalerr.ErrInvalidConfig, EntityJoin, f.Join)
	}
	if strings.IndexFunc(f.Open+f.Close, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: entity delimiters must not contain whitespace", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Encode renders an entity identifier as one corpus field.
func (f Framing) Encode(entity string) string {
	return f.Open + strings.Join(strings.Fields(entity), f.Join) + f.Close
}

// Decode recovers the identifier from a framed field.
func (f Framing) Decode(field string) (string, bool) {
	if len(field) <= len(f.Open)+len(f.Close) ||
		!strings.HasPrefix(field, f.Open) || !strings.HasSuffix(field, f.Close) {
		return "", false
	}
	inner := field[len(f.Open) : len(field)-len(f.Close)]
	return strings.ReplaceAll(inner, f.Join, " "), true
}

// Format renders a token sequence as one corpus line, without newline.
func (f Framing) Format(tokens []ingest.Token) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		if tok.IsEntity() {
			b.WriteString(f.Encode(tok.Value))
		} else {
			b.WriteString(tok.Value)
		}
	}
	return b.String()
}

// DecodeLine splits a corpus line back into tokens. A field is an entity
// iff it carries the framing on both ends.
func (f Framing) DecodeLine(line string) []ingest.Token {
	fields := strings.Fields(line)
	tokens := make([]ingest.Token, len(fields))
	for i, field := range fields {
		if entity, ok := f.Decode(field); ok {
			tokens[i] = ingest.Entity(entity)
		} else {
			tokens[i] = ingest.Word(field)
		}
	}
	return tokens
}
