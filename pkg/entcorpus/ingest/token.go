package ingest

// Kind tells word tokens from entity tokens.
type Kind uint8

const (
	KindWord Kind = iota
	KindEntity
)

func (k Kind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindEntity:
		return "entity"
	default:
		return "unknown"
	}
}

// Token is one element of a tokenized article. For entities Value is the
// canonical identifier, with its original spaces.
type Token struct {
	Kind  Kind
	Value string
}

// Word returns a word token.
func Word(s string) Token { return Token{Kind: KindWord, Value: s} }

// Entity returns an entity token.
func Entity(id string) Token { return Token{Kind: KindEntity, Value: id} }

// IsEntity reports whether the token is an entity.
func (t Token) IsEntity() bool { return t.Kind == KindEntity }
