package redirect

import "sort"

// MainNamespace is the namespace id of encyclopedia articles.
const MainNamespace = 0

// Source is a title that redirects to an article.
type Source struct {
	Namespace int
	Title     string
}

// Resolver maps a link target to its canonical article title.
type Resolver interface {
	Resolve(title string) (string, bool)
}

// Table is a frozen source -> canonical title mapping.
// It is safe for concurrent use; nothing mutates it after Builder.Table.
type Table struct {
	targets map[string]string
}

// Resolve returns the canonical title for title.
func (t *Table) Resolve(title string) (string, bool) {
	if t == nil {
		return "", false
	}
	canonical, ok := t.targets[title]
	return canonical, ok
}

// Len returns the number of known source titles, canonical titles included.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.targets)
}

// Pairs returns all (source, canonical) pairs sorted by source.
func (t *Table) Pairs() []Pair {
	pairs := make([]Pair, 0, t.Len())
	if t == nil {
		return pairs
	}
	for src, dst := range t.targets {
		pairs = append(pairs, Pair{Source: src, Target: dst})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Source < pairs[j].Source })
	return pairs
}

// Pair is one entry of a Table.
type Pair struct {
	Source string
	Target string
}

// Builder accumulates redirects during the up-front pass over the dump.
type Builder struct {
	targets map[string]string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{targets: make(map[string]string)}
}

// AddArticle registers an article under its own title and every
// main-namespace redirect pointing at it. The title always maps to itself;
// a redirect source keeps the first article that claimed it.
func (b *Builder) AddArticle(title string, sources []Source) {
	if title == "" {
		return
	}
	b.targets[title] = title
	for _, src := range sources {
		if src.Namespace != MainNamespace || src.Title == "" {
			continue
		}
		b.Add(src.Title, title)
	}
}

// Add records src -> dst unless src is already known.
func (b *Builder) Add(src, dst string) {
	if src == "" || dst == "" {
		return
	}
	if _, exists := b.targets[src]; exists {
		return
	}
	b.targets[src] = dst
}

// Table freezes the builder. The builder must not be used afterwards.
func (b *Builder) Table() *Table {
	t := &Table{targets: b.targets}
	b.targets = nil
	return t
}

// FromPairs builds a table from persisted pairs.
func FromPairs(pairs []Pair) *Table {
	b := NewBuilder()
	for _, p := range pairs {
		b.Add(p.Source, p.Target)
	}
	return b.Table()
}
