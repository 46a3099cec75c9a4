// Package anchors builds the per-article mapping from surface strings to
// the entities they link to.
package anchors

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
	"github.com/cognicore/entcorpus/pkg/entcorpus/redirect"
)

var (
	titleParen = regexp.MustCompile(` \([^()].+?\)$`)
	hyperlink  = regexp.MustCompile(`\[\[(.+?)\]\]`)
	spaces     = regexp.MustCompile(`\s+`)
)

// Entry maps one anchor to its entity.
type Entry struct {
	Anchor string
	Entity string
}

// Table is the immutable anchor mapping of one article. Entries are ordered
// by descending anchor length in runes; equal lengths keep first-seen order.
type Table struct {
	entries    []Entry
	index      map[string]int
	unresolved int
}

// Build parses the hyperlinks of an article and returns its anchor table.
// The article's own title, without a trailing parenthetical, is seeded as
// the first anchor. A nil resolver keeps link targets as-is.
func Build(title, markup string, resolver redirect.Resolver) *Table {
	b := newBuilder()
	b.add(StripDisambiguation(title), title)

	for _, m := range hyperlink.FindAllStringSubmatch(markup, -1) {
		entity, anchor, ok := ParseLink(m[1])
		if !ok {
			continue
		}
		entity, err := ResolveEntity(resolver, entity)
		if err != nil {
			b.unresolved++
			continue
		}
		b.add(anchor, entity)
	}

	return b.table()
}

// ResolveEntity maps entity through resolver. Without a resolver the
// entity is returned unchanged.
func ResolveEntity(resolver redirect.Resolver, entity string) (string, error) {
	if resolver == nil {
		return entity, nil
	}
	canonical, found := resolver.Resolve(entity)
	if !found || canonical == "" {
		return "", fmt.Errorf("%w: %q", internalerr.ErrUnresolvableEntity, entity)
	}
	return canonical, nil
}

// FromEntries builds a table from explicit entries, in the given order.
// Duplicate anchors keep their first entity.
func FromEntries(entries ...Entry) *Table {
	b := newBuilder()
	for _, e := range entries {
		b.add(e.Anchor, e.Entity)
	}
	return b.table()
}

// ParseLink splits the inside of a [[...]] span into entity and anchor.
func ParseLink(link string) (entity, anchor string, ok bool) {
	if pipe := strings.IndexByte(link, '|'); pipe != -1 {
		entity, anchor = link[:pipe], link[pipe+1:]
	} else {
		entity, anchor = link, link
	}

	if hash := strings.IndexByte(entity, '#'); hash != -1 {
		entity = entity[:hash]
	}

	anchor = normSpace(html.UnescapeString(anchor))
	entity = NormalizeEntity(html.UnescapeString(entity))
	if anchor == "" || entity == "" {
		return "", "", false
	}
	return entity, anchor, true
}

// NormalizeEntity applies the title conventions of the dump: underscores
// are spaces, and whitespace runs collapse to one space.
func NormalizeEntity(entity string) string {
	return normSpace(strings.ReplaceAll(entity, "_", " "))
}

// StripDisambiguation removes a trailing " (...)" qualifier from a title.
func StripDisambiguation(title string) string {
	return titleParen.ReplaceAllString(title, "")
}

func normSpace(s string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Entries returns the ordered entries. The slice must not be modified.
func (t *Table) Entries() []Entry {
	return t.entries
}

// Len returns the number of anchors.
func (t *Table) Len() int {
	return len(t.entries)
}

// At returns the entry with the given rank.
func (t *Table) At(i int) Entry {
	return t.entries[i]
}

// Lookup returns the entity for an anchor.
func (t *Table) Lookup(anchor string) (string, bool) {
	i, ok := t.index[anchor]
	if !ok {
		return "", false
	}
	return t.entries[i].Entity, true
}

// Unresolved returns how many links were dropped because their target had
// no redirect mapping.
func (t *Table) Unresolved() int {
	return t.unresolved
}

type builder struct {
	entries    []Entry
	seen       map[string]struct{}
	unresolved int
}

func newBuilder() *builder {
	return &builder{seen: make(map[string]struct{})}
}

// add keeps the first entity seen for an anchor.
func (b *builder) add(anchor, entity string) {
	if anchor == "" || entity == "" {
		return
	}
	if _, dup := b.seen[anchor]; dup {
		return
	}
	b.seen[anchor] = struct{}{}
	b.entries = append(b.entries, Entry{Anchor: anchor, Entity: entity})
}

func (b *builder) table() *Table {
	entries := b.entries
	sort.SliceStable(entries, func(i, j int) bool {
		return utf8.RuneCountInString(entries[i].Anchor) > utf8.RuneCountInString(entries[j].Anchor)
	})

	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Anchor] = i
	}
	return &Table{entries: entries, index: index, unresolved: b.unresolved}
}
