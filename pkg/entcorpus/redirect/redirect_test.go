package redirect

import "testing"

func TestBuilderResolvesRedirects(t *testing.T) {
	b := NewBuilder()
	b.AddArticle("New York City", []Source{
		{Namespace: MainNamespace, Title: "NYC"},
		{Namespace: MainNamespace, Title: "New York, New York"},
		{Namespace: 4, Title: "Project:NYC"},
	})
	table := b.Table()

	tests := []struct {
		src  string
		want string
		ok   bool
	}{
		{"NYC", "New York City", true},
		{"New York, New York", "New York City", true},
		{"New York City", "New York City", true},
		{"Project:NYC", "", false},
		{"Boston", "", false},
	}

	for _, tt := range tests {
		got, ok := table.Resolve(tt.src)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.src, got, ok, tt.want, tt.ok)
		}
	}

	if table.Len() != 3 {
		t.Errorf("Expected 3 entries, got %d", table.Len())
	}
}

func TestBuilderFirstDefinitionWins(t *testing.T) {
	b := NewBuilder()
	b.AddArticle("Mercury (planet)", []Source{{Title: "Mercury"}})
	b.AddArticle("Mercury (element)", []Source{{Title: "Mercury"}})
	table := b.Table()

	got, _ := table.Resolve("Mercury")
	if got != "Mercury (planet)" {
		t.Errorf("Expected first redirect to win, got %q", got)
	}
}

func TestArticleTitleResolvesToItself(t *testing.T) {
	b := NewBuilder()
	b.AddArticle("Mercury (planet)", []Source{{Title: "Mercury"}})
	b.AddArticle("Mercury", nil)
	table := b.Table()

	got, _ := table.Resolve("Mercury")
	if got != "Mercury" {
		t.Errorf("Article title should resolve to itself, got %q", got)
	}
}

func TestNilTable(t *testing.T) {
	var table *Table
	if _, ok := table.Resolve("x"); ok {
		t.Error("nil table should not resolve")
	}
	if table.Len() != 0 {
		t.Error("nil table should be empty")
	}
}

func TestFromPairsRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.AddArticle("B", []Source{{Title: "A"}, {Title: "C"}})
	table := b.Table()

	rebuilt := FromPairs(table.Pairs())
	for _, p := range table.Pairs() {
		got, ok := rebuilt.Resolve(p.Source)
		if !ok || got != p.Target {
			t.Errorf("Resolve(%q) = %q, want %q", p.Source, got, p.Target)
		}
	}

	pairs := rebuilt.Pairs()
	if len(pairs) != 3 || pairs[0].Source != "A" || pairs[2].Source != "C" {
		t.Errorf("Pairs should be sorted by source, got %v", pairs)
	}
}
