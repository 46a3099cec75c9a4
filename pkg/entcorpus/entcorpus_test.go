package entcorpus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/cognicore/entcorpus/pkg/entcorpus/corpus"
	"github.com/cognicore/entcorpus/pkg/entcorpus/ingest"
	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
	"github.com/cognicore/entcorpus/pkg/entcorpus/redirect"
	"github.com/cognicore/entcorpus/pkg/entcorpus/store"
	"github.com/cognicore/entcorpus/pkg/entcorpus/store/memstore"
)

type item struct {
	article ingest.Article
	err     error
}

// sliceSource replays a fixed list of articles and errors.
type sliceSource struct {
	items []item
	pos   int
}

func (s *sliceSource) Next() (ingest.Article, error) {
	if s.pos >= len(s.items) {
		return ingest.Article{}, io.EOF
	}
	it := s.items[s.pos]
	s.pos++
	return it.article, it.err
}

func articles(as ...ingest.Article) *sliceSource {
	src := &sliceSource{}
	for _, a := range as {
		src.items = append(src.items, item{article: a})
	}
	return src
}

type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *logRecorder) logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *logRecorder) contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

func newTestGenerator(t *testing.T, seg ingest.Segmenter, resolver *redirect.Table, workers int, out *bytes.Buffer, logs *logRecorder) *Generator {
	t.Helper()
	if seg == nil {
		var err error
		seg, err = ingest.NewRegexpSegmenter("")
		if err != nil {
			t.Fatal(err)
		}
	}
	// A nil *redirect.Table must not become a non-nil redirect.Resolver.
	pipeline := ingest.NewPipeline(ingest.NewTokenizer(seg), nil)
	if resolver != nil {
		pipeline = ingest.NewPipeline(ingest.NewTokenizer(seg), resolver)
	}
	return New(Options{
		Pipeline: pipeline,
		Writer:   corpus.NewWriter(out, corpus.DefaultFraming()),
		Workers:  workers,
		Logf:     logs.logf,
	})
}

func TestRunParisScenario(t *testing.T) {
	var out bytes.Buffer
	logs := &logRecorder{}
	g := newTestGenerator(t, nil, nil, 1, &out, logs)

	stats, err := g.Run(context.Background(), articles(ingest.Article{
		Title:      "Paris (city)",
		Text:       "the city is in France.",
		SourceText: "[[Paris|the city]] is in [[France]].",
	}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := out.String(); got != "[Paris] is in [France] .\n" {
		t.Errorf("Unexpected corpus %q", got)
	}
	if stats.Processed != 1 || stats.Mentions != 2 || stats.Anchors != 3 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestRunKeepsInputOrder(t *testing.T) {
	var out bytes.Buffer
	g := newTestGenerator(t, nil, nil, 4, &out, &logRecorder{})

	const n = 200
	src := &sliceSource{}
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("Article %d", i)
		src.items = append(src.items, item{article: ingest.Article{
			Title:      title,
			Text:       "About " + title + " here.",
			SourceText: "",
		}})
	}

	stats, err := g.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Processed != n {
		t.Fatalf("Expected %d lines, got %d", n, stats.Processed)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	for i, line := range lines {
		want := fmt.Sprintf("About [Article_%d] here .", i)
		if line != want {
			t.Fatalf("Line %d: expected %q, got %q", i, want, line)
		}
	}
}

func TestRunEmptyArticleWritesEmptyLine(t *testing.T) {
	var out bytes.Buffer
	g := newTestGenerator(t, nil, nil, 2, &out, &logRecorder{})

	stats, err := g.Run(context.Background(), articles(
		ingest.Article{Title: "Stub"},
		ingest.Article{Title: "Full", Text: "Full text"},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := out.String(); got != "\n[Full] text\n" {
		t.Errorf("Unexpected corpus %q", got)
	}
	if stats.Processed != 2 {
		t.Errorf("Expected 2 lines, got %d", stats.Processed)
	}
}

func TestRunSkipsMalformedRecords(t *testing.T) {
	var out bytes.Buffer
	logs := &logRecorder{}
	g := newTestGenerator(t, nil, nil, 2, &out, logs)

	src := &sliceSource{items: []item{
		{err: fmt.Errorf("%w: line 1: bad json", internalerr.ErrMalformedRecord)},
		{article: ingest.Article{Title: "  ", Text: "no title"}},
		{article: ingest.Article{Title: "Good", Text: "Good"}},
	}}

	stats, err := g.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Malformed != 2 || stats.Processed != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if out.String() != "[Good]\n" {
		t.Errorf("Unexpected corpus %q", out.String())
	}
	if !logs.contains("Warning: skipping") {
		t.Error("Expected a skip warning")
	}
}

func TestEmitSkipsCorruptedArticle(t *testing.T) {
	var out bytes.Buffer
	logs := &logRecorder{}
	g := newTestGenerator(t, nil, nil, 1, &out, logs)

	var stats Stats
	err := g.emit(result{title: "Broken", err: fmt.Errorf("%w: unterminated placeholder", internalerr.ErrMarkerCorruption)}, &stats)
	if err != nil {
		t.Fatalf("Corruption should not abort: %v", err)
	}
	if stats.Corrupted != 1 || stats.Processed != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if !logs.contains(`"Broken"`) {
		t.Error("Warning should name the article")
	}
}

type failingSegmenter struct{}

func (failingSegmenter) Segment(string) ([]string, error) {
	return nil, errors.New("analyzer crashed")
}

func TestRunStrategyFailureAborts(t *testing.T) {
	var out bytes.Buffer
	g := newTestGenerator(t, failingSegmenter{}, nil, 3, &out, &logRecorder{})

	src := &sliceSource{}
	for i := 0; i < 50; i++ {
		src.items = append(src.items, item{article: ingest.Article{Title: "T", Text: "text"}})
	}

	_, err := g.Run(context.Background(), src)
	if !errors.Is(err, internalerr.ErrStrategyFailure) {
		t.Fatalf("Expected ErrStrategyFailure, got %v", err)
	}
}

func TestRunReadErrorAborts(t *testing.T) {
	var out bytes.Buffer
	g := newTestGenerator(t, nil, nil, 1, &out, &logRecorder{})

	diskErr := errors.New("disk on fire")
	src := &sliceSource{items: []item{
		{article: ingest.Article{Title: "A", Text: "a"}},
		{err: diskErr},
	}}

	if _, err := g.Run(context.Background(), src); !errors.Is(err, diskErr) {
		t.Fatalf("Expected read error, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	var out bytes.Buffer
	g := newTestGenerator(t, nil, nil, 2, &out, &logRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &sliceSource{}
	for i := 0; i < 1000; i++ {
		src.items = append(src.items, item{article: ingest.Article{Title: "T", Text: "text"}})
	}
	if _, err := g.Run(ctx, src); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestRunLogsExamplesAndProgress(t *testing.T) {
	var out bytes.Buffer
	logs := &logRecorder{}
	seg, _ := ingest.NewRegexpSegmenter("")
	g := New(Options{
		Pipeline:      ingest.NewPipeline(ingest.NewTokenizer(seg), nil),
		Writer:        corpus.NewWriter(&out, corpus.DefaultFraming()),
		ProgressEvery: 2,
		ExampleLines:  1,
		Logf:          logs.logf,
	})

	_, err := g.Run(context.Background(), articles(
		ingest.Article{Title: "One", Text: "One"},
		ingest.Article{Title: "Two", Text: "Two"},
		ingest.Article{Title: "Three", Text: "Three"},
	))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"example: [One]", "processed: 2", "processed: 3"}
	if len(logs.lines) != len(want) {
		t.Fatalf("Expected logs %v, got %v", want, logs.lines)
	}
	for i := range want {
		if logs.lines[i] != want[i] {
			t.Errorf("Log %d: expected %q, got %q", i, want[i], logs.lines[i])
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 400); got != "short" {
		t.Errorf("Expected short, got %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Errorf("Expected abc, got %q", got)
	}
	// "é" is two bytes; cutting inside it backs off to the rune start.
	if got := truncate("aé", 2); got != "a" {
		t.Errorf("Expected a, got %q", got)
	}
}

func redirectDump() []ingest.Article {
	return []ingest.Article{
		{
			Title:     "New York City",
			Text:      "New York City is large.",
			Redirects: []redirect.Source{{Namespace: redirect.MainNamespace, Title: "NYC"}, {Namespace: 1, Title: "Talk:NYC"}},
		},
		{
			Title:      "Report",
			Text:       "She lived in NYC and Gotham.",
			SourceText: "She lived in [[NYC]] and [[Gotham]].",
		},
	}
}

func TestBuildRedirects(t *testing.T) {
	table, err := BuildRedirects(context.Background(), articles(redirectDump()...))
	if err != nil {
		t.Fatal(err)
	}
	if target, ok := table.Resolve("NYC"); !ok || target != "New York City" {
		t.Errorf("NYC should resolve to New York City, got %q", target)
	}
	if _, ok := table.Resolve("Talk:NYC"); ok {
		t.Error("Non-article namespaces should be ignored")
	}
	if target, ok := table.Resolve("Report"); !ok || target != "Report" {
		t.Errorf("Titles should resolve to themselves, got %q", target)
	}
}

func TestLoadRedirectsUsesSnapshot(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	opened := 0
	open := func() (Source, io.Closer, error) {
		opened++
		return articles(redirectDump()...), io.NopCloser(nil), nil
	}

	for i := 0; i < 2; i++ {
		table, err := LoadRedirects(ctx, st, "dump.json", open, (&logRecorder{}).logf)
		if err != nil {
			t.Fatalf("LoadRedirects: %v", err)
		}
		if target, _ := table.Resolve("NYC"); target != "New York City" {
			t.Errorf("Pass %d: NYC resolved to %q", i, target)
		}
	}
	if opened != 1 {
		t.Errorf("Dump should be scanned once, scanned %d times", opened)
	}
}

func TestRunRedirectScenario(t *testing.T) {
	table, err := BuildRedirects(context.Background(), articles(redirectDump()...))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	g := newTestGenerator(t, nil, table, 1, &out, &logRecorder{})

	stats, err := g.Run(context.Background(), articles(redirectDump()[1]))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "She lived in [New_York_City] and Gotham .\n" {
		t.Errorf("Unexpected corpus %q", got)
	}
	if stats.Unresolved != 1 {
		t.Errorf("Expected 1 unresolved link, got %d", stats.Unresolved)
	}
}

func TestRunRecorded(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	ids := store.NewIDs()

	var out bytes.Buffer
	g := newTestGenerator(t, nil, nil, 1, &out, &logRecorder{})

	stats, err := g.RunRecorded(ctx, st, ids, store.Run{Input: "dump.json", Output: "out.txt"},
		articles(ingest.Article{Title: "Paris", Text: "Paris"}))
	if err != nil {
		t.Fatal(err)
	}

	runs, err := st.ListRuns(ctx, 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("Expected one run, got %v, %v", runs, err)
	}
	r := runs[0]
	if r.Status != store.RunFinished || r.Processed != stats.Processed || r.Input != "dump.json" {
		t.Errorf("Unexpected ledger entry %+v", r)
	}
	if r.ID == "" || r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		t.Errorf("Run should carry ID and times: %+v", r)
	}
}

func TestRunRecordedFailure(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	var out bytes.Buffer
	g := newTestGenerator(t, failingSegmenter{}, nil, 1, &out, &logRecorder{})

	_, err := g.RunRecorded(ctx, st, store.NewIDs(), store.Run{},
		articles(ingest.Article{Title: "T", Text: "text"}))
	if !errors.Is(err, internalerr.ErrStrategyFailure) {
		t.Fatalf("Expected ErrStrategyFailure, got %v", err)
	}

	runs, _ := st.ListRuns(ctx, 1)
	if len(runs) != 1 || runs[0].Status != store.RunFailed || runs[0].Error == "" {
		t.Errorf("Failed run should be recorded: %+v", runs)
	}
}
