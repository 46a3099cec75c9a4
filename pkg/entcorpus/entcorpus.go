package entcorpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/entcorpus/pkg/entcorpus/corpus"
	"github.com/cognicore/entcorpus/pkg/entcorpus/ingest"
	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
	"github.com/cognicore/entcorpus/pkg/entcorpus/redirect"
	"github.com/cognicore/entcorpus/pkg/entcorpus/store"
)

// exampleWidth caps the length of echoed example lines.
const exampleWidth = 400

// Source yields dump articles until io.EOF. Errors wrapping
// internalerr.ErrMalformedRecord skip one record; any other error ends the
// run.
type Source interface {
	Next() (ingest.Article, error)
}

// Generator is the corpus generation facade
type Generator struct {
	pipeline      *ingest.Pipeline
	writer        *corpus.Writer
	workers       int
	progressEvery int
	exampleLines  int
	logf          func(format string, args ...any)
}

// Options configures a Generator
type Options struct {
	Pipeline      *ingest.Pipeline
	Writer        *corpus.Writer
	Workers       int
	ProgressEvery int // log every N written lines, 0 disables
	ExampleLines  int // echo the first N lines
	Logf          func(format string, args ...any)
}

// Stats summarizes a run
type Stats struct {
	Processed  int64 // lines written
	Malformed  int64 // records skipped as malformed
	Corrupted  int64 // articles skipped for marker corruption
	Anchors    int64
	Mentions   int64
	Unresolved int64 // links dropped for lack of a redirect target
}

// New creates a Generator with the given dependencies
func New(opts Options) *Generator {
	g := &Generator{
		pipeline:      opts.Pipeline,
		writer:        opts.Writer,
		workers:       opts.Workers,
		progressEvery: opts.ProgressEvery,
		exampleLines:  opts.ExampleLines,
		logf:          opts.Logf,
	}
	if g.workers < 1 {
		g.workers = 1
	}
	if g.logf == nil {
		g.logf = log.Printf
	}
	return g
}

type job struct {
	seq     int64
	article ingest.Article
}

type result struct {
	seq   int64
	title string
	doc   ingest.ProcessedDoc
	err   error
}

// Run streams src through the pipeline and writes one corpus line per
// article in input order. Malformed records and articles with corrupted
// markers are skipped with a warning; a strategy failure, a read error or a
// write error aborts the run.
func (g *Generator) Run(ctx context.Context, src Source) (Stats, error) {
	var stats Stats

	grp, ctx := errgroup.WithContext(ctx)
	jobs := make(chan job, 4*g.workers)
	results := make(chan result, 4*g.workers)

	// Read
	var malformed int64
	grp.Go(func() error {
		defer close(jobs)
		var seq int64
		for {
			a, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, internalerr.ErrMalformedRecord) {
				malformed++
				g.logf("Warning: skipping record: %v", err)
				continue
			}
			if err != nil {
				return fmt.Errorf("read dump: %w", err)
			}

			select {
			case jobs <- job{seq: seq, article: a}:
				seq++
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	// Process
	workers, wctx := errgroup.WithContext(ctx)
	for i := 0; i < g.workers; i++ {
		workers.Go(func() error {
			for j := range jobs {
				doc, err := g.pipeline.Process(j.article)
				select {
				case results <- result{seq: j.seq, title: j.article.Title, doc: doc, err: err}:
				case <-wctx.Done():
					return wctx.Err()
				}
			}
			return nil
		})
	}
	grp.Go(func() error {
		defer close(results)
		return workers.Wait()
	})

	// Write, restoring input order
	grp.Go(func() error {
		pending := make(map[int64]result)
		var next int64
		for r := range results {
			pending[r.seq] = r
			for {
				r, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if err := g.emit(r, &stats); err != nil {
					return err
				}
			}
		}
		return nil
	})

	err := grp.Wait()
	stats.Malformed += malformed
	if err != nil {
		return stats, err
	}

	if err := g.writer.Flush(); err != nil {
		return stats, fmt.Errorf("flush corpus: %w", err)
	}
	if g.progressEvery <= 0 || stats.Processed == 0 || stats.Processed%int64(g.progressEvery) != 0 {
		g.logf("processed: %d", stats.Processed)
	}
	return stats, nil
}

func (g *Generator) emit(r result, stats *Stats) error {
	switch {
	case r.err == nil:
	case errors.Is(r.err, internalerr.ErrMalformedRecord):
		stats.Malformed++
		g.logf("Warning: skipping %q: %v", r.title, r.err)
		return nil
	case errors.Is(r.err, internalerr.ErrMarkerCorruption):
		stats.Corrupted++
		g.logf("Warning: skipping %q: %v", r.title, r.err)
		return nil
	default:
		return fmt.Errorf("article %q: %w", r.title, r.err)
	}

	line := g.writer.Framing().Format(r.doc.Tokens)
	if err := g.writer.WriteLine(line); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}

	stats.Processed++
	stats.Anchors += int64(r.doc.Anchors)
	stats.Mentions += int64(r.doc.Mentions)
	stats.Unresolved += int64(r.doc.Unresolved)

	if stats.Processed <= int64(g.exampleLines) {
		g.logf("example: %s", truncate(line, exampleWidth))
	}
	if g.progressEvery > 0 && stats.Processed%int64(g.progressEvery) == 0 {
		g.logf("processed: %d", stats.Processed)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// RunRecorded wraps Run with start and finish entries in the run ledger.
// run.ID and run.StartedAt are filled in when empty.
func (g *Generator) RunRecorded(ctx context.Context, st store.Store, ids *store.IDs, run store.Run, src Source) (Stats, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.ID == "" {
		run.ID = ids.Next(run.StartedAt)
	}
	if err := st.StartRun(ctx, run); err != nil {
		return Stats{}, fmt.Errorf("record run: %w", err)
	}

	stats, runErr := g.Run(ctx, src)

	run.FinishedAt = time.Now()
	run.Processed = stats.Processed
	run.Malformed = stats.Malformed
	run.Corrupted = stats.Corrupted
	run.Unresolved = stats.Unresolved
	run.Mentions = stats.Mentions
	run.Status = store.RunFinished
	if runErr != nil {
		run.Status = store.RunFailed
		run.Error = runErr.Error()
	}

	// The ledger entry is closed even when ctx was cancelled.
	if err := st.FinishRun(context.WithoutCancel(ctx), run); err != nil && runErr == nil {
		return stats, fmt.Errorf("record run: %w", err)
	}
	return stats, runErr
}

// BuildRedirects scans src once and collects every article title and its
// main-namespace redirects.
func BuildRedirects(ctx context.Context, src Source) (*redirect.Table, error) {
	b := redirect.NewBuilder()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, internalerr.ErrMalformedRecord) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read dump: %w", err)
		}
		b.AddArticle(a.Title, a.Redirects)
	}
	return b.Table(), nil
}

// OpenFunc opens a fresh pass over the dump.
type OpenFunc func() (Source, io.Closer, error)

// LoadRedirects returns the redirect table for dump. A snapshot in st is
// used when present; otherwise the table is built from a pass over the
// dump and saved to st. st may be nil.
func LoadRedirects(ctx context.Context, st store.Store, dump string, open OpenFunc, logf func(format string, args ...any)) (*redirect.Table, error) {
	if logf == nil {
		logf = log.Printf
	}

	if st != nil {
		pairs, err := st.LoadRedirects(ctx, dump)
		if err == nil {
			logf("loaded %d redirects from snapshot", len(pairs))
			return redirect.FromPairs(pairs), nil
		}
		if !errors.Is(err, internalerr.ErrNotFound) {
			return nil, fmt.Errorf("load redirect snapshot: %w", err)
		}
	}

	logf("loading redirect information")
	src, closer, err := open()
	if err != nil {
		return nil, err
	}
	table, err := BuildRedirects(ctx, src)
	closer.Close()
	if err != nil {
		return nil, err
	}
	logf("loaded %d redirects", table.Len())

	if st != nil {
		if err := st.SaveRedirects(ctx, dump, table.Pairs()); err != nil {
			return nil, fmt.Errorf("save redirect snapshot: %w", err)
		}
	}
	return table, nil
}
