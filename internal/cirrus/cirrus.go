package cirrus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"

	"github.com/cognicore/entcorpus/pkg/entcorpus/ingest"
	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
	"github.com/cognicore/entcorpus/pkg/entcorpus/redirect"
)

// Record is one content line of a CirrusSearch dump. Index lines carry no
// title and are skipped.
type Record struct {
	Title      string     `json:"title"`
	Text       *string    `json:"text"`
	SourceText *string    `json:"source_text"`
	Redirect   []Redirect `json:"redirect"`
}

// Redirect is an entry of a record's redirect list
type Redirect struct {
	Namespace int    `json:"namespace"`
	Title     string `json:"title"`
}

// Article converts the record, reporting missing body fields.
func (r Record) Article() (ingest.Article, error) {
	if r.Text == nil || r.SourceText == nil {
		return ingest.Article{}, fmt.Errorf("%w: %q lacks text or source_text",
			internalerr.ErrMalformedRecord, r.Title)
	}
	a := ingest.Article{
		Title:      r.Title,
		Text:       *r.Text,
		SourceText: *r.SourceText,
	}
	for _, rd := range r.Redirect {
		a.Redirects = append(a.Redirects, redirect.Source{Namespace: rd.Namespace, Title: rd.Title})
	}
	return a, nil
}

// Reader streams articles from JSON lines
type Reader struct {
	r    *bufio.Reader
	line int64
}

// NewReader creates a reader over uncompressed JSON lines.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 1<<20)}
}

// Next returns the next article. Records that cannot be decoded yield an
// error wrapping ErrMalformedRecord; reading may continue after it. At the
// end of input Next returns io.EOF.
func (r *Reader) Next() (ingest.Article, error) {
	for {
		line, err := r.r.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return ingest.Article{}, err
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return ingest.Article{}, err
		}
		r.line++

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return ingest.Article{}, fmt.Errorf("%w: line %d: %v", internalerr.ErrMalformedRecord, r.line, err)
		}
		if strings.TrimSpace(rec.Title) == "" {
			continue
		}

		a, err := rec.Article()
		if err != nil {
			return ingest.Article{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return a, nil
	}
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int64 {
	return r.line
}

// File is a dump opened from disk
type File struct {
	*Reader
	closers []io.Closer
	size    int64
}

// Open opens a dump, decompressing .gz and .bz2 files. "-" reads standard
// input. wrap, when not nil, is applied to the raw byte stream before
// decompression, e.g. to meter progress.
func Open(path string, wrap func(io.Reader) io.Reader) (*File, error) {
	var (
		raw  io.Reader
		file = &File{size: -1}
	)

	if path == "-" {
		raw = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open dump %s: %w", path, err)
		}
		file.closers = append(file.closers, f)
		if info, err := f.Stat(); err == nil {
			file.size = info.Size()
		}
		raw = f
	}
	if wrap != nil {
		raw = wrap(raw)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(raw)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open dump %s: %w", path, err)
		}
		file.closers = append([]io.Closer{zr}, file.closers...)
		raw = zr
	case strings.HasSuffix(path, ".bz2"):
		zr, err := bzip2.NewReader(raw, &bzip2.ReaderConfig{})
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open dump %s: %w", path, err)
		}
		file.closers = append([]io.Closer{zr}, file.closers...)
		raw = zr
	}

	file.Reader = NewReader(raw)
	return file, nil
}

// Size returns the on-disk size of the dump, or -1 when unknown.
func (f *File) Size() int64 {
	return f.size
}

// Close closes the decompressor and the underlying file.
func (f *File) Close() error {
	var first error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	f.closers = nil
	return first
}
