package corpus

import (
	"bufio"
	"io"

	"github.com/cognicore/entcorpus/pkg/entcorpus/ingest"
)

// Writer emits one line per article. An article without tokens still gets
// an (empty) line, so line n of the corpus is always article n of the
// processed stream.
type Writer struct {
	w       *bufio.Writer
	framing Framing
	lines   int64
}

// NewWriter creates a corpus writer on w.
func NewWriter(w io.Writer, framing Framing) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 1<<20), framing: framing}
}

// Write appends the line for one article.
func (w *Writer) Write(tokens []ingest.Token) error {
	return w.WriteLine(w.framing.Format(tokens))
}

// WriteLine appends an already formatted line.
func (w *Writer) WriteLine(line string) error {
	if _, err := w.w.WriteString(line); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.lines++
	return nil
}

// Lines returns the number of lines written.
func (w *Writer) Lines() int64 {
	return w.lines
}

// Framing returns the entity framing in use.
func (w *Writer) Framing() Framing {
	return w.framing
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
