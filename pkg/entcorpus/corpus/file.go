package corpus

import (
	"io"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
)

// Create opens the corpus output. "-" is stdout; a .gz or .bz2 extension
// selects compression.
func Create(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	switch filepath.Ext(path) {
	case ".gz":
		return &stackedWriter{WriteCloser: gzip.NewWriter(f), file: f}, nil
	case ".bz2":
		zw, err := bzip2.NewWriter(f, &bzip2.WriterConfig{Level: bzip2.BestCompression})
		if err != nil {
			f.Close()
			return nil, err
		}
		return &stackedWriter{WriteCloser: zw, file: f}, nil
	default:
		return f, nil
	}
}

// stackedWriter closes the compressor before the file under it.
type stackedWriter struct {
	io.WriteCloser
	file *os.File
}

func (s *stackedWriter) Close() error {
	if err := s.WriteCloser.Close(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
