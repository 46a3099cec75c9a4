package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
)

// MeCab clamps --input-buffer-size to this.
const mecabMaxBuffer = 8192 * 640

// eosSentinel ends the output of one input line. It is built from the
// placeholder delimiters, which annotate.Sanitize strips from article text,
// so no fragment can produce it.
const eosSentinel = "\uE000EOS\uE001"

// MeCabOptions configures the external morphological analyzer.
type MeCabOptions struct {
	Bin        string // executable, default "mecab"
	Dic        string // system dictionary directory (-d)
	UserDic    string // user dictionary (-u)
	ExtraArg   string // additional arguments, split on spaces
	BufferSize int    // --input-buffer-size in bytes, default 1 MiB
}

// MeCabSegmenter feeds fragments to a long-running mecab process. Each
// morpheme comes back on its own line and every input line is closed by
// eosSentinel. MeCab cuts lines longer than its input buffer and emits one
// EOS per piece, so fragments are sent in chunks of at most half the
// buffer. Calls are serialized.
type MeCabSegmenter struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	chunk  int
}

// NewMeCabSegmenter starts the analyzer process.
func NewMeCabSegmenter(opts MeCabOptions) (*MeCabSegmenter, error) {
	bin := opts.Bin
	if bin == "" {
		bin = "mecab"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStrategyFailure, err)
	}

	buffer := opts.BufferSize
	if buffer <= 0 {
		buffer = 1 << 20
	}
	if buffer > mecabMaxBuffer {
		buffer = mecabMaxBuffer
	}
	if buffer < 8 {
		return nil, fmt.Errorf("%w: mecab buffer of %d bytes is too small", internalerr.ErrInvalidConfig, buffer)
	}

	args := []string{
		`--node-format=%m\n`,
		`--unk-format=%m\n`,
		`--eos-format=` + eosSentinel + `\n`,
		"--input-buffer-size=" + strconv.Itoa(buffer),
	}
	if opts.Dic != "" {
		args = append(args, "-d", opts.Dic)
	}
	if opts.UserDic != "" {
		args = append(args, "-u", opts.UserDic)
	}
	args = append(args, strings.Fields(opts.ExtraArg)...)

	cmd := exec.Command(path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: mecab stdin: %w", internalerr.ErrStrategyFailure, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: mecab stdout: %w", internalerr.ErrStrategyFailure, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start mecab: %w", internalerr.ErrStrategyFailure, err)
	}

	return &MeCabSegmenter{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		chunk:  buffer / 2,
	}, nil
}

func newMeCabSegmenter(opts Options) (Segmenter, error) {
	buffer := 0
	if v := opts.Get("buffer", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: mecab buffer %q: %w", internalerr.ErrInvalidConfig, v, err)
		}
		buffer = n
	}
	return NewMeCabSegmenter(MeCabOptions{
		Bin:        opts.Get("bin", ""),
		Dic:        opts.Get("dic", ""),
		UserDic:    opts.Get("udic", ""),
		ExtraArg:   opts.Get("args", ""),
		BufferSize: buffer,
	})
}

// Segment implements Segmenter.
func (m *MeCabSegmenter) Segment(fragment string) ([]string, error) {
	line := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, fragment)
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var tokens []string
	for _, chunk := range chunkLine(strings.TrimSpace(line), m.chunk) {
		// One chunk in flight at a time, so mecab never blocks on a full
		// stdout pipe while we are still writing.
		if _, err := io.WriteString(m.stdin, chunk+"\n"); err != nil {
			return nil, fmt.Errorf("write to mecab: %w", err)
		}
		var err error
		if tokens, err = m.readSentence(tokens); err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

// readSentence appends morphemes up to the next sentinel line.
func (m *MeCabSegmenter) readSentence(tokens []string) ([]string, error) {
	for {
		out, err := m.stdout.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read from mecab: %w", err)
		}
		out = strings.TrimRight(out, "\r\n")
		if out == eosSentinel {
			return tokens, nil
		}
		tokens = append(tokens, strings.Fields(out)...)
	}
}

// chunkLine cuts line into pieces of at most limit bytes, preferring the
// last whitespace before the limit and otherwise a rune boundary.
func chunkLine(line string, limit int) []string {
	var chunks []string
	for len(line) > limit {
		cut := strings.LastIndexFunc(line[:limit+1], unicode.IsSpace)
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				// a single rune wider than limit
				_, cut = utf8.DecodeRuneInString(line)
			}
		}
		chunks = append(chunks, strings.TrimRightFunc(line[:cut], unicode.IsSpace))
		line = strings.TrimLeftFunc(line[cut:], unicode.IsSpace)
	}
	if line != "" {
		chunks = append(chunks, line)
	}
	return chunks
}

// Close stops the analyzer process.
func (m *MeCabSegmenter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.stdin.Close(); err != nil {
		return err
	}
	return m.cmd.Wait()
}
