package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/entcorpus/pkg/entcorpus/redirect"
)

// Store persists redirect snapshots and the ledger of corpus runs
type Store interface {
	Close() error

	// Redirect snapshots, keyed by the dump they were built from.
	// SaveRedirects replaces any previous snapshot for the key.
	SaveRedirects(ctx context.Context, dump string, pairs []redirect.Pair) error
	// LoadRedirects returns internalerr.ErrNotFound when no snapshot exists.
	LoadRedirects(ctx context.Context, dump string) ([]redirect.Pair, error)

	// Run ledger
	StartRun(ctx context.Context, r Run) error
	FinishRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// RunStatus is the state of a ledger entry
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// Run is one corpus build
type Run struct {
	ID         string
	Input      string
	Output     string
	Tokenizer  string
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time

	Processed  int64
	Malformed  int64
	Corrupted  int64
	Unresolved int64
	Mentions   int64
}

// IDs hands out monotonically increasing run IDs.
type IDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDs creates a run ID generator.
func NewIDs() *IDs {
	return &IDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a new ID for a run started at t.
func (g *IDs) Next(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}
