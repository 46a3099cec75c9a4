package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
	"github.com/cognicore/entcorpus/pkg/entcorpus/redirect"
	"github.com/cognicore/entcorpus/pkg/entcorpus/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS redirects (
	dump TEXT NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	PRIMARY KEY(dump, source)
);

CREATE TABLE IF NOT EXISTS redirect_snapshots (
	dump TEXT PRIMARY KEY,
	pairs INTEGER NOT NULL,
	saved_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	input TEXT,
	output TEXT,
	tokenizer TEXT,
	status TEXT NOT NULL,
	error TEXT,
	started_at TEXT,
	finished_at TEXT,
	processed INTEGER DEFAULT 0,
	malformed INTEGER DEFAULT 0,
	corrupted INTEGER DEFAULT 0,
	unresolved INTEGER DEFAULT 0,
	mentions INTEGER DEFAULT 0
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRedirects replaces the snapshot for dump in one transaction
func (s *sqliteStore) SaveRedirects(ctx context.Context, dump string, pairs []redirect.Pair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM redirects WHERE dump=?`, dump); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO redirects (dump, source, target) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range pairs {
		if p.Source == "" || p.Target == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, dump, p.Source, p.Target); err != nil {
			return err
		}
	}

	const upsert = `
INSERT INTO redirect_snapshots (dump, pairs, saved_at)
VALUES (?, ?, ?)
ON CONFLICT(dump) DO UPDATE SET
	pairs=excluded.pairs,
	saved_at=excluded.saved_at;
`
	if _, err := tx.ExecContext(ctx, upsert, dump, len(pairs), formatTime(time.Now())); err != nil {
		return err
	}

	return tx.Commit()
}

// LoadRedirects returns the snapshot for dump ordered by source
func (s *sqliteStore) LoadRedirects(ctx context.Context, dump string) ([]redirect.Pair, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT pairs FROM redirect_snapshots WHERE dump = ?`, dump).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: redirect snapshot for %s", internalerr.ErrNotFound, dump)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source, target FROM redirects WHERE dump = ? ORDER BY source`, dump)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := make([]redirect.Pair, 0, n)
	for rows.Next() {
		var p redirect.Pair
		if err := rows.Scan(&p.Source, &p.Target); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// StartRun inserts a new ledger entry in the running state
func (s *sqliteStore) StartRun(ctx context.Context, r store.Run) error {
	const stmt = `
INSERT INTO runs (id, input, output, tokenizer, status, started_at)
VALUES (?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, stmt,
		r.ID, r.Input, r.Output, r.Tokenizer, string(store.RunRunning), formatTime(r.StartedAt))
	return err
}

// FinishRun records the outcome and counters of a run
func (s *sqliteStore) FinishRun(ctx context.Context, r store.Run) error {
	const stmt = `
UPDATE runs SET
	status=?, error=?, finished_at=?,
	processed=?, malformed=?, corrupted=?, unresolved=?, mentions=?
WHERE id=?;
`
	res, err := s.db.ExecContext(ctx, stmt,
		string(r.Status), r.Error, formatTime(r.FinishedAt),
		r.Processed, r.Malformed, r.Corrupted, r.Unresolved, r.Mentions,
		r.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: run %s", internalerr.ErrNotFound, r.ID)
	}
	return nil
}

const runColumns = `id, input, output, tokenizer, status, error, started_at, finished_at,
	processed, malformed, corrupted, unresolved, mentions`

// GetRun retrieves a ledger entry by ID
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("%w: run %s", internalerr.ErrNotFound, id)
	}
	return r, err
}

// ListRuns returns the most recent runs first
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (store.Run, error) {
	var (
		r                           store.Run
		status                      string
		input, output, tok, errText sql.NullString
		started, finished           sql.NullString
	)
	err := row.Scan(&r.ID, &input, &output, &tok, &status, &errText, &started, &finished,
		&r.Processed, &r.Malformed, &r.Corrupted, &r.Unresolved, &r.Mentions)
	if err != nil {
		return store.Run{}, err
	}
	r.Input = input.String
	r.Output = output.String
	r.Tokenizer = tok.String
	r.Status = store.RunStatus(status)
	r.Error = errText.String
	r.StartedAt = parseTime(started.String)
	r.FinishedAt = parseTime(finished.String)
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
