package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"

	// Registers the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// RecordSource yields evaluation records in order. pkg.FileSpill satisfies it.
type RecordSource interface {
	Range(fn func(index uint64, item m.EvaluationRecord) error) error
}

// SessionStore persists campaign history in a SQLite file.
type SessionStore interface {
	// SaveRecords appends every record of source under the session name.
	SaveRecords(ctx context.Context, path m.Path, session string, source RecordSource) (int, error)

	// LoadRecords returns the records of one session in insertion order.
	LoadRecords(ctx context.Context, path m.Path, session string) ([]m.EvaluationRecord, error)

	// Sessions lists stored session names, oldest first.
	Sessions(ctx context.Context, path m.Path) ([]string, error)

	// MutatorSummary aggregates a session's records per mutator.
	MutatorSummary(ctx context.Context, path m.Path, session string) ([]m.MutatorSummary, error)
}

const sqliteDriver = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session      TEXT    NOT NULL,
	test_case    TEXT    NOT NULL,
	parent       TEXT    NOT NULL DEFAULT '',
	seed         TEXT    NOT NULL DEFAULT '',
	mutator      TEXT    NOT NULL,
	depth        INTEGER NOT NULL DEFAULT 0,
	outcome      TEXT    NOT NULL,
	corpus       TEXT    NOT NULL DEFAULT '',
	score        REAL    NOT NULL DEFAULT 0,
	reason       TEXT    NOT NULL DEFAULT '',
	bucket       TEXT    NOT NULL DEFAULT '',
	features     TEXT    NOT NULL DEFAULT '',
	runtime_ns   INTEGER NOT NULL DEFAULT 0,
	timestamp_ns INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS evaluations_session ON evaluations(session);
`

const insertRecord = `INSERT INTO evaluations
	(session, test_case, parent, seed, mutator, depth, outcome, corpus, score, reason, bucket, features, runtime_ns, timestamp_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectRecords = `SELECT test_case, parent, seed, mutator, depth, outcome, corpus, score, reason, bucket, features, runtime_ns, timestamp_ns
	FROM evaluations WHERE session = ? ORDER BY id`

const selectSessions = `SELECT session FROM evaluations GROUP BY session ORDER BY MIN(id)`

const selectMutatorSummary = `SELECT mutator,
	COUNT(*),
	SUM(outcome = 'BUG'),
	SUM(outcome = 'IMPROVED'),
	SUM(outcome = 'FAILURE'),
	SUM(outcome = 'TIMEOUT'),
	AVG(score),
	MAX(score)
	FROM evaluations WHERE session = ? GROUP BY mutator ORDER BY mutator`

// SQLiteSessionStore is the SessionStore backed by modernc.org/sqlite.
type SQLiteSessionStore struct{}

// NewSQLiteSessionStore constructs a SQLiteSessionStore.
func NewSQLiteSessionStore() *SQLiteSessionStore {
	return &SQLiteSessionStore{}
}

func (s *SQLiteSessionStore) open(ctx context.Context, path m.Path) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open(sqliteDriver, string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

func closeDB(db *sql.DB, path m.Path) {
	if err := db.Close(); err != nil {
		slog.Error("Failed to close session store", "path", path, "error", err)
	}
}

// SaveRecords inserts every record in one transaction.
func (s *SQLiteSessionStore) SaveRecords(ctx context.Context, path m.Path, session string, source RecordSource) (int, error) {
	db, err := s.open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer closeDB(db, path)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}

	count := 0
	err = source.Range(func(_ uint64, r m.EvaluationRecord) error {
		_, err := stmt.ExecContext(ctx, session, r.TestCase, r.Parent, r.Seed, r.Mutator, r.MutationDepth,
			r.Outcome, r.Corpus, r.Score, r.Reason, r.Bucket, joinFeatures(r.Features),
			int64(r.Runtime), r.Timestamp.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", r.TestCase, err)
		}

		count++

		return nil
	})

	_ = stmt.Close()

	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit records: %w", err)
	}

	slog.Debug("Saved evaluation records", "path", path, "session", session, "count", count)

	return count, nil
}

// LoadRecords reads the records of session back.
func (s *SQLiteSessionStore) LoadRecords(ctx context.Context, path m.Path, session string) ([]m.EvaluationRecord, error) {
	db, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closeDB(db, path)

	rows, err := db.QueryContext(ctx, selectRecords, session)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []m.EvaluationRecord

	for rows.Next() {
		var (
			r           m.EvaluationRecord
			features    string
			runtimeNS   int64
			timestampNS int64
		)

		if err := rows.Scan(&r.TestCase, &r.Parent, &r.Seed, &r.Mutator, &r.MutationDepth, &r.Outcome,
			&r.Corpus, &r.Score, &r.Reason, &r.Bucket, &features, &runtimeNS, &timestampNS); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		r.Features, err = splitFeatures(features)
		if err != nil {
			return nil, err
		}

		r.Runtime = time.Duration(runtimeNS)
		r.Timestamp = time.Unix(0, timestampNS).UTC()
		records = append(records, r)
	}

	return records, rows.Err()
}

// Sessions lists the distinct session names in the store.
func (s *SQLiteSessionStore) Sessions(ctx context.Context, path m.Path) ([]string, error) {
	db, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closeDB(db, path)

	rows, err := db.QueryContext(ctx, selectSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		sessions = append(sessions, name)
	}

	return sessions, rows.Err()
}

// MutatorSummary groups a session's records by mutator.
func (s *SQLiteSessionStore) MutatorSummary(ctx context.Context, path m.Path, session string) ([]m.MutatorSummary, error) {
	db, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closeDB(db, path)

	rows, err := db.QueryContext(ctx, selectMutatorSummary, session)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutator summary: %w", err)
	}
	defer rows.Close()

	var out []m.MutatorSummary

	for rows.Next() {
		var sum m.MutatorSummary
		if err := rows.Scan(&sum.Mutator, &sum.Evaluated, &sum.Bugs, &sum.Improved, &sum.Failures,
			&sum.Timeouts, &sum.MeanScore, &sum.MaxScore); err != nil {
			return nil, fmt.Errorf("failed to scan mutator summary: %w", err)
		}

		out = append(out, sum)
	}

	return out, rows.Err()
}

func joinFeatures(features []int) string {
	parts := make([]string, len(features))
	for i, f := range features {
		parts[i] = strconv.Itoa(f)
	}

	return strings.Join(parts, ",")
}

func splitFeatures(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))

	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid feature list %q: %w", raw, err)
		}

		out = append(out, n)
	}

	return out, nil
}
