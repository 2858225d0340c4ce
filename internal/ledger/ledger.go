package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/giantswarm/k8sproject/internal/fileutil"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

// lockRetryInterval is the interval between attempts to acquire the ledger
// file lock.
const lockRetryInterval = 50 * time.Millisecond

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	name       TEXT    NOT NULL,
	server     TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	pid        INTEGER NOT NULL,
	run_id     TEXT    NOT NULL,
	PRIMARY KEY (name, server)
)`

// Entry is one created project.
type Entry struct {
	Name      string    `json:"name"`
	Server    string    `json:"server"`
	CreatedAt time.Time `json:"createdAt"`
	PID       int       `json:"pid"`
	RunID     string    `json:"runId"`
}

// Ledger is a handle to the on-disk project ledger. It is safe for
// concurrent use.
type Ledger struct {
	db       *sql.DB
	path     string
	lockPath string
	log      *slog.Logger
}

// Open opens (creating if necessary) the ledger database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("open ledger: path must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db, path: path, lockPath: path + ".lock", log: logger}

	err = l.withLock(ctx, func() error {
		_, execErr := db.ExecContext(ctx, schema)
		return execErr
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return l, nil
}

// sqliteDSN renders path as a file: URI with the path percent-escaped, so
// '?' and '#' in the path are not read as URI delimiters.
func sqliteDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := url.URL{
		Scheme:   "file",
		Path:     slashed,
		RawQuery: "_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)",
	}
	return u.String(), nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Record inserts or replaces the entry for (e.Name, e.Server).
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.Name == "" || e.Server == "" {
		return fmt.Errorf("record project: name and server must not be empty")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	err := l.withLock(ctx, func() error {
		_, execErr := l.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO projects (name, server, created_at, pid, run_id) VALUES (?, ?, ?, ?, ?)`,
			e.Name, e.Server, e.CreatedAt.UnixNano(), e.PID, e.RunID)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("record project %s: %w", e.Name, err)
	}
	l.log.Debug("recorded project", "namespace", e.Name, "server", e.Server)
	return nil
}

// Remove deletes the entry for (name, server). Removing an absent entry is
// not an error.
func (l *Ledger) Remove(ctx context.Context, name, server string) error {
	err := l.withLock(ctx, func() error {
		_, execErr := l.db.ExecContext(ctx,
			`DELETE FROM projects WHERE name = ? AND server = ?`, name, server)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("remove project %s: %w", name, err)
	}
	return nil
}

// List returns the entries created before cutoff, oldest first. A zero
// cutoff returns every entry.
func (l *Ledger) List(ctx context.Context, cutoff time.Time) ([]Entry, error) {
	query := `SELECT name, server, created_at, pid, run_id FROM projects`
	var args []any
	if !cutoff.IsZero() {
		query += ` WHERE created_at < ?`
		args = append(args, cutoff.UnixNano())
	}
	query += ` ORDER BY created_at, name`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.Name, &e.Server, &created, &e.PID, &e.RunID); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

// withLock runs fn while holding the cross-process ledger lock.
func (l *Ledger) withLock(ctx context.Context, fn func() error) error {
	fl := flock.New(l.lockPath)

	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquiring ledger lock %s: %w", l.lockPath, err)
	}
	if !locked {
		if ctx.Err() != nil {
			return fmt.Errorf("acquiring ledger lock %s: %w", l.lockPath, ctx.Err())
		}
		return fmt.Errorf("acquiring ledger lock %s: lock not acquired", l.lockPath)
	}
	defer func() {
		// The lock file stays on disk; removing it could invalidate a lock
		// another process acquired in the meantime.
		if closeErr := fl.Close(); closeErr != nil {
			l.log.Debug("failed to release ledger lock", "path", l.lockPath, "err", closeErr)
		}
	}()

	return fn()
}
