package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/cuackproxy/cuackproxy/internal/model"
)

// DBFileName is the database file created inside the history directory.
const DBFileName = "history.db"

// ErrDatabaseNotFound is returned by Open when the database does not exist
// and CreateIfNotExists is off.
var ErrDatabaseNotFound = errors.New("history database not found")

// Store persists connect attempts.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and database when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the history database in dir.
func Open(dir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	// The file may hold interface names and exit IPs.
	if err := os.Chmod(dbPath, 0o600); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to restrict database permissions: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		interface TEXT NOT NULL,
		country TEXT NOT NULL,
		mac TEXT NOT NULL DEFAULT '',
		tor_reused INTEGER NOT NULL DEFAULT 0,
		tor_pid INTEGER NOT NULL DEFAULT 0,
		exit_ip TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		steps TEXT NOT NULL DEFAULT '[]',
		error TEXT NOT NULL DEFAULT '',
		cancelled INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_started ON attempts(started_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Record stores a and sets a.ID.
func (s *Store) Record(ctx context.Context, a *model.Attempt) (int64, error) {
	steps, err := json.Marshal(a.PerformedSteps)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize steps: %w", err)
	}

	query := `
	INSERT INTO attempts (started_at, interface, country, mac, tor_reused, tor_pid, exit_ip, location, steps, error, cancelled)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		a.StartedAt.UTC().Format(time.RFC3339Nano),
		a.Interface,
		a.Country,
		a.MAC,
		a.TorReused,
		a.TorPID,
		a.ExitIP,
		a.Location,
		string(steps),
		a.ErrorMessage,
		a.Cancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read attempt id: %w", err)
	}
	a.ID = id
	return id, nil
}

const selectColumns = `id, started_at, interface, country, mac, tor_reused, tor_pid, exit_ip, location, steps, error, cancelled`

// List returns the newest attempts first. A limit of zero or less returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*model.Attempt, error) {
	query := `SELECT ` + selectColumns + ` FROM attempts ORDER BY started_at DESC, id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*model.Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Get returns the attempt with the given id, or nil if there is none.
func (s *Store) Get(ctx context.Context, id int64) (*model.Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM attempts WHERE id = ?`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// Count returns the number of recorded attempts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (*model.Attempt, error) {
	var (
		a         model.Attempt
		startedAt string
		steps     string
	)
	err := row.Scan(
		&a.ID,
		&startedAt,
		&a.Interface,
		&a.Country,
		&a.MAC,
		&a.TorReused,
		&a.TorPID,
		&a.ExitIP,
		&a.Location,
		&steps,
		&a.ErrorMessage,
		&a.Cancelled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan attempt: %w", err)
	}

	a.StartedAt = parseTimestamp(startedAt)
	if err := json.Unmarshal([]byte(steps), &a.PerformedSteps); err != nil {
		a.PerformedSteps = nil
	}
	return &a, nil
}

// timestampFormats are tried in order when reading started_at back.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
