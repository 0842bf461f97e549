package notes

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go driver, registered as "sqlite"

	"jarvis/internal/logging"
)

// Driver names accepted by OpenSQLite.
const (
	DriverModernc = "sqlite"
	DriverCgo     = "sqlite3"
)

// SQLiteStore persists notes in a single SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the notes database at path.
// driver selects the registered database/sql driver; empty uses DriverModernc.
func OpenSQLite(path, driver string) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryNotes, "OpenSQLite")
	defer timer.Stop()

	if driver == "" {
		driver = DriverModernc
	}
	logging.Notes("Opening notes database at %s (driver=%s)", path, driver)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		logging.NotesError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategoryNotes).Debug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Get(logging.CategoryNotes).Debug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &SQLiteStore{db: db, path: path, now: time.Now}
	if err := s.initialize(); err != nil {
		logging.NotesError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the notes table.
func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'ideas',
		priority INTEGER NOT NULL DEFAULT 2,
		tags TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create notes table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, n Note) (Note, error) {
	n, err := prepare(n)
	if err != nil {
		return Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n.CreatedAt = s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (text, category, priority, tags, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.Text, n.Category, n.Priority, strings.Join(n.Tags, ","), n.CreatedAt.UnixNano())
	if err != nil {
		return Note{}, fmt.Errorf("failed to save note: %w", err)
	}
	if n.ID, err = res.LastInsertId(); err != nil {
		return Note{}, fmt.Errorf("failed to read note id: %w", err)
	}
	logging.Notes("Saved note %d (%d chars)", n.ID, len(n.Text))
	return n, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Note, error) {
	query := `SELECT id, text, category, priority, tags, created_at FROM notes ORDER BY id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

func (s *SQLiteStore) Search(ctx context.Context, keyword string) ([]Note, error) {
	key := searchKey(keyword)
	if key == "" {
		return nil, nil
	}
	// SQLite lower() only folds ASCII, so matching happens here.
	all, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	var out []Note
	for _, n := range all {
		if matches(n, key) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, position int) (Note, error) {
	if position < 1 {
		return Note{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.query(ctx,
		`SELECT id, text, category, priority, tags, created_at FROM notes ORDER BY id DESC LIMIT 1 OFFSET ?`,
		position-1)
	if err != nil {
		return Note{}, err
	}
	if len(found) == 0 {
		return Note{}, ErrNotFound
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, found[0].ID); err != nil {
		return Note{}, fmt.Errorf("failed to delete note: %w", err)
	}
	logging.Notes("Deleted note %d", found[0].ID)
	return found[0], nil
}

func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM notes`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear notes: %w", err)
	}
	n, _ := res.RowsAffected()
	logging.Notes("Cleared %d notes", n)
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var (
			n       Note
			tags    string
			created int64
		)
		if err := rows.Scan(&n.ID, &n.Text, &n.Category, &n.Priority, &tags, &created); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if tags != "" {
			n.Tags = strings.Split(tags, ",")
		}
		n.CreatedAt = time.Unix(0, created)
		out = append(out, n)
	}
	return out, rows.Err()
}
