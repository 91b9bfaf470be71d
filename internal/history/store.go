package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cashcue/internal/config"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one confirmed denomination.
type Entry struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	Mode         string    `json:"mode"`
	Source       string    `json:"source,omitempty"`
	Denomination string    `json:"denomination"`
	Support      int       `json:"support"`
	Window       int       `json:"window"`
	Unanimous    bool      `json:"unanimous"`
	Announced    bool      `json:"announced"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}

// Label renders the entry the same way confirmations are displayed.
func (e Entry) Label() string {
	if e.Unanimous {
		return e.Denomination
	}
	return fmt.Sprintf("%s (%d/%d)", e.Denomination, e.Support, e.Window)
}

// ListOptions filters List results.
type ListOptions struct {
	Limit        int
	Denomination string
	Since        time.Time
}

// Store manages confirmation history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under data_dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the database at path and applies migrations.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry and returns it with its assigned ID.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.Denomination) == "" {
		return entry, fmt.Errorf("record confirmation: denomination required")
	}
	if entry.ConfirmedAt.IsZero() {
		entry.ConfirmedAt = time.Now()
	}
	entry.ConfirmedAt = entry.ConfirmedAt.UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO confirmations (
            session_id, mode, source, denomination, support, window_size, unanimous, announced, confirmed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Mode,
		entry.Source,
		entry.Denomination,
		entry.Support,
		entry.Window,
		boolToInt(entry.Unanimous),
		boolToInt(entry.Announced),
		entry.ConfirmedAt.Format(timeLayout),
	)
	if err != nil {
		return entry, fmt.Errorf("insert confirmation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return entry, fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

// List returns confirmations newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)
	if d := strings.TrimSpace(opts.Denomination); d != "" {
		clauses = append(clauses, "denomination = ?")
		args = append(args, d)
	}
	if !opts.Since.IsZero() {
		clauses = append(clauses, "confirmed_at >= ?")
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	query := `SELECT id, session_id, mode, source, denomination, support, window_size, unanimous, announced, confirmed_at
        FROM confirmations`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY confirmed_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query confirmations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			unanimous int
			announced int
			stamp     string
		)
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Mode, &entry.Source, &entry.Denomination,
			&entry.Support, &entry.Window, &unanimous, &announced, &stamp); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		entry.Unanimous = unanimous != 0
		entry.Announced = announced != 0
		if ts, err := time.Parse(timeLayout, stamp); err == nil {
			entry.ConfirmedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmations: %w", err)
	}
	return entries, nil
}

// Counts returns confirmation totals per denomination.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT denomination, COUNT(1) FROM confirmations GROUP BY denomination")
	if err != nil {
		return nil, fmt.Errorf("count confirmations: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var (
			denom string
			n     int
		)
		if err := rows.Scan(&denom, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[denom] = n
	}
	return counts, rows.Err()
}

// Prune deletes confirmations older than cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM confirmations WHERE confirmed_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune confirmations: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
