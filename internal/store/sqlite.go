package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// SQLiteStore keeps the latest entry per kind in a local SQLite file.
type SQLiteStore struct {
	readDB  *sql.DB
	writeDB *sql.DB
	log     zerolog.Logger
}

// OpenSQLite opens (creating if needed) the cache database at dbPath.
func OpenSQLite(dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	s := &SQLiteStore{
		readDB:  readDB,
		writeDB: writeDB,
		log:     log.With().Str("component", "sqlite_cache").Logger(),
	}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			kind       TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			fetched_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Close closes both database handles.
func (s *SQLiteStore) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	return errors.Join(errs...)
}

// Put replaces the stored entry for entry.Kind.
func (s *SQLiteStore) Put(ctx context.Context, entry dashboard.Entry) error {
	data, err := Encode(entry)
	if err != nil {
		return err
	}
	_, err = s.writeDB.ExecContext(ctx, `
		INSERT INTO cache_entries (kind, payload, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, string(entry.Kind), data, entry.FetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting %s: %w", entry.Kind, err)
	}
	return nil
}

// Get returns the stored entry for kind. Rows that cannot be decoded are reported as
// absent.
func (s *SQLiteStore) Get(ctx context.Context, kind dashboard.Kind) (dashboard.Entry, error) {
	var data []byte
	err := s.readDB.QueryRowContext(ctx,
		`SELECT payload FROM cache_entries WHERE kind = ?`, string(kind)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return dashboard.Entry{}, dashboard.ErrNotCached
	}
	if err != nil {
		return dashboard.Entry{}, fmt.Errorf("reading %s: %w", kind, err)
	}

	entry, err := Decode(kind, data)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Msg("discarding unreadable cache entry")
		return dashboard.Entry{}, dashboard.ErrNotCached
	}
	return entry, nil
}

// Stat describes one stored row.
type Stat struct {
	Kind      dashboard.Kind
	FetchedAt time.Time
	Bytes     int
}

// Stats lists what is stored, ordered by kind.
func (s *SQLiteStore) Stats(ctx context.Context) ([]Stat, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT kind, fetched_at, length(payload) FROM cache_entries ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("querying cache stats: %w", err)
	}
	defer rows.Close()

	var out []Stat
	for rows.Next() {
		var (
			st   Stat
			kind string
		)
		if err := rows.Scan(&kind, &st.FetchedAt, &st.Bytes); err != nil {
			return nil, err
		}
		st.Kind = dashboard.Kind(kind)
		out = append(out, st)
	}
	return out, rows.Err()
}

// Clear removes every stored entry.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.writeDB.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}
