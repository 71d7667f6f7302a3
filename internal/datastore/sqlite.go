package datastore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists session metadata: one row per runtime session,
// identifying when it started and which capture file (if any) holds
// its recorded signal stream.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at
// dbPath and ensures its schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("datastore: open sqlite %s: %w", dbPath, err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	query := `CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		interface TEXT NOT NULL,
		capture_file TEXT,
		software_build TEXT
	)`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("datastore: create sessions table: %w", err)
	}
	return nil
}

// SaveSession inserts or replaces one session's metadata.
func (s *SQLiteStore) SaveSession(session *SessionMeta) error {
	query := `INSERT OR REPLACE INTO sessions (
		id, started_at, interface, capture_file, software_build
	) VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, session.ID, session.StartedAt, session.Interface,
		session.CaptureFile, session.SoftwareBuild)
	if err != nil {
		return fmt.Errorf("datastore: save session %s: %w", session.ID, err)
	}
	return nil
}

// GetSession retrieves one session's metadata by ID.
func (s *SQLiteStore) GetSession(id string) (*SessionMeta, error) {
	query := `SELECT id, started_at, interface, capture_file, software_build
		FROM sessions WHERE id = ?`

	var session SessionMeta
	var captureFile sql.NullString
	err := s.db.QueryRow(query, id).Scan(
		&session.ID, &session.StartedAt, &session.Interface, &captureFile, &session.SoftwareBuild)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("datastore: session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: get session %s: %w", id, err)
	}
	session.CaptureFile = captureFile.String
	return &session, nil
}

// ListSessions returns every recorded session, most recent first.
func (s *SQLiteStore) ListSessions() ([]*SessionMeta, error) {
	rows, err := s.db.Query(`SELECT id, started_at, interface, capture_file, software_build
		FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("datastore: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*SessionMeta
	for rows.Next() {
		var session SessionMeta
		var captureFile sql.NullString
		if err := rows.Scan(&session.ID, &session.StartedAt, &session.Interface, &captureFile, &session.SoftwareBuild); err != nil {
			return nil, fmt.Errorf("datastore: scan session row: %w", err)
		}
		session.CaptureFile = captureFile.String
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("datastore: close sqlite: %w", err)
	}
	return nil
}
