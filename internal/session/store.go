package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates no session exists under the given ID.
var ErrNotFound = errors.New("session not found")

// Store is a durable, keyed-by-session-ID checkpoint store. Writes replace
// the whole session document atomically; readers never observe a partial
// session.
type Store interface {
	Save(s *Session) error
	Get(id string) (*Session, error)
	List() ([]*Session, error)
}

// SQLiteStore persists session documents in a single SQLite file. Each row
// holds one JSON document; INSERT OR REPLACE gives the atomic
// whole-session overwrite the pipeline's crash-safety argument relies on.
type SQLiteStore struct {
	db *sql.DB
}

const sessionsDDL = `CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  doc TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`

// OpenStore opens (creating if needed) the checkpoint store at path.
func OpenStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sessionsDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (st *SQLiteStore) Close() error {
	return st.db.Close()
}

// Save overwrites the session's document in one statement.
func (st *SQLiteStore) Save(s *Session) error {
	s.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return st.SaveDocument(s.ID, doc, s.UpdatedAt)
}

// SaveDocument stores a raw session document under an ID. This is the
// write path shared with migration tooling that carries over checkpoint
// documents written by older pipeline versions.
func (st *SQLiteStore) SaveDocument(id string, doc []byte, updatedAt time.Time) error {
	_, err := st.db.Exec(
		"INSERT OR REPLACE INTO sessions (id, doc, updated_at) VALUES (?, ?, ?)",
		id, string(doc), updatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing session %s: %w", id, err)
	}
	return nil
}

// Get loads one session, decoding whichever checkpoint shape it was
// written in.
func (st *SQLiteStore) Get(id string) (*Session, error) {
	var doc string
	err := st.db.QueryRow("SELECT doc FROM sessions WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}

	s, err := DecodeDocument([]byte(doc))
	if err != nil {
		return nil, err
	}
	if s.ID == "" {
		s.ID = id
	}
	return s, nil
}

// List returns all sessions, most recently updated first.
func (st *SQLiteStore) List() ([]*Session, error) {
	rows, err := st.db.Query("SELECT id, doc FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		s, err := DecodeDocument([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		if s.ID == "" {
			s.ID = id
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}
