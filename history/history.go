// Package history keeps the bounded list of past notes. The in-memory
// list is authoritative for the session; SQLite persistence is best
// effort and a broken database never takes the feature down.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"voxpad/log"
)

// MaxEntries bounds the history; adding beyond it evicts the oldest.
const MaxEntries = 50

type Entry struct {
	ID    string
	Title string
	Text  string
}

type Store struct {
	mu      sync.Mutex
	entries []Entry // most-recent-first
	db      *sql.DB // nil when persistence is unavailable
}

// DefaultPath returns the default database location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "history.sqlite"
	}
	return filepath.Join(dir, "voxpad", "history.sqlite")
}

// Open loads persisted history from path. It never fails: when the
// database cannot be opened the store degrades to memory-only.
func Open(path string) *Store {
	s := &Store{}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Warnf("history: create dir: %v", err)
		return s
	}

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		log.Warnf("history: open database: %v", err)
		return s
	}
	if err := initSchema(db); err != nil {
		log.Warnf("history: init schema: %v", err)
		db.Close()
		return s
	}

	s.db = db
	if err := s.load(); err != nil {
		log.Warnf("history: load: %v", err)
	}
	return s
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			title TEXT NOT NULL,
			text TEXT NOT NULL,
			createdAt REAL NOT NULL
		)
	`)
	return err
}

func (s *Store) load() error {
	rows, err := s.db.Query(`
		SELECT id, title, text
		FROM notes
		ORDER BY seq DESC
		LIMIT ?
	`, MaxEntries)
	if err != nil {
		return fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Title, &e.Text); err != nil {
			return fmt.Errorf("scan note: %w", err)
		}
		s.entries = append(s.entries, e)
	}
	return rows.Err()
}

// Add inserts at the head and evicts past MaxEntries. Entries without
// a server id get a locally generated one so Remove can address them.
func (s *Store) Add(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.entries = append([]Entry{e}, s.entries...)
	if len(s.entries) > MaxEntries {
		s.entries = s.entries[:MaxEntries]
	}
	s.mu.Unlock()

	s.persistAdd(e)
	return e
}

// Remove deletes the entry with the given id, leaving the order of the
// rest unchanged.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	s.mu.Unlock()

	if s.db == nil {
		return
	}
	if _, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		log.Warnf("history: remove: %v", err)
	}
}

// All returns the entries most-recent-first.
func (s *Store) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) persistAdd(e Entry) {
	if s.db == nil {
		return
	}
	now := float64(time.Now().UnixNano()) / float64(time.Second)
	if _, err := s.db.Exec(`
		INSERT INTO notes (id, title, text, createdAt) VALUES (?, ?, ?, ?)
	`, e.ID, e.Title, e.Text, now); err != nil {
		log.Warnf("history: insert: %v", err)
		return
	}
	// Trim persisted rows to the bound as well
	if _, err := s.db.Exec(`
		DELETE FROM notes WHERE seq NOT IN (
			SELECT seq FROM notes ORDER BY seq DESC LIMIT ?
		)
	`, MaxEntries); err != nil {
		log.Warnf("history: trim: %v", err)
	}
}
