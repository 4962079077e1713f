// Package persist snapshots a fact store into a SQLite database and loads
// it back. A snapshot is a faithful copy: dense fact ids and atom ids are
// written in order, so a round-trip reproduces the exact same ids.
package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"factlex/internal/fact"
	"factlex/internal/logging"
	"factlex/internal/span"
)

// ErrCorruptSnapshot is returned when a loaded database violates the
// invariants a save always establishes (dense ids, valid predicates).
var ErrCorruptSnapshot = errors.New("persist: corrupt snapshot")

// Meta describes where a snapshot came from.
type Meta struct {
	SourcePath string
	Language   string
	SavedAt    time.Time
}

// Snapshot is an open snapshot database.
type Snapshot struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	id INTEGER PRIMARY KEY,
	subject INTEGER NOT NULL,
	predicate INTEGER NOT NULL,
	object INTEGER NOT NULL,
	confidence INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_facts_predicate ON facts(predicate);

CREATE TABLE IF NOT EXISTS atoms (
	id INTEGER PRIMARY KEY,
	text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Open opens or creates a snapshot database at path.
func Open(path string) (*Snapshot, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("persist: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persist: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.Get(logging.CategoryStore).Debugw("pragma failed", "pragma", pragma, "error", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: initialize schema: %w", err)
	}
	return &Snapshot{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Snapshot) Close() error {
	return s.db.Close()
}

// Save replaces the snapshot's contents with the given store and atom
// table. Runs in one transaction; a failed save leaves the previous
// snapshot intact.
func (s *Snapshot) Save(store *fact.Store, atoms *fact.AtomTable, meta Meta) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("persist: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"facts", "atoms", "meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("persist: clear %s: %w", table, err)
		}
	}

	factStmt, err := tx.Prepare(
		"INSERT INTO facts (id, subject, predicate, object, confidence) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("persist: prepare: %w", err)
	}
	defer factStmt.Close()
	for _, f := range store.All() {
		_, err := factStmt.Exec(
			int64(f.ID), int64(f.Subject), int64(f.Predicate), int64(f.Object), int64(f.Confidence))
		if err != nil {
			return fmt.Errorf("persist: insert fact %d: %w", f.ID, err)
		}
	}

	atomStmt, err := tx.Prepare("INSERT INTO atoms (id, text) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("persist: prepare: %w", err)
	}
	defer atomStmt.Close()
	for id := 0; id < atoms.Len(); id++ {
		text, ok := atoms.Lookup(fact.AtomID(id))
		if !ok {
			return fmt.Errorf("persist: atom table hole at %d", id)
		}
		if _, err := atomStmt.Exec(int64(id), text); err != nil {
			return fmt.Errorf("persist: insert atom %d: %w", id, err)
		}
	}

	if meta.SavedAt.IsZero() {
		meta.SavedAt = time.Now().UTC()
	}
	for key, value := range map[string]string{
		"source_path": meta.SourcePath,
		"language":    meta.Language,
		"saved_at":    meta.SavedAt.Format(time.RFC3339),
	} {
		if _, err := tx.Exec("INSERT INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("persist: insert meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist: commit: %w", err)
	}
	logging.Get(logging.CategoryStore).Debugw("snapshot saved",
		"path", s.path, "facts", store.Len(), "atoms", atoms.Len())
	return nil
}

// Load reads the snapshot back. Facts are appended in id order, so the
// returned store issues the same ids the saved store held.
func (s *Snapshot) Load() (*fact.Store, *fact.AtomTable, Meta, error) {
	var meta Meta

	store := fact.NewStore()
	rows, err := s.db.Query("SELECT id, subject, predicate, object, confidence FROM facts ORDER BY id")
	if err != nil {
		return nil, nil, meta, fmt.Errorf("persist: query facts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, subject, predicate, object, confidence int64
		if err := rows.Scan(&id, &subject, &predicate, &object, &confidence); err != nil {
			return nil, nil, meta, fmt.Errorf("persist: scan fact: %w", err)
		}
		p := fact.Predicate(predicate)
		if !p.Valid() {
			return nil, nil, meta, fmt.Errorf("%w: predicate %d", ErrCorruptSnapshot, predicate)
		}
		if int64(store.Len()) != id {
			return nil, nil, meta, fmt.Errorf("%w: fact ids not dense at %d", ErrCorruptSnapshot, id)
		}
		store.Append(fact.Fact{
			Subject:    span.Packed(uint64(subject)),
			Object:     fact.Value(uint64(object)),
			Predicate:  p,
			Confidence: fact.F16(uint16(confidence)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, meta, fmt.Errorf("persist: iterate facts: %w", err)
	}

	atoms := fact.NewAtomTable()
	atomRows, err := s.db.Query("SELECT id, text FROM atoms ORDER BY id")
	if err != nil {
		return nil, nil, meta, fmt.Errorf("persist: query atoms: %w", err)
	}
	defer atomRows.Close()
	for atomRows.Next() {
		var id int64
		var text string
		if err := atomRows.Scan(&id, &text); err != nil {
			return nil, nil, meta, fmt.Errorf("persist: scan atom: %w", err)
		}
		if got := atoms.Intern(text); int64(got) != id {
			return nil, nil, meta, fmt.Errorf("%w: atom ids not dense at %d", ErrCorruptSnapshot, id)
		}
	}
	if err := atomRows.Err(); err != nil {
		return nil, nil, meta, fmt.Errorf("persist: iterate atoms: %w", err)
	}

	metaRows, err := s.db.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, nil, meta, fmt.Errorf("persist: query meta: %w", err)
	}
	defer metaRows.Close()
	for metaRows.Next() {
		var key, value string
		if err := metaRows.Scan(&key, &value); err != nil {
			return nil, nil, meta, fmt.Errorf("persist: scan meta: %w", err)
		}
		switch key {
		case "source_path":
			meta.SourcePath = value
		case "language":
			meta.Language = value
		case "saved_at":
			if ts, err := time.Parse(time.RFC3339, value); err == nil {
				meta.SavedAt = ts
			}
		}
	}
	if err := metaRows.Err(); err != nil {
		return nil, nil, meta, fmt.Errorf("persist: iterate meta: %w", err)
	}
	return store, atoms, meta, nil
}
