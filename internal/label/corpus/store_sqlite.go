package corpus

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the corpus in a SQLite database. The rowid
// sequence doubles as the insertion order, so Load selects ORDER BY id.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS labels (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	label       TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	contexts    TEXT NOT NULL DEFAULT '[]'
);
`

// OpenSQLiteStore opens (creating if needed) a SQLite corpus database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite corpus store: path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open corpus database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create labels table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns all entries ordered by insertion.
func (s *SQLiteStore) Load() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT label, description, contexts FROM labels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var contexts string
		if err := rows.Scan(&e.Label, &e.Description, &contexts); err != nil {
			return nil, fmt.Errorf("scan label row: %w", err)
		}
		if contexts != "" && contexts != "[]" {
			if err := json.Unmarshal([]byte(contexts), &e.Contexts); err != nil {
				return nil, fmt.Errorf("decode contexts for %q: %w", e.Label, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label rows: %w", err)
	}
	return entries, nil
}

// Append inserts one entry. A unique-constraint violation is surfaced
// as ErrDuplicate so callers can treat concurrent writers uniformly.
func (s *SQLiteStore) Append(e Entry) error {
	contexts, err := encodeContexts(e.Contexts)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO labels (label, description, contexts) VALUES (?, ?, ?)`,
		e.Label, e.Description, contexts,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("insert %q: %w", e.Label, ErrDuplicate)
		}
		return fmt.Errorf("insert %q: %w", e.Label, err)
	}
	return nil
}

// Rewrite replaces the stored entries inside a single transaction.
func (s *SQLiteStore) Rewrite(entries []Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin rewrite: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM labels`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear labels: %w", err)
	}
	for _, e := range entries {
		contexts, err := encodeContexts(e.Contexts)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO labels (label, description, contexts) VALUES (?, ?, ?)`,
			e.Label, e.Description, contexts,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %q: %w", e.Label, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rewrite: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func encodeContexts(contexts []string) (string, error) {
	if len(contexts) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(contexts)
	if err != nil {
		return "", fmt.Errorf("encode contexts: %w", err)
	}
	return string(data), nil
}
