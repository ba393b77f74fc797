package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lemonberrylabs/equations/pkg/expr"
	"github.com/lemonberrylabs/equations/pkg/types"
)

// SQLite is a Store that persists equation text in a SQLite database. Only
// the source text is written; trees are rebuilt with expr.Parse when the
// database is opened and kept in memory afterwards.
type SQLite struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[string]*Equation
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{db: db, cache: make(map[string]*Equation)}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	// AUTOINCREMENT keeps ids of deleted equations from being handed out again.
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS equations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equation TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`)
	return err
}

// load reads every stored row and rebuilds its tree.
func (s *SQLite) load() error {
	rows, err := s.db.Query(`SELECT id, equation, created_at FROM equations`)
	if err != nil {
		return fmt.Errorf("failed to load equations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      int64
			text    string
			created int64
		)
		if err := rows.Scan(&id, &text, &created); err != nil {
			return fmt.Errorf("failed to scan equation: %w", err)
		}
		tree, err := expr.Parse(text)
		if err != nil {
			return fmt.Errorf("stored equation %d no longer parses: %w", id, err)
		}
		eq := &Equation{
			ID:         strconv.FormatInt(id, 10),
			Text:       text,
			Tree:       tree,
			CreateTime: time.Unix(0, created),
		}
		s.cache[eq.ID] = eq
	}
	return rows.Err()
}

// Create implements Store.
func (s *SQLite) Create(text string, tree expr.Node) (*Equation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	result, err := s.db.Exec(`INSERT INTO equations (equation, created_at) VALUES (?, ?)`, text, now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to store equation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read equation id: %w", err)
	}

	eq := &Equation{
		ID:         strconv.FormatInt(id, 10),
		Text:       text,
		Tree:       tree,
		CreateTime: now,
	}
	s.cache[eq.ID] = eq
	return eq, nil
}

// Get implements Store.
func (s *SQLite) Get(id string) (*Equation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eq, ok := s.cache[id]
	if !ok {
		return nil, types.NewNotFoundError(id)
	}
	return eq, nil
}

// List implements Store.
func (s *SQLite) List() ([]*Equation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Equation, 0, len(s.cache))
	for _, eq := range s.cache {
		result = append(result, eq)
	}
	sortByID(result)
	return result, nil
}

// Delete implements Store.
func (s *SQLite) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache[id]; !ok {
		return types.NewNotFoundError(id)
	}
	if _, err := s.db.Exec(`DELETE FROM equations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete equation: %w", err)
	}
	delete(s.cache, id)
	return nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
