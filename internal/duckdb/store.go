// Package duckdb stores translated catalogue variants in a DuckDB database
// so they can be queried by token or gene after a conversion run.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for translation results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

const translationColumns = `token VARCHAR,
		drug VARCHAR,
		gene VARCHAR,
		hgvs VARCHAR,
		category VARCHAR,
		confidence VARCHAR,
		status VARCHAR,
		message VARCHAR,
		row_num BIGINT`

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS translations (
		` + translationColumns + `,
		PRIMARY KEY (token, drug)
	)`,
		// Appender target; rows are moved into translations with upsert semantics.
		`CREATE TABLE IF NOT EXISTS translations_staging (
		` + translationColumns + `
	)`,
		`CREATE TABLE IF NOT EXISTS sources (
		path VARCHAR,
		size BIGINT,
		mod_time VARCHAR,
		filter VARCHAR,
		loaded_at TIMESTAMP,
		PRIMARY KEY (path, filter)
	)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
