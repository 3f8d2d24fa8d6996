// Package store persists the source registry in SQLite. Only source
// configuration lives here; generated digests and reports are never stored.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codefionn/daybook/internal/digest"
)

// ErrSourceNotFound is returned when a named source does not exist.
var ErrSourceNotFound = errors.New("source not found")

// Source is one registered repository source.
type Source struct {
	ID             int64
	Name           string
	Repository     string
	EncryptedToken string
	Path           string
	Branch         string
	Enabled        bool
	CreatedAt      time.Time
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the registry database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		repository TEXT NOT NULL,
		encrypted_token TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AddSource registers a new source. The token must already be encrypted by
// the vault; this layer never sees plaintext credentials.
func (s *Store) AddSource(src Source) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO sources (name, repository, encrypted_token, path, branch, enabled)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		src.Name, src.Repository, src.EncryptedToken, src.Path, src.Branch, src.Enabled)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	return res.LastInsertId()
}

// GetSource looks up one source by name.
func (s *Store) GetSource(name string) (*Source, error) {
	row := s.db.QueryRow(
		`SELECT id, name, repository, encrypted_token, path, branch, enabled, created_at
		 FROM sources WHERE name = ?`, name)

	var src Source
	err := row.Scan(&src.ID, &src.Name, &src.Repository, &src.EncryptedToken,
		&src.Path, &src.Branch, &src.Enabled, &src.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query source: %w", err)
	}
	return &src, nil
}

// ListSources returns all sources in insertion order.
func (s *Store) ListSources() ([]Source, error) {
	rows, err := s.db.Query(
		`SELECT id, name, repository, encrypted_token, path, branch, enabled, created_at
		 FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.Name, &src.Repository, &src.EncryptedToken,
			&src.Path, &src.Branch, &src.Enabled, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// UpdateToken replaces a source's encrypted credential. The previous value
// is overwritten in place, which is how credential rotation and removal
// destroy the old secret.
func (s *Store) UpdateToken(name, encryptedToken string) error {
	res, err := s.db.Exec(`UPDATE sources SET encrypted_token = ? WHERE name = ?`,
		encryptedToken, name)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	return requireRow(res, name)
}

// SetEnabled toggles whether a source participates in digest generation.
func (s *Store) SetEnabled(name string, enabled bool) error {
	res, err := s.db.Exec(`UPDATE sources SET enabled = ? WHERE name = ?`, enabled, name)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return requireRow(res, name)
}

// DeleteSource removes a source and its stored credential.
func (s *Store) DeleteSource(name string) error {
	res, err := s.db.Exec(`DELETE FROM sources WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return requireRow(res, name)
}

// DigestSources converts the enabled registry entries into the plain value
// slice consumed by the aggregator, which itself performs no database I/O.
func (s *Store) DigestSources() ([]digest.Source, error) {
	sources, err := s.ListSources()
	if err != nil {
		return nil, err
	}

	var out []digest.Source
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		out = append(out, digest.Source{
			Name:           src.Name,
			Repository:     src.Repository,
			EncryptedToken: src.EncryptedToken,
			Path:           src.Path,
			Branch:         src.Branch,
		})
	}
	return out, nil
}

func requireRow(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	return nil
}
