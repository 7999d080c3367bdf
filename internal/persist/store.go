package persist

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrNoFlow is returned when the local store holds no saved flow.
var ErrNoFlow = errors.New("no saved flow")

// Store is the durable local store for flow documents. SQLite with
// WAL mode so status readers are never blocked by a save in progress.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens the SQLite database at path, applying
// pragmas and schema. Idempotent: safe to call on an existing
// database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open flow store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect flow store: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled
	// connection avoids SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply flow store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put upserts the document for a channel id.
func (s *Store) Put(ctx context.Context, channelID string, document []byte, savedAt string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flows (channel_id, document, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			document = excluded.document,
			saved_at = excluded.saved_at
	`, channelID, string(document), savedAt)
	if err != nil {
		return fmt.Errorf("put flow %s: %w", channelID, err)
	}
	return nil
}

// Get returns the stored document for a channel id.
func (s *Store) Get(ctx context.Context, channelID string) ([]byte, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM flows WHERE channel_id = ?`, channelID,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoFlow
	}
	if err != nil {
		return nil, fmt.Errorf("get flow %s: %w", channelID, err)
	}
	return []byte(document), nil
}

// Latest returns the most recently saved document.
func (s *Store) Latest(ctx context.Context) ([]byte, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM flows ORDER BY saved_at DESC, channel_id DESC LIMIT 1`,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoFlow
	}
	if err != nil {
		return nil, fmt.Errorf("get latest flow: %w", err)
	}
	return []byte(document), nil
}
