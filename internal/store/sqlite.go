package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pixelgraph/internal/assetref"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a session database file, so derived assets
// survive an editor reload within the same session.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the session asset database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open asset db: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate asset db: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		owner_node_id TEXT NOT NULL,
		blob BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assets_owner ON assets(owner_node_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put stores a blob and returns its generated id.
func (s *SQLite) Put(ctx context.Context, ownerNodeID string, blob []byte) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (id, owner_node_id, blob, created_at) VALUES (?, ?, ?, ?)`,
		id, ownerNodeID, blob, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("put asset: %w", err)
	}
	return id, nil
}

// Get returns the blob for an id.
func (s *SQLite) Get(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM assets WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	return blob, nil
}

// Delete removes an asset. Deleting an unknown id is not an error.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	return nil
}

// DeleteOwned removes every asset owned by the node.
func (s *SQLite) DeleteOwned(ctx context.Context, ownerNodeID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE owner_node_id = ?`, ownerNodeID); err != nil {
		return fmt.Errorf("delete assets of node %s: %w", ownerNodeID, err)
	}
	return nil
}

// ResolveDisplayURL returns the ephemeral reference form for a stored asset.
func (s *SQLite) ResolveDisplayURL(id string) string {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM assets WHERE id = ?`, id).Scan(&one)
	if err != nil {
		return ""
	}
	return assetref.Ephemeral(id).String()
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
