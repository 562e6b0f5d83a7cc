package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps slots as rows of a single table.
type SQLiteStore struct {
	db    *sql.DB
	codec Codec
}

// OpenSQLite opens (or creates) the database at dataSourceName and ensures
// the slots table exists. Use ":memory:" for tests.
func OpenSQLite(dataSourceName string, codec Codec) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if codec == nil {
		codec = JSONCodec{}
	}
	s := &SQLiteStore{db: db, codec: codec}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS slots (
    name TEXT PRIMARY KEY,
    codec TEXT NOT NULL,
    data BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, slot string, v any) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM slots WHERE name = ?`, slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read slot %s: %w", slot, err)
	}
	if err := s.codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", slot, err)
	}
	return nil
}

// Save upserts the slot row; SQLite makes the replacement atomic.
func (s *SQLiteStore) Save(ctx context.Context, slot string, v any) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	data, err := s.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", slot, err)
	}
	query := `
		INSERT INTO slots (name, codec, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET codec = excluded.codec, data = excluded.data, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, slot, s.codec.Name(), data, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, slot); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", slot, err)
	}
	return nil
}
