package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one file per slot inside a directory.
type FileStore struct {
	dir   string
	codec Codec
}

// NewFileStore creates dir if needed. A nil codec means JSON.
func NewFileStore(dir string, codec Codec) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("store directory is required")
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir, codec: codec}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file backing slot.
func (s *FileStore) Path(slot string) string {
	return filepath.Join(s.dir, slot+"."+s.codec.Name())
}

func (s *FileStore) Load(_ context.Context, slot string, v any) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	b, err := os.ReadFile(s.Path(slot))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", slot, err)
	}
	if err := s.codec.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", slot, err)
	}
	return nil
}

// Save writes to a temp file in the same directory and renames it over the
// slot file, so a crash leaves either the old or the new content.
func (s *FileStore) Save(_ context.Context, slot string, v any) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	b, err := s.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", slot, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+slot+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", slot, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", slot, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", slot, err)
	}
	if err := os.Rename(tmpName, s.Path(slot)); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", slot, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, slot string) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if err := os.Remove(s.Path(slot)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", slot, err)
	}
	return nil
}
