package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the record set in a single JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create comments dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) LoadAll(ctx context.Context) ([]Comment, error) {
	payload, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Comment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read comments file: %w", err)
	}
	return DecodeRecords(payload), nil
}

// SaveAll writes to a temp file in the same directory and renames it over
// the previous file, so readers never observe a half-written set.
func (s *FileStore) SaveAll(ctx context.Context, comments []Comment) error {
	payload, err := EncodeRecords(comments)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp comments file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(s.fileMode()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod comments file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write comments file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close comments file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace comments file: %w", err)
	}
	return nil
}

// fileMode keeps the permissions of an existing file; new files get 0644.
func (s *FileStore) fileMode() os.FileMode {
	if info, err := os.Stat(s.path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("stat comments dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("comments dir %s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
