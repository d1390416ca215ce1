package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidKey is returned for keys that would escape the store root.
var ErrInvalidKey = errors.New("storage: invalid object key")

// LocalStore implements ObjectStore on the local filesystem. It exists for
// development and tests; production uses S3Store.
type LocalStore struct {
	root string
}

// Compile-time check that LocalStore implements ObjectStore.
var _ ObjectStore = (*LocalStore)(nil)

// NewLocalStore creates a LocalStore rooted at dir, creating it if needed.
// If dir is empty, a directory under os.TempDir() is used.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "clipworker-store")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &LocalStore{root: dir}, nil
}

// Root returns the store's root directory.
func (s *LocalStore) Root() string {
	return s.root
}

// PutObject stores body under key, overwriting any existing object.
func (s *LocalStore) PutObject(ctx context.Context, key string, body io.Reader) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 - path is confined to the store root
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write object: %w", err)
	}
	return f.Close()
}

// GetObject returns a reader for the object stored under key.
func (s *LocalStore) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) // #nosec G304 - path is confined to the store root
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return f, nil
}

// PresignedURL returns a file URL for key. Local objects need no signing.
func (s *LocalStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(path), nil
}

// keyPath maps an object key to a path under the store root.
func (s *LocalStore) keyPath(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}
