// Package storage provides the object-store capability the pipeline uses
// for source media, produced clips, and status/results documents. It defines
// the ObjectStore port and implementations for S3 and local disk.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// ErrNotFound is returned by GetObject when no object exists under the key.
var ErrNotFound = errors.New("storage: object not found")

// ObjectStore defines the object-store operations the pipeline consumes.
// Keys are opaque; resolving them to retrievable URLs is done with
// PresignedURL by the read path, never by the pipeline itself.
type ObjectStore interface {
	// PutObject stores body under key, overwriting any existing object.
	PutObject(ctx context.Context, key string, body io.Reader) error

	// GetObject returns a reader for the object stored under key.
	// The caller is responsible for closing it.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// PresignedURL returns a time-limited retrievable URL for key.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Download copies the object under key to a local file.
func Download(ctx context.Context, store ObjectStore, key, destPath string) error {
	body, err := store.GetObject(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	f, err := os.Create(destPath) // #nosec G304 - destPath is produced by trusted internal code
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("download %s: %w", key, err)
	}
	return f.Close()
}

// Upload stores a local file under key.
func Upload(ctx context.Context, store ObjectStore, srcPath, key string) error {
	f, err := os.Open(srcPath) // #nosec G304 - srcPath is produced by trusted internal code
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer func() { _ = f.Close() }()

	return store.PutObject(ctx, key, f)
}

// PutJSON stores v as a JSON document under key.
func PutJSON(ctx context.Context, store ObjectStore, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return store.PutObject(ctx, key, bytes.NewReader(b))
}

// GetJSON reads the JSON document under key into v.
func GetJSON(ctx context.Context, store ObjectStore, key string, v any) error {
	body, err := store.GetObject(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
