package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"propertycare-backend/internal/shared/telemetry"
)

// ErrNotExist is returned when a storage key has no backing object.
var ErrNotExist = errors.New("object does not exist")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Exists(ctx context.Context, storageKey string) (bool, error)
	Delete(ctx context.Context, storageKey string) error
}

// LocalPather is implemented by stores whose objects already live on disk.
type LocalPather interface {
	LocalPath(storageKey string) (string, error)
}

// Materialize returns a filesystem path holding the object's bytes.
// The cleanup func must always be called; it removes any temporary copy.
func Materialize(ctx context.Context, store ObjectStore, storageKey string) (string, func(), error) {
	noop := func() {}
	if lp, ok := store.(LocalPather); ok {
		p, err := lp.LocalPath(storageKey)
		if err != nil {
			return "", noop, err
		}
		return p, noop, nil
	}

	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return "", noop, err
	}
	defer body.Close()

	dir, err := os.MkdirTemp("", "receipt-*")
	if err != nil {
		return "", noop, fmt.Errorf("mkdir temp: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.Base(storageKey))
	f, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", noop, fmt.Errorf("create temp: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		cleanup()
		return "", noop, fmt.Errorf("copy object: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("close temp: %w", err)
	}
	return path, cleanup, nil
}

// RemoveBestEffort deletes the object if it exists. Failures are logged, never returned.
func RemoveBestEffort(ctx context.Context, store ObjectStore, storageKey string) {
	if store == nil || storageKey == "" {
		return
	}
	if err := store.Delete(ctx, storageKey); err != nil && !errors.Is(err, ErrNotExist) {
		telemetry.Warn("object.remove_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err,
		})
	}
}
