package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess/monitoring"
)

const fileBackendName = "file"

// FileBackend stores each document as <dir>/<key>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	if dir == "" {
		dir = "."
	}
	return &FileBackend{dir: dir}
}

// Name implements Backend.
func (b *FileBackend) Name() string {
	return fileBackendName
}

// Path returns the file path a key is stored at.
func (b *FileBackend) Path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

// Load implements Backend.
func (b *FileBackend) Load(_ context.Context, key string) ([]byte, bool, error) {
	defer monitoring.Observe(fileBackendName, "load", fileBackendName, key)()

	data, err := os.ReadFile(b.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("error reading %s: %w", b.Path(key), err)
	}
	return data, true, nil
}

// Save implements Backend. The file is replaced atomically.
func (b *FileBackend) Save(_ context.Context, key string, value []byte) error {
	defer monitoring.Observe(fileBackendName, "save", fileBackendName, key)()

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("error creating storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.Path(key)); err != nil {
		return fmt.Errorf("error replacing %s: %w", b.Path(key), err)
	}
	return nil
}

// Ping implements Backend.
func (b *FileBackend) Ping(_ context.Context) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	return nil
}

// Close implements Backend.
func (b *FileBackend) Close() error {
	return nil
}
