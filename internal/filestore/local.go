package filestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath  = errors.New("path escapes storage root")
	ErrFileNotFound = errors.New("file not found")
)

// LocalStorage reads course files stored under a base directory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage ensures the base directory exists.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory %s: %w", basePath, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", abs, err)
	}
	slog.Info("Local storage directory ensured", "path", abs)
	return &LocalStorage{basePath: abs}, nil
}

// Resolve maps a stored path such as "/uploads/a.pdf" to an absolute path under the
// base directory. Leading slashes are ignored.
func (ls *LocalStorage) Resolve(relPath string) (string, error) {
	rel := filepath.FromSlash(strings.TrimLeft(relPath, "/"))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return filepath.Join(ls.basePath, rel), nil
}

// Exists reports whether relPath names a regular file.
func (ls *LocalStorage) Exists(relPath string) (bool, error) {
	full, err := ls.Resolve(relPath)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", relPath, err)
	}
	return info.Mode().IsRegular(), nil
}

// Open opens relPath for reading. The caller closes the file.
func (ls *LocalStorage) Open(relPath string) (io.ReadCloser, error) {
	full, err := ls.Resolve(relPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, relPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", relPath, err)
	}
	return f, nil
}
