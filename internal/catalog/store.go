package catalog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore reads and appends catalog entries in a single text file.
type FileStore struct {
	path string
	// mu serializes appends inside this process; O_APPEND covers other writers.
	mu sync.Mutex
}

// NewFileStore creates a store over path. The file itself is created lazily
// by the first Insert.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// ListAll returns the file content verbatim.
func (s *FileStore) ListAll(_ context.Context) ([]byte, error) {
	// #nosec G304 -- the path comes from operator configuration.
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", s.path, ErrStorageUnavailable, err)
	}
	return data, nil
}

// FindByID returns the first line whose id equals id, including its line
// terminator. A missing file is reported as ErrNotFound, not as a storage
// failure.
func (s *FileStore) FindByID(_ context.Context, id string) (string, error) {
	// #nosec G304 -- the path comes from operator configuration.
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("find %q: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("open %s: %w: %w", s.path, ErrStorageUnavailable, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	r := bufio.NewReader(f)
	for {
		line, readErr := r.ReadString('\n')
		if line != "" {
			if entry, ok := ParseLine(line); ok && entry.ID == id {
				if !strings.HasSuffix(line, "\n") {
					line += "\n"
				}
				return line, nil
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("scan %s: %w: %w", s.path, ErrStorageUnavailable, readErr)
		}
	}
	return "", fmt.Errorf("find %q: %w", id, ErrNotFound)
}

// Insert appends one "id,name" line. Empty fields or fields that would break
// the line format are rejected with ErrInvalidArgument before the file is
// touched.
func (s *FileStore) Insert(_ context.Context, id, name string) error {
	entry := Entry{ID: id, Name: name}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("insert: %w: %w", ErrInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G302 G304 -- catalog file is meant to be world-readable; path is operator-configured.
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w: %w", s.path, ErrStorageUnavailable, err)
	}
	if _, err := f.WriteString(entry.Line()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append to %s: %w: %w", s.path, ErrStorageUnavailable, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w: %w", s.path, ErrStorageUnavailable, err)
	}
	return nil
}

// Ready reports whether the directory holding the catalog file is usable.
func (s *FileStore) Ready(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat catalog directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("catalog directory %s is not a directory", dir)
	}
	return nil
}
