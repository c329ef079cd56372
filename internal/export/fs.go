// Package export writes bookmarked postings to Markdown files so they can
// be read, synced or archived outside the app.
package export

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/radrebel/fedscout/internal/checksum"
)

// FileMeta describes one exported file.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store writes and lists exported Markdown files under a root directory.
type Store struct {
	root string // absolute path to the export directory
}

// NewStore creates a Store rooted at the given directory, creating it when
// missing.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("export: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("export: create root: %w", err)
	}
	return &Store{root: abs}, nil
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (s *Store) safePath(rel string) (string, error) {
	if rel == "" {
		return s.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("export: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(s.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("export: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) && abs != s.root {
		return "", fmt.Errorf("export: path escapes export root: %s", rel)
	}
	return abs, nil
}

// List returns metadata for every exported .md file.
func (s *Store) List() ([]FileMeta, error) {
	var out []FileMeta
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(s.root, p)
		out = append(out, FileMeta{
			Path:      rel,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of an exported file.
func (s *Store) Read(path string) ([]byte, error) {
	abs, err := s.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("export: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file, fsync, rename. Returns the
// checksum of the written content.
func (s *Store) Write(path string, content []byte) (string, error) {
	abs, err := s.safePath(path)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fedscout-tmp-*")
	if err != nil {
		return "", fmt.Errorf("export: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return "", fmt.Errorf("export: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("export: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("export: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("export: rename: %w", err)
	}
	success = true
	return checksum.Sum(content), nil
}

// Delete removes an exported file.
func (s *Store) Delete(path string) error {
	abs, err := s.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("export: delete %s: %w", path, err)
	}
	return nil
}
