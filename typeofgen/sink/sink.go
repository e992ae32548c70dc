// Package sink writes generated files.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// OutputSink receives rewritten files. Paths are slash-separated and
// relative; the sink decides where they land. WriteFile must be safe for
// concurrent use.
type OutputSink interface {
	WriteFile(ctx context.Context, path string, content []byte) error
}

// FilesystemSink writes below Root on the local filesystem.
type FilesystemSink struct {
	Root string

	// Mode is the permission of written files. Zero means 0644.
	Mode os.FileMode

	// Overwrite replaces existing files. When false, writing a path that
	// exists fails.
	Overwrite bool
}

// NewFilesystemSink returns a sink that overwrites files below root.
func NewFilesystemSink(root string) *FilesystemSink {
	return &FilesystemSink{Root: root, Mode: 0o644, Overwrite: true}
}

// Abs returns the absolute location of the relative path p.
func (s *FilesystemSink) Abs(p string) (string, error) {
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	full := filepath.Join(root, filepath.FromSlash(p))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %q", p)
	}
	return full, nil
}

// WriteFile writes content to path below Root, creating directories as
// needed. The file appears atomically: content goes to a temporary file in
// the target directory that is then renamed (or linked, without Overwrite).
func (s *FilesystemSink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.Abs(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	mode := s.Mode
	if mode == 0 {
		mode = 0o644
	}

	tmp, err := os.CreateTemp(dir, ".typeof-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_, werr := tmp.Write(content)
	cerr := tmp.Close()
	switch {
	case werr != nil:
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", werr)
	case cerr != nil:
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", cerr)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("set file mode: %w", err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if s.Overwrite {
		if err := os.Rename(tmpPath, full); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("rename temp file: %w", err)
		}
		return nil
	}
	// Link fails if the target exists, without a stat/rename race.
	err = os.Link(tmpPath, full)
	os.Remove(tmpPath)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("file already exists: %q", path)
		}
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

// MemorySink keeps written files in memory. It is safe for concurrent use.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// WriteFile stores a copy of content under path.
func (s *MemorySink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = append([]byte(nil), content...)
	return nil
}

// Get returns a copy of the file at path, or nil.
func (s *MemorySink) Get(path string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[path]
	if !ok {
		return nil
	}
	return append([]byte(nil), content...)
}

// Paths returns the stored paths in sorted order.
func (s *MemorySink) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Reset discards all stored files.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string][]byte)
}

// ValidatePath reports whether path is acceptable to a sink: non-empty,
// relative, slash-separated, clean, and free of ".." elements.
func ValidatePath(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") || hasDriveLetter(path) {
		return errors.New("absolute paths not allowed")
	}
	if strings.Contains(path, `\`) {
		return errors.New("path must use forward slashes")
	}
	for _, elem := range strings.Split(path, "/") {
		if elem == ".." {
			return errors.New("path traversal not allowed")
		}
	}
	if cleaned := filepath.ToSlash(filepath.Clean(path)); cleaned != path {
		return fmt.Errorf("path is not clean (expected %q)", cleaned)
	}
	return nil
}

func hasDriveLetter(path string) bool {
	if len(path) < 2 || path[1] != ':' {
		return false
	}
	c := path[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
