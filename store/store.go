// Package store persists archived documents and images on the local
// filesystem, one directory per destination.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/use-agent/webkeep/models"
)

// ImagesDir is created inside every destination.
const ImagesDir = "images"

// Config captures where destinations may live.
type Config struct {
	// BaseDir holds relative destinations. Required.
	BaseDir string `yaml:"base_dir"`

	// AllowedRoots lists extra absolute directories that absolute
	// destination names may point into.
	AllowedRoots []string `yaml:"allowed_roots"`
}

// Store writes destinations under a sandboxed base directory.
type Store struct {
	baseDir string
	allowed []string
	now     func() time.Time
}

// New creates the base directory if needed and checks it is writable.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("store: base directory is required")
	}

	base, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("store: resolve base directory: %w", err)
	}
	info, err := os.Stat(base)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("store: create base directory: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("store: stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("store: base directory %s is not a directory", base)
	}

	check, err := os.CreateTemp(base, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("store: base directory is not writable: %w", err)
	}
	check.Close()
	if err := os.Remove(check.Name()); err != nil {
		return nil, fmt.Errorf("store: clean up write check: %w", err)
	}

	allowed := make([]string, 0, len(cfg.AllowedRoots))
	for _, root := range cfg.AllowedRoots {
		if !filepath.IsAbs(root) {
			return nil, fmt.Errorf("store: allowed root %q must be absolute", root)
		}
		allowed = append(allowed, filepath.Clean(root))
	}

	return &Store{baseDir: base, allowed: allowed, now: time.Now}, nil
}

// BaseDir returns the absolute base directory.
func (s *Store) BaseDir() string { return s.baseDir }

// ListDestinations returns the names of the directories directly under
// the base directory, sorted. Hidden directories are skipped.
func (s *Store) ListDestinations() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, models.NewArchiveError(models.ErrCodeStorageFailed, "list destinations", err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// EnsureDestination resolves name to a directory, creates it together with
// its images/ subdirectory, and returns the directory path. The path is
// the token the Save methods expect.
//
// An empty name becomes "export-YYYYMMDD-HHMMSS". Relative names must stay
// inside the base directory; absolute names must lie under the base
// directory or one of the allowed roots.
func (s *Store) EnsureDestination(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "export-" + s.now().Format("20060102-150405")
	}

	dest, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	// A symlink inside the sandbox must not lead out of it. Check the part
	// that already exists before creating anything through it.
	resolved, err := filepath.EvalSymlinks(nearestExisting(dest))
	if err != nil {
		return "", models.NewArchiveError(models.ErrCodeStorageFailed,
			fmt.Sprintf("resolve destination %q", name), err)
	}
	if !s.permitted(resolved) {
		return "", models.NewArchiveError(models.ErrCodeInvalidInput,
			fmt.Sprintf("destination %q leaves the storage area", name), nil)
	}

	if err := os.MkdirAll(filepath.Join(dest, ImagesDir), 0o755); err != nil {
		return "", models.NewArchiveError(models.ErrCodeStorageFailed,
			fmt.Sprintf("create destination %q", name), err)
	}

	slog.Debug("destination ready", "name", name, "path", dest)
	return dest, nil
}

func (s *Store) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		dest := filepath.Clean(name)
		if !s.permitted(dest) {
			return "", models.NewArchiveError(models.ErrCodeInvalidInput,
				fmt.Sprintf("absolute destination %q is outside the allowed roots", name), nil)
		}
		return dest, nil
	}

	dest := filepath.Join(s.baseDir, name)
	if dest == s.baseDir || !within(s.baseDir, dest) {
		return "", models.NewArchiveError(models.ErrCodeInvalidInput,
			fmt.Sprintf("destination %q escapes the base directory", name), nil)
	}
	return dest, nil
}

func (s *Store) permitted(path string) bool {
	if within(s.baseDir, path) || within(realPath(s.baseDir), path) {
		return true
	}
	for _, root := range s.allowed {
		if within(root, path) || within(realPath(root), path) {
			return true
		}
	}
	return false
}

// realPath resolves symlinks in path, returning path unchanged on error.
func realPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

// nearestExisting returns the deepest existing ancestor of path (or path).
func nearestExisting(path string) string {
	for {
		if _, err := os.Lstat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// SaveMarkdown writes text to filename inside dest and returns the path.
func (s *Store) SaveMarkdown(dest, filename, text string) (string, error) {
	return s.save(dest, filename, []byte(text))
}

// SaveBinary writes data to filename inside dest and returns the path.
func (s *Store) SaveBinary(dest, filename string, data []byte) (string, error) {
	return s.save(dest, filename, data)
}

// save writes atomically: a temp file in the target directory is renamed
// over the final name, so readers never see a partial file.
func (s *Store) save(dest, filename string, data []byte) (string, error) {
	if !filepath.IsAbs(dest) || !s.permitted(dest) {
		return "", models.NewArchiveError(models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown destination %q", dest), nil)
	}
	if filename == "" || filepath.IsAbs(filename) {
		return "", models.NewArchiveError(models.ErrCodeInvalidInput,
			fmt.Sprintf("invalid filename %q", filename), nil)
	}
	target := filepath.Join(dest, filename)
	if target == dest || !within(dest, target) {
		return "", models.NewArchiveError(models.ErrCodeInvalidInput,
			fmt.Sprintf("filename %q escapes the destination", filename), nil)
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewArchiveError(models.ErrCodeStorageFailed, "create "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return "", models.NewArchiveError(models.ErrCodeStorageFailed, "create temp file for "+filename, err)
	}
	tmpName := tmp.Name()

	if err := writeAndClose(tmp, data); err != nil {
		os.Remove(tmpName)
		return "", models.NewArchiveError(models.ErrCodeStorageFailed, "write "+filename, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", models.NewArchiveError(models.ErrCodeStorageFailed, "chmod "+filename, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", models.NewArchiveError(models.ErrCodeStorageFailed, "rename "+filename, err)
	}
	return target, nil
}

func writeAndClose(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
