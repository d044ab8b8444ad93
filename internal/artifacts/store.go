package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"coverforge/internal/fileutil"
)

// Store roots the artifact cache. One subdirectory per run identifier.
type Store struct {
	root string
}

// NewStore creates a store over the given output root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// RunDir resolves the directory for a run identifier. Pure path construction.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

// EnsureRunDir creates the run directory if needed and returns it.
func (s *Store) EnsureRunDir(runID string) (string, error) {
	dir := s.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run directory %q: %w", dir, err)
	}
	return dir, nil
}

// Exists reports whether the artifact file is present.
func Exists(path string) bool {
	return fileutil.Exists(path)
}

// AllExist is the conjunction of Exists over paths; it is the skip condition
// for a whole stage group.
func AllExist(paths ...string) bool {
	for _, path := range paths {
		if !Exists(path) {
			return false
		}
	}
	return len(paths) > 0
}

// MissingOutputs filters paths down to the ones not yet present.
func MissingOutputs(paths ...string) []string {
	var missing []string
	for _, path := range paths {
		if !Exists(path) {
			missing = append(missing, path)
		}
	}
	return missing
}

// PartialPath is the temporary path a stage writes before committing.
func PartialPath(final string) string {
	return final + ".partial"
}

// Commit atomically publishes a completed partial file at its final path.
func Commit(final string) error {
	return os.Rename(PartialPath(final), final)
}

// DiscoverBase scans a run directory for the song base name by locating the
// instrumental stem, mirroring how a warm cache is recognized without any
// recorded metadata.
func DiscoverBase(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, instrumentalSuffix) {
			return strings.TrimSuffix(name, instrumentalSuffix), true
		}
	}
	return "", false
}

// RunInfo summarizes one cached run directory for CLI listings.
type RunInfo struct {
	RunID      string
	Base       string
	Files      int
	SizeBytes  int64
	ModifiedAt time.Time
}

// Runs lists cached run directories, newest first.
func (s *Store) Runs() ([]RunInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	infos := make([]RunInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		info := RunInfo{RunID: entry.Name()}
		if base, ok := DiscoverBase(dir); ok {
			info.Base = base
		}
		files, _ := os.ReadDir(dir)
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			info.Files++
			if stat, err := file.Info(); err == nil {
				info.SizeBytes += stat.Size()
				if stat.ModTime().After(info.ModifiedAt) {
					info.ModifiedAt = stat.ModTime()
				}
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ModifiedAt.After(infos[j].ModifiedAt)
	})
	return infos, nil
}
