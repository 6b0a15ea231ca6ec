// Package store persists the guildId -> Player snapshot map to a single
// JSON file, written atomically (write-then-rename) so a crash mid-write
// never corrupts the previous good state.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/ryxu-xo/euralink/internal/errs"
	"github.com/ryxu-xo/euralink/internal/player"
)

// FileStore is the mandatory snapshot backend: one JSON file on disk,
// keyed by guildId.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore builds a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the full snapshot map atomically: marshal, write to a temp
// file in the same directory, then rename over the destination.
func (s *FileStore) Save(snapshots map[string]player.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return errs.Wrap(errs.Validation, "FileStore.Save", "marshal snapshots", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(errs.Fatal, "FileStore.Save", "create snapshot dir", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errs.Wrap(errs.Fatal, "FileStore.Save", "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.Wrap(errs.Fatal, "FileStore.Save", "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.Fatal, "FileStore.Save", "close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.Fatal, "FileStore.Save", "rename into place", err)
	}
	return nil
}

// Load reads the snapshot map from disk. A missing file is not an error:
// it returns an empty map, matching a fresh install with nothing to
// restore.
func (s *FileStore) Load() (map[string]player.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]player.Snapshot{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Fatal, "FileStore.Load", "read snapshot file", err)
	}

	var out map[string]player.Snapshot
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errs.Wrap(errs.Validation, "FileStore.Load", "unmarshal snapshots", err)
	}
	return out, nil
}
