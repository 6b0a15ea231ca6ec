// Package presets hot-reloads a JSON file of custom filter bundles
// (internal/filters.Bundle) so operators can add or tune presets without
// restarting the orchestrator process, watching the file with fsnotify.
package presets

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ryxu-xo/euralink/internal/filters"
	"github.com/ryxu-xo/euralink/logger"
)

// Store is a thread-safe, hot-reloaded registry of named filter bundles.
type Store struct {
	mu       sync.RWMutex
	bundles  map[string]filters.Bundle
	path     string
	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	stopCh   chan struct{}
}

// Load reads path once and starts watching it for changes. A missing file
// is not an error — the store starts empty and will pick up the file if
// it is created later.
func Load(path string) (*Store, error) {
	s := &Store{path: path, bundles: make(map[string]filters.Bundle), stopCh: make(chan struct{})}
	s.reload()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return s, err
	}
	s.watcher = watcher

	dir := dirOf(path)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("presets: failed to watch directory", logger.String("dir", dir), logger.ErrorField(err))
	}

	go s.watchLoop()
	return s, nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func (s *Store) watchLoop() {
	for {
		select {
		case <-s.stopCh:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name == s.path && (event.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				s.reload()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("presets: watcher error", logger.ErrorField(err))
		}
	}
}

func (s *Store) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var bundles map[string]filters.Bundle
	if err := json.Unmarshal(data, &bundles); err != nil {
		logger.Warn("presets: invalid preset file, keeping previous bundles", logger.String("path", s.path), logger.ErrorField(err))
		return
	}
	s.mu.Lock()
	s.bundles = bundles
	s.mu.Unlock()
	logger.Info("presets: reloaded", logger.String("path", s.path), logger.Int("count", len(bundles)))
}

// Lookup returns the named bundle, if present.
func (s *Store) Lookup(name string) (filters.Bundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bundles[name]
	return b, ok
}

// Names lists the currently loaded custom preset names.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.bundles))
	for n := range s.bundles {
		names = append(names, n)
	}
	return names
}

// Close stops the file watcher.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
