package player

import (
	"sync"

	"github.com/ryxu-xo/euralink/internal/track"
)

const defaultHistoryLimit = 50

// History is a bounded, newest-first sequence of played tracks, deduped by
// consecutive identifier: replaying the same identifier back-to-back bumps
// the head entry's ReplayCount instead of prepending a new one.
type History struct {
	mu      sync.RWMutex
	limit   int
	entries []track.HistoryEntry
}

// NewHistory builds a History bounded to limit entries (defaulted if <= 0).
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &History{limit: limit}
}

// Append records t as played at playedAtMs.
func (h *History) Append(t track.Track, playedAtMs int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) > 0 && h.entries[0].Track.Identifier == t.Identifier {
		h.entries[0].ReplayCount++
		h.entries[0].PlayedAt = playedAtMs
		return
	}
	h.entries = append([]track.HistoryEntry{{Track: t, PlayedAt: playedAtMs, ReplayCount: 1}}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
}

// Snapshot returns a copy of the current history, newest-first.
func (h *History) Snapshot() []track.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]track.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of history entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// RecentIdentifiers implements queue.HistorySource: the set of track
// identifiers within the most recent limit history entries.
func (h *History) RecentIdentifiers(limit int) map[string]struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if limit <= 0 || limit > len(h.entries) {
		limit = len(h.entries)
	}
	out := make(map[string]struct{}, limit)
	for i := 0; i < limit; i++ {
		out[h.entries[i].Track.Identifier] = struct{}{}
	}
	return out
}

// Restore replaces the history contents wholesale, used by fromSnapshot.
func (h *History) Restore(entries []track.HistoryEntry, limit int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit > 0 {
		h.limit = limit
	}
	h.entries = append([]track.HistoryEntry(nil), entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
}
