// Package queue implements the per-player ordered track sequence: append,
// insert, remove, move, search and shuffle, including the "smart shuffle"
// variant that partitions by recent-history membership.
package queue

import (
	"sync"

	"github.com/ryxu-xo/euralink/internal/track"
)

// HistorySource is implemented by the owning Player so the Queue can read
// its recent-history window for smart shuffle without owning the Player.
type HistorySource interface {
	RecentIdentifiers(limit int) map[string]struct{}
}

// Queue is an ordered, mutex-guarded sequence of tracks.
type Queue struct {
	mu      sync.RWMutex
	tracks  []track.Track
	history HistorySource
}

// New builds an empty Queue. history may be nil; SmartShuffle then behaves
// like Shuffle.
func New(history HistorySource) *Queue {
	return &Queue{history: history}
}

// SetHistorySource wires (or rewires) the history-window source used by
// SmartShuffle. Player passes its History to New instead of calling this.
func (q *Queue) SetHistorySource(h HistorySource) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.history = h
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// Empty reports whether the queue has no tracks.
func (q *Queue) Empty() bool { return q.Len() == 0 }

// Snapshot returns a copy of the queued tracks in order.
func (q *Queue) Snapshot() []track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]track.Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Add appends a single track.
func (q *Queue) Add(t track.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, t)
}

// AddMany appends multiple tracks, preserving order.
func (q *Queue) AddMany(ts []track.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, ts...)
}

// Unshift pushes a track to the head of the queue.
func (q *Queue) Unshift(t track.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append([]track.Track{t}, q.tracks...)
}

// Shift removes and returns the head track, if any.
func (q *Queue) Shift() (track.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return track.Track{}, false
	}
	head := q.tracks[0]
	q.tracks = q.tracks[1:]
	return head, true
}

// Peek returns the head track without removing it.
func (q *Queue) Peek() (track.Track, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.tracks) == 0 {
		return track.Track{}, false
	}
	return q.tracks[0], true
}

// InsertAt inserts t at index i, clamping i into [0, len].
func (q *Queue) InsertAt(i int, t track.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i = clamp(i, 0, len(q.tracks))
	q.tracks = append(q.tracks, track.Track{})
	copy(q.tracks[i+1:], q.tracks[i:])
	q.tracks[i] = t
}

// RemoveAt removes the track at index i. Reports whether i was in range.
func (q *Queue) RemoveAt(i int) (track.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.tracks) {
		return track.Track{}, false
	}
	removed := q.tracks[i]
	q.tracks = append(q.tracks[:i], q.tracks[i+1:]...)
	return removed, true
}

// Move relocates the track at index from to index to.
func (q *Queue) Move(from, to int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	t := q.tracks[from]
	q.tracks = append(q.tracks[:from], q.tracks[from+1:]...)
	q.tracks = append(q.tracks[:to], append([]track.Track{t}, q.tracks[to:]...)...)
	return true
}

// Swap exchanges the tracks at indices i and j.
func (q *Queue) Swap(i, j int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tracks)
	if i < 0 || i >= n || j < 0 || j >= n {
		return false
	}
	q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	return true
}

// Clear empties the queue and returns the tracks it held.
func (q *Queue) Clear() []track.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	old := q.tracks
	q.tracks = nil
	return old
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
