package queue

import (
	"strings"

	"github.com/ryxu-xo/euralink/internal/track"
)

// Search returns queued tracks whose title or author contains substr
// (case-insensitive).
func (q *Queue) Search(substr string) []track.Track {
	needle := strings.ToLower(substr)
	q.mu.RLock()
	defer q.mu.RUnlock()
	var out []track.Track
	for _, t := range q.tracks {
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Author), needle) {
			out = append(out, t)
		}
	}
	return out
}

// SearchFunc returns queued tracks matching an arbitrary predicate.
func (q *Queue) SearchFunc(pred func(track.Track) bool) []track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var out []track.Track
	for _, t := range q.tracks {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

// RemoveMatching removes all queued tracks matching pred and returns them.
func (q *Queue) RemoveMatching(pred func(track.Track) bool) []track.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	var removed []track.Track
	kept := q.tracks[:0:0]
	for _, t := range q.tracks {
		if pred(t) {
			removed = append(removed, t)
		} else {
			kept = append(kept, t)
		}
	}
	q.tracks = kept
	return removed
}

// BySource returns queued tracks whose SourceName equals source
// (case-insensitive).
func (q *Queue) BySource(source string) []track.Track {
	source = strings.ToLower(source)
	return q.SearchFunc(func(t track.Track) bool {
		return strings.ToLower(t.SourceName) == source
	})
}

// ByArtist returns queued tracks whose Author contains artist
// (case-insensitive substring).
func (q *Queue) ByArtist(artist string) []track.Track {
	artist = strings.ToLower(artist)
	return q.SearchFunc(func(t track.Track) bool {
		return strings.Contains(strings.ToLower(t.Author), artist)
	})
}

// ByTitle returns queued tracks whose Title contains title
// (case-insensitive substring).
func (q *Queue) ByTitle(title string) []track.Track {
	title = strings.ToLower(title)
	return q.SearchFunc(func(t track.Track) bool {
		return strings.Contains(strings.ToLower(t.Title), title)
	})
}

// Stats summarizes the queue's contents.
type Stats struct {
	Total          int
	UniqueArtists  int
	UniqueSources  int
	TotalLengthMs  int64
	AverageLengthMs int64
}

// Stats computes aggregate statistics over the current queue.
func (q *Queue) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	artists := make(map[string]struct{})
	sources := make(map[string]struct{})
	var total int64

	for _, t := range q.tracks {
		if t.Author != "" {
			artists[strings.ToLower(t.Author)] = struct{}{}
		}
		if t.SourceName != "" {
			sources[strings.ToLower(t.SourceName)] = struct{}{}
		}
		total += t.Length
	}

	stats := Stats{
		Total:         len(q.tracks),
		UniqueArtists: len(artists),
		UniqueSources: len(sources),
		TotalLengthMs: total,
	}
	if stats.Total > 0 {
		stats.AverageLengthMs = total / int64(stats.Total)
	}
	return stats
}
