package queue

import (
	"crypto/rand"
	"math/big"

	"github.com/ryxu-xo/euralink/internal/track"
)

// defaultHistoryWindow is the number of recent history entries consulted
// by SmartShuffle when the owning Player does not override it.
const defaultHistoryWindow = 5

// randIndex returns a uniform random integer in [0, n).
func randIndex(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func fisherYates(ts []track.Track) {
	for i := len(ts) - 1; i > 0; i-- {
		j := randIndex(i + 1)
		ts[i], ts[j] = ts[j], ts[i]
	}
}

// Shuffle randomizes the queue order in place. A queue of length <= 1 is
// left unchanged.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) <= 1 {
		return
	}
	fisherYates(q.tracks)
}

// SmartShuffle partitions the queue into "not recently played" and
// "recently played" (per the owning Player's history window), shuffles
// each partition independently, and places non-recent tracks first.
func (q *Queue) SmartShuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) <= 1 {
		return
	}

	var recent map[string]struct{}
	if q.history != nil {
		recent = q.history.RecentIdentifiers(defaultHistoryWindow)
	}
	if len(recent) == 0 {
		fisherYates(q.tracks)
		return
	}

	var fresh, seen []track.Track
	for _, t := range q.tracks {
		if _, ok := recent[t.Identifier]; ok {
			seen = append(seen, t)
		} else {
			fresh = append(fresh, t)
		}
	}
	fisherYates(fresh)
	fisherYates(seen)
	q.tracks = append(fresh, seen...)
}

// Snapshot value used for JSON export/import; a plain data mirror of the
// live Queue that reconstructs into a functional Queue via FromExport.
type Export struct {
	Tracks []track.Track `json:"tracks"`
}

// Export returns a portable snapshot of the queue contents.
func (q *Queue) Export() Export {
	return Export{Tracks: q.Snapshot()}
}

// FromExport rebuilds a functional Queue from an exported snapshot.
func FromExport(e Export, history HistorySource) *Queue {
	q := New(history)
	q.tracks = append([]track.Track(nil), e.Tracks...)
	return q
}
