package queue

import (
	"testing"

	"github.com/ryxu-xo/euralink/internal/track"
)

func mkTrack(id string) track.Track {
	return track.Track{Identifier: id, Title: "title-" + id, Author: "artist-" + id, SourceName: "youtube"}
}

func TestAddAndSnapshotOrder(t *testing.T) {
	q := New(nil)
	q.Add(mkTrack("a"))
	q.Add(mkTrack("b"))
	q.AddMany([]track.Track{mkTrack("c"), mkTrack("d")})

	got := q.Snapshot()
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].Identifier != id {
			t.Errorf("index %d = %s, want %s", i, got[i].Identifier, id)
		}
	}
}

func TestShiftUnshift(t *testing.T) {
	q := New(nil)
	q.AddMany([]track.Track{mkTrack("a"), mkTrack("b")})

	head, ok := q.Shift()
	if !ok || head.Identifier != "a" {
		t.Fatalf("Shift() = %+v, %v", head, ok)
	}
	q.Unshift(mkTrack("z"))
	if got := q.Snapshot(); got[0].Identifier != "z" || got[1].Identifier != "b" {
		t.Fatalf("unexpected order after unshift: %v", got)
	}
}

func TestInsertRemoveMoveSwap(t *testing.T) {
	q := New(nil)
	q.AddMany([]track.Track{mkTrack("a"), mkTrack("b"), mkTrack("c")})

	q.InsertAt(1, mkTrack("x"))
	if got := q.Snapshot(); got[1].Identifier != "x" {
		t.Fatalf("InsertAt failed: %v", got)
	}

	removed, ok := q.RemoveAt(0)
	if !ok || removed.Identifier != "a" {
		t.Fatalf("RemoveAt failed: %+v %v", removed, ok)
	}

	if !q.Move(0, 2) {
		t.Fatal("Move returned false")
	}

	if !q.Swap(0, 1) {
		t.Fatal("Swap returned false")
	}

	if q.Move(0, 99) {
		t.Fatal("Move should reject out-of-range index")
	}
}

func TestShuffleIsIdentityForShortQueue(t *testing.T) {
	q := New(nil)
	q.Shuffle()
	if !q.Empty() {
		t.Fatal("expected empty queue")
	}
	q.Add(mkTrack("solo"))
	q.Shuffle()
	got := q.Snapshot()
	if len(got) != 1 || got[0].Identifier != "solo" {
		t.Fatalf("shuffle mutated single-element queue: %v", got)
	}
}

func TestShufflePreservesMultiset(t *testing.T) {
	q := New(nil)
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		q.Add(mkTrack(id))
	}
	q.Shuffle()

	got := q.Snapshot()
	if len(got) != len(ids) {
		t.Fatalf("shuffle changed length: got %d want %d", len(got), len(ids))
	}
	seen := make(map[string]bool)
	for _, tr := range got {
		seen[tr.Identifier] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("shuffle lost track %s", id)
		}
	}
}

type fakeHistory struct{ recent map[string]struct{} }

func (f fakeHistory) RecentIdentifiers(limit int) map[string]struct{} { return f.recent }

func TestSmartShufflePartitionsRecent(t *testing.T) {
	q := New(fakeHistory{recent: map[string]struct{}{"b": {}, "d": {}}})
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		q.Add(mkTrack(id))
	}
	q.SmartShuffle()

	got := q.Snapshot()
	if len(got) != len(ids) {
		t.Fatalf("smart shuffle changed length: %d", len(got))
	}
	// first 3 entries should be the non-recent tracks (a, c, e in some order)
	nonRecent := map[string]bool{"a": true, "c": true, "e": true}
	for i := 0; i < 3; i++ {
		if !nonRecent[got[i].Identifier] {
			t.Errorf("index %d = %s, expected a non-recent track in the first partition", i, got[i].Identifier)
		}
	}
	recentSet := map[string]bool{"b": true, "d": true}
	for i := 3; i < 5; i++ {
		if !recentSet[got[i].Identifier] {
			t.Errorf("index %d = %s, expected a recent track in the tail partition", i, got[i].Identifier)
		}
	}
}

func TestSearchAndStats(t *testing.T) {
	q := New(nil)
	q.Add(track.Track{Identifier: "1", Title: "Blue Monday", Author: "New Order", SourceName: "spotify", Length: 1000})
	q.Add(track.Track{Identifier: "2", Title: "Blue Skies", Author: "Sia", SourceName: "youtube", Length: 2000})

	if got := q.Search("blue"); len(got) != 2 {
		t.Fatalf("Search(blue) = %d results, want 2", len(got))
	}
	if got := q.ByArtist("new order"); len(got) != 1 {
		t.Fatalf("ByArtist = %d results, want 1", len(got))
	}

	stats := q.Stats()
	if stats.Total != 2 || stats.UniqueArtists != 2 || stats.UniqueSources != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.AverageLengthMs != 1500 {
		t.Fatalf("average length = %d, want 1500", stats.AverageLengthMs)
	}
}

func TestExportRoundTrip(t *testing.T) {
	q := New(nil)
	q.AddMany([]track.Track{mkTrack("a"), mkTrack("b")})

	exported := q.Export()
	restored := FromExport(exported, nil)

	if got, want := restored.Snapshot(), q.Snapshot(); len(got) != len(want) {
		t.Fatalf("round trip length mismatch: %d vs %d", len(got), len(want))
	}
}
