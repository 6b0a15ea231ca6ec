package connection

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingFlusher struct {
	mu    sync.Mutex
	calls []Binding
	err   error
}

func (f *recordingFlusher) FlushVoice(ctx context.Context, guildID string, binding Binding, volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, binding)
	return f.err
}

func (f *recordingFlusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestHandshakeCompletesAndFlushesOnce(t *testing.T) {
	f := &recordingFlusher{}
	c := New("g1", f, Config{FlushDelay: 5 * time.Millisecond})

	c.ApplyServerUpdate("us-east42.example:443", "T")
	if c.State() != Connecting {
		t.Fatalf("state = %v, want Connecting after first update", c.State())
	}
	c.ApplyStateUpdate("S", "VC")

	if c.State() != Connected {
		t.Fatalf("state = %v, want Connected", c.State())
	}
	if got := c.Binding().Region; got != "us-east" {
		t.Fatalf("region = %q, want us-east", got)
	}

	time.Sleep(30 * time.Millisecond)
	if f.count() != 1 {
		t.Fatalf("flush count = %d, want 1", f.count())
	}
}

func TestOrderOfUpdatesDoesNotMatter(t *testing.T) {
	f := &recordingFlusher{}
	c := New("g1", f, Config{FlushDelay: 5 * time.Millisecond})

	c.ApplyStateUpdate("S", "VC")
	c.ApplyServerUpdate("eu-west1.example:443", "T")

	if c.State() != Connected {
		t.Fatalf("state = %v, want Connected", c.State())
	}
}

func TestChannelMoveWhileConnected(t *testing.T) {
	f := &recordingFlusher{}
	c := New("g1", f, Config{FlushDelay: 5 * time.Millisecond})
	c.ApplyServerUpdate("us-east42.example:443", "T")
	c.ApplyStateUpdate("S", "VC1")
	time.Sleep(20 * time.Millisecond)

	moved := c.ApplyStateUpdate("S", "VC2")
	if !moved {
		t.Fatal("expected move to be detected")
	}
	if c.ChannelID() != "VC2" {
		t.Fatalf("channelID = %q, want VC2", c.ChannelID())
	}
}

func TestDestroyStopsFurtherFlushes(t *testing.T) {
	f := &recordingFlusher{}
	c := New("g1", f, Config{FlushDelay: 20 * time.Millisecond})
	c.ApplyServerUpdate("us-east.example:443", "T")
	c.ApplyStateUpdate("S", "VC")
	c.Destroy()

	c.SetVolume(50)
	time.Sleep(40 * time.Millisecond)
	if c.State() != Destroyed {
		t.Fatalf("state = %v, want Destroyed", c.State())
	}
	if f.count() != 0 {
		t.Fatalf("flush count = %d, want 0 after Destroy", f.count())
	}
}

func TestExtractRegionFallbacks(t *testing.T) {
	cases := map[string]string{
		"us-east42.example.com:443": "us-east",
		"1.2.3.4:443":               "1",
		"":                          "unknown",
	}
	for endpoint, want := range cases {
		if got := extractRegion(endpoint); got != want {
			t.Errorf("extractRegion(%q) = %q, want %q", endpoint, got, want)
		}
	}
}
