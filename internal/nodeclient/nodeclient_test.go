package nodeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type recordingDispatcher struct {
	mu      sync.Mutex
	events  []Event
	updates []PlayerUpdate
}

func (d *recordingDispatcher) DispatchGuildEvent(nodeName, guildID string, event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) DispatchPlayerUpdate(nodeName, guildID string, update PlayerUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, update)
}

func (d *recordingDispatcher) eventCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

func (d *recordingDispatcher) updateCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.updates)
}

func newFakeNode(t *testing.T, onConn func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v4/websocket", func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go onConn(conn)
	})
	mux.HandleFunc("/v4/sessions/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})
	return httptest.NewServer(mux)
}

func TestConnectReceivesReadyAndTransitionsState(t *testing.T) {
	srv := newFakeNode(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteJSON(map[string]interface{}{"op": "ready", "sessionId": "sess-1", "resumed": false})
		time.Sleep(200 * time.Millisecond)
	})
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	disp := &recordingDispatcher{}
	c := New(Config{Name: "n1", Host: host, Password: "pw"}, disp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Connect(ctx)
	defer c.Destroy()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == Ready && c.SessionID() == "sess-1" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client never reached Ready, state=%s sessionId=%q", c.State(), c.SessionID())
}

func TestPlayerUpdateAndEventAreDispatched(t *testing.T) {
	srv := newFakeNode(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteJSON(map[string]interface{}{"op": "ready", "sessionId": "sess-2", "resumed": false})
		time.Sleep(30 * time.Millisecond)
		conn.WriteJSON(map[string]interface{}{
			"op": "playerUpdate", "guildId": "g1",
			"state": map[string]interface{}{"time": 1, "position": 2, "connected": true, "ping": 42},
		})
		conn.WriteJSON(map[string]interface{}{"op": "event", "type": "TrackStartEvent", "guildId": "g1"})
		time.Sleep(200 * time.Millisecond)
	})
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	disp := &recordingDispatcher{}
	c := New(Config{Name: "n1", Host: host, Password: "pw"}, disp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Connect(ctx)
	defer c.Destroy()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if disp.updateCount() >= 1 && disp.eventCount() >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if disp.updateCount() < 1 {
		t.Fatalf("expected at least one dispatched player update")
	}
	if disp.eventCount() < 1 {
		t.Fatalf("expected at least one dispatched event")
	}
	if c.Stats().MedianPing() != 42 {
		t.Fatalf("MedianPing() = %d, want 42", c.Stats().MedianPing())
	}
}

func TestEventWithoutGuildIDIsDropped(t *testing.T) {
	disp := &recordingDispatcher{}
	c := &Client{cfg: Config{Name: "n1"}, stats: NewStatsWindow(5), dispatcher: disp}
	raw, _ := json.Marshal(map[string]interface{}{"op": "event", "type": "TrackStartEvent"})
	c.handleMessage(context.Background(), raw)
	if disp.eventCount() != 0 {
		t.Fatalf("expected event with empty guildId to be dropped")
	}
}

func TestBackoffIsCappedAndJittered(t *testing.T) {
	base := 100 * time.Millisecond
	d := backoff(base, 20)
	const maxDelay = 30*time.Second + 250*time.Millisecond
	if d > maxDelay {
		t.Fatalf("backoff(attempt=20) = %v, want <= %v", d, maxDelay)
	}
	if d < 30*time.Second {
		t.Fatalf("backoff(attempt=20) = %v, want >= cap of 30s", d)
	}
}

func TestStatsWindowScoreOrdering(t *testing.T) {
	idle := NewStatsWindow(10)
	idle.RecordStats(StatsPayload{Players: 1, PlayingPlayers: 0})

	busy := NewStatsWindow(10)
	busy.RecordStats(StatsPayload{Players: 10, PlayingPlayers: 8})

	if idle.Score() >= busy.Score() {
		t.Fatalf("idle.Score()=%v should be less than busy.Score()=%v", idle.Score(), busy.Score())
	}
}
