package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ryxu-xo/euralink/internal/connection"
	"github.com/ryxu-xo/euralink/internal/gateway"
	"github.com/ryxu-xo/euralink/internal/nodeclient"
	"github.com/ryxu-xo/euralink/internal/nodetest"
)

type recordingSender struct {
	mu   sync.Mutex
	cmds []gateway.VoiceJoinCommand
}

func (s *recordingSender) SendVoiceCommand(cmd gateway.VoiceJoinCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, cmd)
	return nil
}

func readyFrame(sessionID string) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteJSON(map[string]interface{}{"op": "ready", "sessionId": sessionID, "resumed": false})
		time.Sleep(500 * time.Millisecond)
	}
}

func waitForReady(t *testing.T, o *Orchestrator, name string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c, ok := o.Node(name); ok && c.IsReady() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("node %s never reached Ready", name)
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf(msg)
}

func newTestOrchestrator() (*Orchestrator, *recordingSender) {
	sender := &recordingSender{}
	o := New(Config{BotUserID: "bot-1"}, sender)
	return o, sender
}

func TestCreateConnectionBindsPlayerToReadyNode(t *testing.T) {
	srv := nodetest.New(t, readyFrame("sess-1"))
	o, _ := newTestOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.AddNode(ctx, NodeSpec{Name: "n1", Host: srv.Host()})
	waitForReady(t, o, "n1")

	p, err := o.CreateConnection("guild-1", "text-1", "voice-1", "")
	if err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
	if p.GuildID() != "guild-1" {
		t.Fatalf("GuildID() = %q, want guild-1", p.GuildID())
	}
	if p.NodeName() != "n1" {
		t.Fatalf("NodeName() = %q, want n1", p.NodeName())
	}

	again, err := o.CreateConnection("guild-1", "text-2", "voice-2", "")
	if err != nil {
		t.Fatalf("CreateConnection (idempotent): %v", err)
	}
	if again != p {
		t.Fatalf("second CreateConnection for the same guild should return the existing Player")
	}
}

func TestCreateConnectionFailsWithNoReadyNodes(t *testing.T) {
	o, _ := newTestOrchestrator()
	if _, err := o.CreateConnection("guild-1", "text-1", "voice-1", ""); err == nil {
		t.Fatalf("expected an error with no nodes registered")
	}
}

func TestDestroyConnectionRemovesPlayer(t *testing.T) {
	srv := nodetest.New(t, readyFrame("sess-1"))
	o, _ := newTestOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.AddNode(ctx, NodeSpec{Name: "n1", Host: srv.Host()})
	waitForReady(t, o, "n1")

	if _, err := o.CreateConnection("guild-1", "text-1", "voice-1", ""); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
	if err := o.DestroyConnection(context.Background(), "guild-1", false); err != nil {
		t.Fatalf("DestroyConnection: %v", err)
	}
	if _, ok := o.Player("guild-1"); ok {
		t.Fatalf("Player should be gone after DestroyConnection")
	}

	if err := o.DestroyConnection(context.Background(), "guild-1", false); err != nil {
		t.Fatalf("second DestroyConnection should be a no-op, got %v", err)
	}
}

func TestListPlayersExposesMigratableAdapter(t *testing.T) {
	srv := nodetest.New(t, readyFrame("sess-1"))
	o, _ := newTestOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.AddNode(ctx, NodeSpec{Name: "n1", Host: srv.Host()})
	waitForReady(t, o, "n1")

	if _, err := o.CreateConnection("guild-1", "text-1", "voice-1", ""); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}

	list := o.ListPlayers()
	if len(list) != 1 {
		t.Fatalf("ListPlayers() len = %d, want 1", len(list))
	}
	if list[0].GuildID() != "guild-1" || list[0].NodeName() != "n1" {
		t.Fatalf("unexpected adapter: guildId=%s nodeName=%s", list[0].GuildID(), list[0].NodeName())
	}
}

func TestRouteGatewayPacketIgnoresOtherUsers(t *testing.T) {
	srv := nodetest.New(t, readyFrame("sess-1"))
	o, _ := newTestOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.AddNode(ctx, NodeSpec{Name: "n1", Host: srv.Host()})
	waitForReady(t, o, "n1")

	p, err := o.CreateConnection("guild-1", "text-1", "voice-1", "")
	if err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}

	o.RouteGatewayPacket(gateway.Packet{
		Type: gateway.TypeVoiceStateUpdate,
		StateUpdate: &gateway.VoiceStateUpdate{
			UserID: "someone-else", GuildID: "guild-1", ChannelID: "voice-9", SessionID: "sess-x",
		},
	})
	if p.VoiceChannel() != "voice-1" {
		t.Fatalf("voice channel should be untouched by a non-bot voice state, got %q", p.VoiceChannel())
	}
}

func TestRouteGatewayPacketCompletesBindingAndPreservesTextChannel(t *testing.T) {
	srv := nodetest.New(t, readyFrame("sess-1"))
	o, _ := newTestOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.AddNode(ctx, NodeSpec{Name: "n1", Host: srv.Host()})
	waitForReady(t, o, "n1")

	p, err := o.CreateConnection("guild-1", "text-1", "voice-1", "")
	if err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}

	o.RouteGatewayPacket(gateway.Packet{
		Type: gateway.TypeVoiceStateUpdate,
		StateUpdate: &gateway.VoiceStateUpdate{
			UserID: "bot-1", GuildID: "guild-1", ChannelID: "voice-2", SessionID: "sess-x",
		},
	})
	o.RouteGatewayPacket(gateway.Packet{
		Type: gateway.TypeVoiceServerUpdate,
		ServerUpdate: &gateway.VoiceServerUpdate{
			GuildID: "guild-1", Endpoint: "us-east.example:443", Token: "tok",
		},
	})

	if p.VoiceChannel() != "voice-2" {
		t.Fatalf("VoiceChannel() = %q, want voice-2", p.VoiceChannel())
	}
	waitForCondition(t, 2*time.Second, p.Connected, "expected the voice binding to flush and report connected once both halves of the handshake arrive")
}

func TestRouteGatewayPacketVoiceLeaveDestroysConnection(t *testing.T) {
	srv := nodetest.New(t, readyFrame("sess-1"))
	o, _ := newTestOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.AddNode(ctx, NodeSpec{Name: "n1", Host: srv.Host()})
	waitForReady(t, o, "n1")

	p, err := o.CreateConnection("guild-1", "text-1", "voice-1", "")
	if err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
	p.Connection().ApplyStateUpdate("sess-x", "voice-1")
	p.Connection().ApplyServerUpdate("us-east.example:443", "tok")
	if p.Connection().State() != connection.Connected {
		t.Fatalf("setup: expected Connection to be connected before the leave packet")
	}

	o.RouteGatewayPacket(gateway.Packet{
		Type: gateway.TypeVoiceStateUpdate,
		StateUpdate: &gateway.VoiceStateUpdate{
			UserID: "bot-1", GuildID: "guild-1", ChannelID: "",
		},
	})
	if p.Connection().State() != connection.Destroyed {
		t.Fatalf("expected Connection to be destroyed after an empty channelId voice state")
	}
}

func TestResolveReturnsDirectTrackForURL(t *testing.T) {
	srv := nodetest.New(t, nil)
	srv.SetLoadTracksResponse(`{"loadType":"track","data":{"encoded":"abc","info":{"identifier":"id1","title":"Song","author":"Artist","length":1000,"isStream":false,"isSeekable":true,"sourceName":"youtube","uri":"https://youtube.com/watch?v=id1","isrc":""}}}`)
	o, _ := newTestOrchestrator()
	client := nodeclient.New(nodeclient.Config{Name: "n1", Host: srv.Host(), Password: "pw"}, o)

	result, err := o.Resolve(context.Background(), client, "https://youtube.com/watch?v=id1", "", "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.LoadType != "track" || result.Track == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Track.Title != "Song" || result.Track.Requester != "user-1" {
		t.Fatalf("unexpected track: %+v", result.Track)
	}
}

func TestResolveFallsBackToPlatformURLsOnEmptyQuery(t *testing.T) {
	var requests []string
	var mu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("/v4/loadtracks", func(w http.ResponseWriter, r *http.Request) {
		identifier := r.URL.Query().Get("identifier")
		mu.Lock()
		requests = append(requests, identifier)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(identifier, "youtube.com") {
			w.Write([]byte(`{"loadType":"track","data":{"encoded":"xyz","info":{"identifier":"found","title":"Found It","author":"A","length":500,"isStream":false,"isSeekable":true,"sourceName":"youtube","uri":"https://www.youtube.com/watch?v=rawquery","isrc":""}}}`))
			return
		}
		w.Write([]byte(`{"loadType":"empty","data":{}}`))
	})
	mux.HandleFunc("/v4/sessions/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	o, _ := newTestOrchestrator()
	client := nodeclient.New(nodeclient.Config{Name: "n1", Host: strings.TrimPrefix(srv.URL, "http://"), Password: "pw"}, o)

	result, err := o.Resolve(context.Background(), client, "rawquery", "ytsearch", "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.LoadType != "track" || result.Track == nil || result.Track.Title != "Found It" {
		t.Fatalf("expected the fallback ladder to find a track, got %+v", result)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requests) < 2 {
		t.Fatalf("expected at least 2 loadtracks requests (primary + fallback), got %v", requests)
	}
	if !strings.Contains(requests[0], "ytsearch:rawquery") {
		t.Fatalf("first request should be the raw search identifier, got %q", requests[0])
	}
}

