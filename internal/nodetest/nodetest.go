// Package nodetest provides an in-process fake audio node — an HTTP test
// server serving the REST surface plus a WebSocket event-stream endpoint —
// so restclient/nodeclient/pool/orchestrator tests exercise real wire
// round trips without a live Lavalink-compatible server.
package nodetest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Server wraps an httptest.Server standing in for one audio node.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	loadBody  string
	infoBody  string
}

// New starts a fake node. onConn, if non-nil, runs in its own goroutine per
// accepted WebSocket connection on /v4/websocket — write JSON frames to it
// to simulate ready/stats/playerUpdate/event traffic.
func New(t *testing.T, onConn func(*websocket.Conn)) *Server {
	t.Helper()
	s := &Server{
		loadBody: `{"loadType":"empty","data":{}}`,
		infoBody: `{"version":{"semver":"4.0.0"},"filters":[]}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v4/websocket", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if onConn != nil {
			go onConn(conn)
		}
	})
	mux.HandleFunc("/v4/sessions/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/v4/loadtracks", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		body := s.loadBody
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
	mux.HandleFunc("/v4/info", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		body := s.infoBody
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
	mux.HandleFunc("/v4/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"players":0,"playingPlayers":0}`))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// SetLoadTracksResponse overrides the canned /v4/loadtracks body.
func (s *Server) SetLoadTracksResponse(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadBody = body
}

// SetInfoResponse overrides the canned /v4/info body.
func (s *Server) SetInfoResponse(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infoBody = body
}

// Host returns the server address in host:port form, as nodeclient.Config
// expects (no scheme).
func (s *Server) Host() string {
	return strings.TrimPrefix(strings.TrimPrefix(s.URL, "http://"), "https://")
}
