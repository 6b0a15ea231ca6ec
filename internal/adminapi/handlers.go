package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ryxu-xo/euralink/logger"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("adminapi: failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type nodeView struct {
	Name           string   `json:"name"`
	State          string   `json:"state"`
	SessionID      string   `json:"sessionId"`
	Score          float64  `json:"score"`
	Regions        []string `json:"regions"`
	Players        int      `json:"players"`
	PlayingPlayers int      `json:"playingPlayers"`
	MedianPing     int64    `json:"medianPingMs"`
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.orch.ListNodes()
	out := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeView{
			Name:           n.Name(),
			State:          n.State().String(),
			SessionID:      n.SessionID(),
			Score:          n.Score(),
			Regions:        n.Regions(),
			Players:        n.Stats().Players(),
			PlayingPlayers: n.Stats().PlayingPlayers(),
			MedianPing:     n.Stats().MedianPing(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type playerView struct {
	GuildID      string `json:"guildId"`
	NodeName     string `json:"nodeName"`
	TextChannel  string `json:"textChannel"`
	VoiceChannel string `json:"voiceChannel"`
	Playing      bool   `json:"playing"`
	Paused       bool   `json:"paused"`
	Position     int64  `json:"position"`
	Volume       int    `json:"volume"`
	QueueLength  int    `json:"queueLength"`
	CurrentTitle string `json:"currentTitle,omitempty"`
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players := s.orch.Players()
	out := make([]playerView, 0, len(players))
	for _, p := range players {
		v := playerView{
			GuildID:      p.GuildID(),
			NodeName:     p.NodeName(),
			TextChannel:  p.TextChannel(),
			VoiceChannel: p.VoiceChannel(),
			Playing:      p.IsPlaying(),
			Paused:       p.IsPaused(),
			Position:     p.Position(),
			Volume:       p.Volume(),
			QueueLength:  p.Queue().Len(),
		}
		if cur := p.Current(); cur != nil {
			v.CurrentTitle = cur.Title
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

type migrateRequest struct {
	Node string `json:"node"`
}

func (s *Server) handleForceMigrate(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildId"]

	var body migrateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Node == "" {
		writeError(w, http.StatusBadRequest, "request body must be {\"node\": \"<name>\"}")
		return
	}

	if err := s.orch.ForceMigrate(r.Context(), guildID, body.Node); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"guildId": guildID, "migratedTo": body.Node})
}

func (s *Server) handleSnapshotSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot store configured")
		return
	}
	if err := s.orch.SavePlayersState(s.store); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleSnapshotLoad(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot store configured")
		return
	}
	if err := s.orch.LoadPlayersState(s.store, s.region); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}
