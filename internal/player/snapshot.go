package player

import (
	"time"

	"github.com/ryxu-xo/euralink/internal/filters"
	"github.com/ryxu-xo/euralink/internal/gateway"
	"github.com/ryxu-xo/euralink/internal/track"
)

// Snapshot is the portable, self-contained serialization of a Player,
// suitable for persisted-state round trips and node migration restarts.
type Snapshot struct {
	GuildID      string               `json:"guildId"`
	TextChannel  string               `json:"textChannel"`
	VoiceChannel string               `json:"voiceChannel"`
	NodeName     string               `json:"nodeName"`
	Current      *track.Track         `json:"current,omitempty"`
	Position     int64                `json:"position"`
	Volume       int                  `json:"volume"`
	Loop         LoopMode             `json:"loop"`
	Autoplay     bool                 `json:"autoplay"`
	Paused       bool                 `json:"paused"`
	Queue        []track.Track        `json:"queue"`
	History      []track.HistoryEntry `json:"history"`
	Filters      filters.Payload      `json:"filters"`
	LastUpdateTs int64                `json:"lastUpdateTs"`
}

// ToSnapshot serializes the whole Player: guildId, channels, volume, loop
// mode, current track, queue contents, history and filters.
func (p *Player) ToSnapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var current *track.Track
	if p.current != nil {
		cp := *p.current
		current = &cp
	}

	return Snapshot{
		GuildID:      p.guildID,
		TextChannel:  p.textChannel,
		VoiceChannel: p.voiceChannel,
		NodeName:     nodeNameLocked(p.node),
		Current:      current,
		Position:     p.position,
		Volume:       p.volume,
		Loop:         p.loop,
		Autoplay:     p.autoplayOn,
		Paused:       p.paused,
		Queue:        p.queue.Snapshot(),
		History:      p.history.Snapshot(),
		Filters:      p.filters.Payload(),
		LastUpdateTs: time.Now().UnixMilli(),
	}
}

func nodeNameLocked(n NodeHandle) string {
	if n == nil {
		return ""
	}
	return n.Name()
}

// FromSnapshot rebuilds a functional Player from a Snapshot on node,
// clamping the restored position to the current track's length and
// rebuilding a real Queue/History rather than replaying raw slices.
func FromSnapshot(snap Snapshot, node NodeHandle, resolver Resolver, autoplay AutoplayResolver, sender gateway.Sender, observer Observer, cfg Config) *Player {
	p := New(snap.GuildID, node, resolver, autoplay, sender, observer, cfg)

	p.mu.Lock()
	p.textChannel = snap.TextChannel
	p.voiceChannel = snap.VoiceChannel
	p.volume = clampVolume(snap.Volume)
	if validLoopMode(snap.Loop) {
		p.loop = snap.Loop
	}
	p.autoplayOn = snap.Autoplay
	p.paused = snap.Paused

	if snap.Current != nil {
		cp := *snap.Current
		pos := snap.Position
		if cp.Length > 0 && pos > cp.Length {
			pos = cp.Length
		}
		p.current = &cp
		p.position = pos
		p.playing = !snap.Paused
	}
	p.mu.Unlock()

	p.queue.AddMany(snap.Queue)
	p.history.Restore(snap.History, cfg.HistoryLimit)
	p.filters.SetFromPayload(snap.Filters)

	return p
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}
