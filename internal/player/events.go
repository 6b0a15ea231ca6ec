package player

import "github.com/ryxu-xo/euralink/internal/track"

// EventKind discriminates the observable events a Player raises toward
// the Orchestrator/host application.
type EventKind string

const (
	EventTrackStart    EventKind = "trackStart"
	EventTrackEnd      EventKind = "trackEnd"
	EventQueueEnd      EventKind = "queueEnd"
	EventPlayerMove    EventKind = "playerMove"
	EventPlayerError   EventKind = "playerError"
	EventTrackError    EventKind = "trackError"
	EventConnectionErr EventKind = "connectionError"
	EventSocketClosed  EventKind = "socketClosed"
)

// Event is a single observable occurrence raised by a Player. Only the
// fields relevant to Kind are populated.
type Event struct {
	Kind      EventKind
	GuildID   string
	Track     track.Track
	Reason    string
	Err       error
	ChannelID string
	Code      int
	ByRemote  bool
}

// Observer receives Player events. The Orchestrator implements this and
// fans events out to the host application.
type Observer interface {
	OnPlayerEvent(Event)
}

func (p *Player) emit(ev Event) {
	ev.GuildID = p.guildID
	if p.observer != nil {
		p.observer.OnPlayerEvent(ev)
	}
}
