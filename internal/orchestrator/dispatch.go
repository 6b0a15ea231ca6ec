package orchestrator

import (
	"github.com/ryxu-xo/euralink/internal/nodeclient"
	"github.com/ryxu-xo/euralink/internal/track"
	"github.com/ryxu-xo/euralink/logger"
)

func rawTrackToTrack(r nodeclient.RawTrack) track.Track {
	return track.Track{
		Encoded:    r.Encoded,
		Identifier: r.Info.Identifier,
		Title:      r.Info.Title,
		Author:     r.Info.Author,
		Length:     r.Info.Length,
		IsStream:   r.Info.IsStream,
		IsSeekable: r.Info.IsSeekable,
		SourceName: r.Info.SourceName,
		URI:        r.Info.URI,
		ISRC:       r.Info.ISRC,
	}
}

// DispatchGuildEvent implements nodeclient.EventDispatcher: demultiplexes a
// node event to the bound Player by guildId, dropping it if no Player is
// currently registered for that guild (e.g. it raced a destroy) or if the
// Player is bound to a different node (a stale event after migration).
func (o *Orchestrator) DispatchGuildEvent(nodeName, guildID string, event nodeclient.Event) {
	p, ok := o.Player(guildID)
	if !ok {
		logger.Debug("orchestrator: dropping event for unknown guild",
			logger.String("node", nodeName), logger.String("guildId", guildID), logger.String("type", string(event.Type)))
		return
	}
	if p.NodeName() != nodeName {
		logger.Debug("orchestrator: dropping event from a node the player is not bound to",
			logger.String("node", nodeName), logger.String("guildId", guildID), logger.String("type", string(event.Type)))
		return
	}

	switch event.Type {
	case nodeclient.EventTrackStart:
		p.HandleTrackStart(rawTrackToTrack(event.Track))
	case nodeclient.EventTrackEnd:
		p.HandleTrackEnd(rawTrackToTrack(event.Track), event.Reason)
	case nodeclient.EventTrackException:
		msg := ""
		if event.Exception != nil {
			msg = event.Exception.Message
		}
		p.HandleTrackException(rawTrackToTrack(event.Track), msg)
	case nodeclient.EventTrackStuck:
		p.HandleTrackStuck(rawTrackToTrack(event.Track), event.Threshold)
	case nodeclient.EventWebSocketClosed:
		p.HandleWebSocketClosed(event.Code, event.CloseReason, event.ByRemote)
	default:
		logger.Debug("orchestrator: unhandled event type",
			logger.String("node", nodeName), logger.String("type", string(event.Type)))
	}
}

// DispatchPlayerUpdate implements nodeclient.EventDispatcher, dropping
// updates from a node the Player is not bound to.
func (o *Orchestrator) DispatchPlayerUpdate(nodeName, guildID string, update nodeclient.PlayerUpdate) {
	p, ok := o.Player(guildID)
	if !ok || p.NodeName() != nodeName {
		return
	}
	p.HandlePlayerUpdate(update)
}
