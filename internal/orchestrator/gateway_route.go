package orchestrator

import (
	"context"

	"github.com/ryxu-xo/euralink/internal/gateway"
)

// RouteGatewayPacket feeds a decoded gateway voice packet to the matching
// guild's Connection, if a Player is bound to that guild. VOICE_STATE_UPDATE
// packets not describing the bot's own voice state are dropped, since
// they're irrelevant to the binding handshake. A bot voice state with an
// empty channel id destroys the guild's Player.
func (o *Orchestrator) RouteGatewayPacket(pkt gateway.Packet) {
	switch pkt.Type {
	case gateway.TypeVoiceStateUpdate:
		if pkt.StateUpdate == nil || pkt.StateUpdate.UserID != o.cfg.BotUserID {
			return
		}
		p, ok := o.Player(pkt.StateUpdate.GuildID)
		if !ok {
			return
		}
		if pkt.StateUpdate.ChannelID == "" {
			_ = o.DestroyConnection(context.Background(), pkt.StateUpdate.GuildID, false)
			return
		}
		p.Connection().ApplyStateUpdate(pkt.StateUpdate.SessionID, pkt.StateUpdate.ChannelID)
		p.SetVoiceChannel(pkt.StateUpdate.ChannelID)
	case gateway.TypeVoiceServerUpdate:
		if pkt.ServerUpdate == nil {
			return
		}
		p, ok := o.Player(pkt.ServerUpdate.GuildID)
		if !ok {
			return
		}
		p.Connection().ApplyServerUpdate(pkt.ServerUpdate.Endpoint, pkt.ServerUpdate.Token)
	}
}
