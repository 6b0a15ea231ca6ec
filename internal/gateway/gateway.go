// Package gateway defines the wire shapes exchanged with the chat gateway
// driver: inbound voice packets and the single outbound voice-join command.
// The driver itself — the process that actually holds a socket to the chat
// service — is an external collaborator; this package only names the
// contract.
package gateway

// VoiceStateUpdate mirrors a gateway VOICE_STATE_UPDATE dispatch.
type VoiceStateUpdate struct {
	UserID    string `json:"user_id"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"` // empty means the user left voice
	SessionID string `json:"session_id"`
	SelfDeaf  bool   `json:"self_deaf"`
	SelfMute  bool   `json:"self_mute"`
}

// VoiceServerUpdate mirrors a gateway VOICE_SERVER_UPDATE dispatch.
type VoiceServerUpdate struct {
	GuildID  string `json:"guild_id"`
	Endpoint string `json:"endpoint"`
	Token    string `json:"token"`
}

// Packet is the opaque {t, d} envelope routed to Orchestrator.RouteGatewayPacket.
// Exactly one of StateUpdate/ServerUpdate is populated, discriminated by Type.
type Packet struct {
	Type         string
	StateUpdate  *VoiceStateUpdate
	ServerUpdate *VoiceServerUpdate
}

const (
	TypeVoiceStateUpdate  = "VOICE_STATE_UPDATE"
	TypeVoiceServerUpdate = "VOICE_SERVER_UPDATE"
)

// VoiceJoinCommand is the single outbound shape the orchestrator sends to
// the host's gateway send callback for join, move and leave.
type VoiceJoinCommand struct {
	Op int                  `json:"op"`
	D  VoiceJoinCommandData `json:"d"`
}

// VoiceJoinCommandData is the payload of a VoiceJoinCommand.
type VoiceJoinCommandData struct {
	GuildID   string  `json:"guild_id"`
	ChannelID *string `json:"channel_id"`
	SelfMute  bool    `json:"self_mute"`
	SelfDeaf  bool    `json:"self_deaf"`
}

// Sender is the host-provided callback used to deliver outbound gateway
// commands. Implementations must not block indefinitely.
type Sender interface {
	SendVoiceCommand(cmd VoiceJoinCommand) error
}

// JoinCommand builds a voice-join/move command for channelID.
func JoinCommand(guildID, channelID string, selfMute, selfDeaf bool) VoiceJoinCommand {
	ch := channelID
	return VoiceJoinCommand{Op: 4, D: VoiceJoinCommandData{GuildID: guildID, ChannelID: &ch, SelfMute: selfMute, SelfDeaf: selfDeaf}}
}

// LeaveCommand builds a voice-leave command (channel_id = null).
func LeaveCommand(guildID string) VoiceJoinCommand {
	return VoiceJoinCommand{Op: 4, D: VoiceJoinCommandData{GuildID: guildID, ChannelID: nil}}
}
