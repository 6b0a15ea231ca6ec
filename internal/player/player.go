// Package player implements the per-guild Player state machine: queue,
// current track, loop/autoplay modes, filters, voice binding, history and
// batched outbound updates to the bound audio node.
package player

import (
	"context"
	"sync"
	"time"

	"github.com/ryxu-xo/euralink/internal/connection"
	"github.com/ryxu-xo/euralink/internal/errs"
	"github.com/ryxu-xo/euralink/internal/filters"
	"github.com/ryxu-xo/euralink/internal/gateway"
	"github.com/ryxu-xo/euralink/internal/queue"
	"github.com/ryxu-xo/euralink/internal/restclient"
	"github.com/ryxu-xo/euralink/internal/track"
	"github.com/ryxu-xo/euralink/logger"
)

// LoopMode is the Player's loop setting.
type LoopMode string

const (
	LoopNone  LoopMode = "none"
	LoopTrack LoopMode = "track"
	LoopQueue LoopMode = "queue"
)

func validLoopMode(m LoopMode) bool {
	switch m {
	case LoopNone, LoopTrack, LoopQueue:
		return true
	default:
		return false
	}
}

// NodeHandle is the subset of NodeClient/RestClient a Player needs,
// abstracted so Pool can swap the bound node during migration.
type NodeHandle interface {
	Name() string
	SessionID() string
	UpdatePlayer(ctx context.Context, sessionID, guildID string, body restclient.UpdatePlayerBody) (*restclient.Response, error)
	DestroyPlayer(ctx context.Context, sessionID, guildID string) error
}

// Resolver resolves an unresolved Track (no encoded blob) into a playable
// one, or resolves a raw query into a Track. Implemented by the
// Orchestrator via the node client's LoadTracks.
type Resolver interface {
	ResolveTrack(ctx context.Context, t track.Track) (track.Track, error)
}

// AutoplayResolver looks up the next identifier to play for a given
// source once the queue is empty. Returns ("", nil) when there is no next
// track.
type AutoplayResolver interface {
	NextFor(ctx context.Context, last track.Track) (identifier string, err error)
}

// Config controls batching, thresholds and optional features.
type Config struct {
	BatchDelay       time.Duration
	StuckThreshold   time.Duration
	HistoryLimit     int
	MaxReconnectTries int
	ReconnectDelay   time.Duration
	AutoResume       bool
	Autoplay         bool
	ConnectionConfig connection.Config
}

// Player is the per-guild state machine.
type Player struct {
	cfg      Config
	guildID  string
	resolver Resolver
	autoplay AutoplayResolver
	sender   gateway.Sender
	observer Observer

	mu          sync.RWMutex
	textChannel string
	voiceChannel string
	region      string

	current  *track.Track
	position int64
	posAt    time.Time
	ping     int64

	volume int
	loop   LoopMode
	autoplayOn bool
	paused   bool
	playing  bool
	connected bool

	node NodeHandle

	queue   *queue.Queue
	filters *filters.Filters
	history *History

	pending *pendingUpdate
	conn    *connection.Connection

	lastPosition       int64
	lastPositionUpdate time.Time
	reconnectAttempts  int

	sponsorCategories []string

	destroyed bool
	destroyOnce sync.Once
}

// New builds a Player bound to node, with commands flushed through it.
func New(guildID string, node NodeHandle, resolver Resolver, autoplay AutoplayResolver, sender gateway.Sender, observer Observer, cfg Config) *Player {
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 25 * time.Millisecond
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = 30 * time.Second
	}
	if cfg.MaxReconnectTries <= 0 {
		cfg.MaxReconnectTries = 3
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}

	p := &Player{
		cfg:      cfg,
		guildID:  guildID,
		resolver: resolver,
		autoplay: autoplay,
		sender:   sender,
		observer: observer,
		volume:   100,
		loop:     LoopNone,
		autoplayOn: cfg.Autoplay,
		node:     node,
		history:  NewHistory(cfg.HistoryLimit),
	}
	p.queue = queue.New(p.history)
	p.filters = filters.New(func() { p.scheduleFilterUpdate() })
	p.pending = newPendingUpdate(cfg.BatchDelay, p.flushBatch)
	p.conn = connection.New(guildID, p, cfg.ConnectionConfig)
	return p
}

// GuildID returns the owning guild id.
func (p *Player) GuildID() string { return p.guildID }

// Connection exposes the voice binding state machine for gateway routing.
func (p *Player) Connection() *connection.Connection { return p.conn }

// Queue exposes the track queue.
func (p *Player) Queue() *queue.Queue { return p.queue }

// Filters exposes the audio filter configuration.
func (p *Player) Filters() *filters.Filters { return p.filters }

// History exposes the playback history.
func (p *Player) History() *History { return p.history }

func (p *Player) currentNode() NodeHandle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.node
}

// SetNode rebinds the Player to a different node, used by Pool.Migrate.
// Callers are responsible for calling Restart afterward.
func (p *Player) SetNode(node NodeHandle) {
	p.mu.Lock()
	p.node = node
	p.mu.Unlock()
}

// NodeName returns the name of the currently bound node.
func (p *Player) NodeName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.node == nil {
		return ""
	}
	return p.node.Name()
}

// Current returns a copy of the currently playing track, or nil.
func (p *Player) Current() *track.Track {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	cp := *p.current
	return &cp
}

// Position estimates the current playback position, extrapolating from
// the last known tick while playing and unpaused.
func (p *Player) Position() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.playing || p.paused || p.posAt.IsZero() {
		return p.position
	}
	return p.position + time.Since(p.posAt).Milliseconds()
}

// Volume returns the current volume, 0..1000.
func (p *Player) Volume() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

// Loop returns the current loop mode.
func (p *Player) Loop() LoopMode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loop
}

// IsPlaying reports whether a track is currently marked playing.
func (p *Player) IsPlaying() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.playing
}

// IsPaused reports the paused flag.
func (p *Player) IsPaused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// SetChannels records the bound text/voice channel ids (set by the
// Orchestrator on createConnection).
func (p *Player) SetChannels(textChannel, voiceChannel string) {
	p.mu.Lock()
	p.textChannel = textChannel
	p.voiceChannel = voiceChannel
	p.mu.Unlock()
}

// SetVoiceChannel updates only the bound voice channel, leaving the text
// channel untouched — used when a gateway voice-state update moves the bot
// between channels.
func (p *Player) SetVoiceChannel(voiceChannel string) {
	p.mu.Lock()
	p.voiceChannel = voiceChannel
	p.mu.Unlock()
}

// VoiceChannel returns the bound voice channel id.
func (p *Player) VoiceChannel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.voiceChannel
}

// TextChannel returns the bound text channel id.
func (p *Player) TextChannel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.textChannel
}

// Play dequeues the head track (resolving it if necessary), makes it
// current, and schedules an update carrying its encoded blob.
func (p *Player) Play(ctx context.Context) error {
	if p.conn.State() != connection.Connected {
		return errs.New(errs.Validation, "Player.Play", "connection not ready")
	}
	if p.queue.Empty() {
		return nil
	}
	next, ok := p.queue.Shift()
	if !ok {
		return nil
	}

	if !next.Resolved() {
		resolved, err := p.resolver.ResolveTrack(ctx, next)
		if err != nil {
			p.emit(Event{Kind: EventTrackError, Track: next, Err: err})
			return p.Play(ctx)
		}
		next = resolved
	}

	p.mu.Lock()
	p.current = &next
	p.position = 0
	p.posAt = time.Now()
	p.playing = true
	p.paused = false
	p.reconnectAttempts = 0
	p.mu.Unlock()

	encoded := next.Encoded
	p.pending.setTrack(&encoded)
	p.pending.setPaused(false)

	go p.preloadNext(ctx)
	return nil
}

func (p *Player) preloadNext(ctx context.Context) {
	head, ok := p.queue.Peek()
	if !ok || head.Resolved() {
		return
	}
	if _, err := p.resolver.ResolveTrack(ctx, head); err != nil {
		logger.Debug("player: preload failed", logger.String("guildId", p.guildID), logger.ErrorField(err))
	}
}

// Pause flips the paused flag, keeps playing consistent with it
// (paused implies not playing), and schedules the update.
func (p *Player) Pause(paused bool) {
	p.mu.Lock()
	p.paused = paused
	if paused {
		if p.playing && !p.posAt.IsZero() {
			p.position += time.Since(p.posAt).Milliseconds()
		}
		p.posAt = time.Time{}
		p.playing = false
	} else {
		p.posAt = time.Now()
		if p.current != nil {
			p.playing = true
		}
	}
	p.mu.Unlock()
	p.pending.setPaused(paused)
}

// Seek validates posMs against the current track's length and schedules
// the update.
func (p *Player) Seek(posMs int64) error {
	if posMs < 0 {
		return errs.New(errs.Validation, "Player.Seek", "position must be >= 0")
	}
	p.mu.Lock()
	if p.current != nil && p.current.Length > 0 && posMs > p.current.Length {
		p.mu.Unlock()
		return errs.New(errs.Validation, "Player.Seek", "position exceeds track length")
	}
	p.position = posMs
	p.posAt = time.Now()
	p.mu.Unlock()
	p.pending.setPosition(posMs)
	return nil
}

// SetVolume validates v against [0,1000] and schedules the update.
func (p *Player) SetVolume(v int) error {
	if v < 0 || v > 1000 {
		return errs.New(errs.Validation, "Player.SetVolume", "volume must be in [0,1000]")
	}
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
	p.pending.setVolume(v)
	return nil
}

// SetLoop validates mode and takes effect on the next TrackEnd.
func (p *Player) SetLoop(mode LoopMode) error {
	if !validLoopMode(mode) {
		return errs.New(errs.Validation, "Player.SetLoop", "invalid loop mode")
	}
	p.mu.Lock()
	p.loop = mode
	p.mu.Unlock()
	return nil
}

// SetAutoplay toggles autoplay-on-queue-end.
func (p *Player) SetAutoplay(on bool) {
	p.mu.Lock()
	p.autoplayOn = on
	p.mu.Unlock()
}

// SponsorBlockCategories returns the configured passthrough categories.
func (p *Player) SponsorBlockCategories() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.sponsorCategories))
	copy(out, p.sponsorCategories)
	return out
}

// SetSponsorBlockCategories records the categories the host wants passed
// through to the node's SponsorBlock plugin endpoint. The Player only
// stores them: no request carrying them is sent to the node.
func (p *Player) SetSponsorBlockCategories(categories []string) {
	p.mu.Lock()
	p.sponsorCategories = append([]string(nil), categories...)
	p.mu.Unlock()
}

// Stop clears the current track without touching the queue.
func (p *Player) Stop() {
	p.mu.Lock()
	p.current = nil
	p.playing = false
	p.mu.Unlock()
	p.pending.setTrack(nil)
}

// Destroy tears the Player down: optionally leaves voice, cancels pending
// work, destroys the node-side player, and is idempotent.
func (p *Player) Destroy(ctx context.Context, disconnect bool) error {
	var err error
	p.destroyOnce.Do(func() {
		p.mu.Lock()
		p.destroyed = true
		node := p.node
		sessionID := ""
		if node != nil {
			sessionID = node.SessionID()
		}
		p.mu.Unlock()

		if disconnect && p.sender != nil {
			_ = p.sender.SendVoiceCommand(gateway.LeaveCommand(p.guildID))
		}
		p.conn.Destroy()

		p.pending.mu.Lock()
		if p.pending.timer != nil {
			p.pending.timer.Stop()
			p.pending.timer = nil
		}
		p.pending.mu.Unlock()

		if node != nil {
			if derr := node.DestroyPlayer(ctx, sessionID, p.guildID); derr != nil {
				logger.Warn("player: destroy player on node failed",
					logger.String("guildId", p.guildID), logger.ErrorField(derr))
				err = derr
			}
		}
	})
	return err
}

// Destroyed reports whether Destroy has completed.
func (p *Player) Destroyed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.destroyed
}

// Restart re-applies current track, position, volume, filters and paused
// state to the bound node — used after reconnect, migration, or voice
// recovery.
func (p *Player) Restart(ctx context.Context) error {
	p.mu.RLock()
	node := p.node
	current := p.current
	pos := p.position
	vol := p.volume
	paused := p.paused
	p.mu.RUnlock()

	if node == nil {
		return errs.New(errs.Fatal, "Player.Restart", "no bound node")
	}

	body := restclient.UpdatePlayerBody{
		Position: &pos,
		Volume:   &vol,
		Paused:   &paused,
		Filters:  p.filters.Payload(),
	}
	if current != nil {
		encoded := current.Encoded
		body.Track = &restclient.UpdateTrack{Encoded: &encoded}
	}
	if binding := p.conn.Binding(); binding.SessionID != "" {
		body.Voice = &restclient.UpdateVoice{SessionID: binding.SessionID, Endpoint: binding.Endpoint, Token: binding.Token}
	}

	_, err := node.UpdatePlayer(ctx, node.SessionID(), p.guildID, body)
	if err != nil {
		return errs.Wrap(errs.TransientNetwork, "Player.Restart", "restart failed", err)
	}
	return nil
}

func (p *Player) scheduleFilterUpdate() {
	p.pending.setFilters(p.filters.Payload())
}

// FlushVoice implements connection.Flusher: pushes the voice block and
// current volume to the bound node, bypassing the player-mutation batch
// since voice updates run on their own cadence.
func (p *Player) FlushVoice(ctx context.Context, guildID string, binding connection.Binding, volume int) error {
	node := p.currentNode()
	if node == nil {
		return errs.New(errs.VoiceTimeout, "Player.FlushVoice", "no bound node")
	}
	body := restclient.UpdatePlayerBody{
		Voice:  &restclient.UpdateVoice{SessionID: binding.SessionID, Endpoint: binding.Endpoint, Token: binding.Token},
		Volume: &volume,
	}
	if _, err := node.UpdatePlayer(ctx, node.SessionID(), guildID, body); err != nil {
		return errs.Wrap(errs.TransientNetwork, "Player.FlushVoice", "voice push failed", err)
	}
	p.mu.Lock()
	p.connected = true
	p.region = binding.Region
	p.mu.Unlock()
	p.emit(Event{Kind: EventPlayerMove, ChannelID: p.conn.ChannelID()})
	return nil
}

// Connected reports whether the node considers the player connected: set
// when a voice push succeeds, then overwritten by each playerUpdate's
// connected flag.
func (p *Player) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// Region returns the advisory region derived from the voice endpoint.
func (p *Player) Region() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.region
}
