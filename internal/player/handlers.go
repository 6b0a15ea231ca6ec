package player

import (
	"context"
	"time"

	"github.com/ryxu-xo/euralink/internal/gateway"
	"github.com/ryxu-xo/euralink/internal/nodeclient"
	"github.com/ryxu-xo/euralink/internal/track"
	"github.com/ryxu-xo/euralink/logger"
)

// HandlePlayerUpdate absorbs a playerUpdate event from the bound node:
// position, ping, connected and timestamp. Stuck-playback detection
// compares the reported position against the last observed one and fires
// voice recovery only once the position has stayed unchanged for
// StuckThreshold, so a track advancing normally never trips it.
func (p *Player) HandlePlayerUpdate(update nodeclient.PlayerUpdate) {
	p.mu.Lock()
	p.position = update.State.Position
	p.posAt = time.Now()
	p.ping = update.State.Ping
	p.connected = update.State.Connected

	playing := p.playing
	paused := p.paused

	if !playing || paused {
		p.lastPosition = update.State.Position
		p.lastPositionUpdate = time.Time{}
		p.mu.Unlock()
		return
	}

	if p.lastPositionUpdate.IsZero() || update.State.Position != p.lastPosition {
		p.lastPosition = update.State.Position
		p.lastPositionUpdate = time.Now()
		p.mu.Unlock()
		return
	}

	stuck := time.Since(p.lastPositionUpdate) >= p.cfg.StuckThreshold
	if stuck {
		p.lastPositionUpdate = time.Now()
	}
	p.mu.Unlock()

	if stuck {
		go p.recoverVoice(context.Background())
	}
}

// HandleTrackStart marks the player as actively playing and resets the
// voice-recovery attempt counter.
func (p *Player) HandleTrackStart(t track.Track) {
	p.mu.Lock()
	p.playing = true
	p.reconnectAttempts = 0
	p.mu.Unlock()
	p.emit(Event{Kind: EventTrackStart, Track: t})
}

// HandleTrackEnd implements the seven-step TrackEnd branching in order.
func (p *Player) HandleTrackEnd(t track.Track, reason nodeclient.EndReason) {
	p.history.Append(t, time.Now().UnixMilli())
	ctx := context.Background()

	if reason == nodeclient.ReasonReplaced {
		p.emit(Event{Kind: EventTrackEnd, Track: t, Reason: string(reason)})
		return
	}

	if !p.Connected() {
		p.emit(Event{Kind: EventQueueEnd, Track: t})
		return
	}

	loop := p.Loop()
	stopped := reason == nodeclient.ReasonStopped

	switch {
	case loop == LoopTrack && !stopped:
		p.queue.Unshift(t)
		p.playNext(ctx)
	case loop == LoopQueue && !stopped:
		p.queue.Add(t)
		p.playNext(ctx)
	case !p.queue.Empty():
		p.playNext(ctx)
	case p.autoplayEnabled():
		p.tryAutoplay(ctx, t)
	default:
		p.mu.Lock()
		p.playing = false
		p.current = nil
		p.mu.Unlock()
		p.emit(Event{Kind: EventQueueEnd, Track: t})
	}
}

func (p *Player) autoplayEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.autoplayOn && p.autoplay != nil
}

func (p *Player) playNext(ctx context.Context) {
	if err := p.Play(ctx); err != nil {
		p.emit(Event{Kind: EventPlayerError, Err: err})
	}
}

func (p *Player) tryAutoplay(ctx context.Context, previous track.Track) {
	identifier, err := p.autoplay.NextFor(ctx, previous)
	if err != nil || identifier == "" {
		if err != nil {
			p.emit(Event{Kind: EventTrackError, Err: err})
		}
		p.mu.Lock()
		p.playing = false
		p.current = nil
		p.mu.Unlock()
		p.emit(Event{Kind: EventQueueEnd, Track: previous})
		return
	}
	p.queue.Add(track.Track{Identifier: identifier})
	p.playNext(ctx)
}

// HandleTrackException and HandleTrackStuck both surface an observation
// and, for the stuck case, attempt voice recovery.
func (p *Player) HandleTrackException(t track.Track, message string) {
	p.emit(Event{Kind: EventTrackError, Track: t, Reason: message})
}

func (p *Player) HandleTrackStuck(t track.Track, thresholdMs int64) {
	p.emit(Event{Kind: EventTrackError, Track: t, Reason: "stuck"})
	go p.recoverVoice(context.Background())
}

// HandleWebSocketClosed surfaces the observation and, if autoResume is
// enabled and a current track exists, schedules a restart after a grace
// period.
func (p *Player) HandleWebSocketClosed(code int, reason string, byRemote bool) {
	p.emit(Event{Kind: EventSocketClosed, Code: code, Reason: reason, ByRemote: byRemote})

	if !p.cfg.AutoResume || p.Current() == nil {
		return
	}
	go func() {
		time.Sleep(2 * time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := p.Restart(ctx); err != nil {
			logger.Warn("player: post-close restart failed",
				logger.String("guildId", p.guildID), logger.ErrorField(err))
		}
	}()
}

// recoverVoice re-issues the voice-join handshake and restarts playback,
// backing off between attempts up to MaxReconnectTries.
func (p *Player) recoverVoice(ctx context.Context) {
	p.mu.Lock()
	if p.reconnectAttempts >= p.cfg.MaxReconnectTries {
		p.mu.Unlock()
		p.emit(Event{Kind: EventConnectionErr, Reason: "voice recovery attempts exhausted"})
		return
	}
	p.reconnectAttempts++
	attempt := p.reconnectAttempts
	channel := p.voiceChannel
	p.mu.Unlock()

	if p.sender != nil && channel != "" {
		if err := p.sender.SendVoiceCommand(gateway.JoinCommand(p.guildID, channel, false, false)); err != nil {
			p.emit(Event{Kind: EventConnectionErr, Err: err})
		}
	}

	time.Sleep(p.cfg.ReconnectDelay * time.Duration(attempt))

	if err := p.Restart(ctx); err != nil {
		p.emit(Event{Kind: EventConnectionErr, Err: err})
	}
}
