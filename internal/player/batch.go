package player

import (
	"context"
	"sync"
	"time"

	"github.com/ryxu-xo/euralink/internal/restclient"
	"github.com/ryxu-xo/euralink/logger"
)

// pendingUpdate merges mutations keyed by field name; the latest value per
// field wins when a flush finally runs.
type pendingUpdate struct {
	mu sync.Mutex

	hasTrack  bool
	track     *string // nil means "stop" (track.encoded = null)
	hasPos    bool
	position  int64
	hasPaused bool
	paused    bool
	hasVolume bool
	volume    int
	hasFilter bool
	filters   interface{}

	timer     *time.Timer
	flushFn   func()
	batchWait time.Duration
}

func newPendingUpdate(batchWait time.Duration, flushFn func()) *pendingUpdate {
	if batchWait <= 0 {
		batchWait = 25 * time.Millisecond
	}
	return &pendingUpdate{batchWait: batchWait, flushFn: flushFn}
}

func (p *pendingUpdate) setTrack(encoded *string) {
	p.mu.Lock()
	p.hasTrack = true
	p.track = encoded
	p.mu.Unlock()
	p.schedule()
}

func (p *pendingUpdate) setPosition(pos int64) {
	p.mu.Lock()
	p.hasPos = true
	p.position = pos
	p.mu.Unlock()
	p.schedule()
}

func (p *pendingUpdate) setPaused(v bool) {
	p.mu.Lock()
	p.hasPaused = true
	p.paused = v
	p.mu.Unlock()
	p.schedule()
}

func (p *pendingUpdate) setVolume(v int) {
	p.mu.Lock()
	p.hasVolume = true
	p.volume = v
	p.mu.Unlock()
	p.schedule()
}

func (p *pendingUpdate) setFilters(f interface{}) {
	p.mu.Lock()
	p.hasFilter = true
	p.filters = f
	p.mu.Unlock()
	p.schedule()
}

func (p *pendingUpdate) schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		return
	}
	p.timer = time.AfterFunc(p.batchWait, p.flushFn)
}

// drain returns the accumulated body and resets pending state, or ok=false
// if nothing was pending.
func (p *pendingUpdate) drain() (restclient.UpdatePlayerBody, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timer = nil
	if !p.hasTrack && !p.hasPos && !p.hasPaused && !p.hasVolume && !p.hasFilter {
		return restclient.UpdatePlayerBody{}, false
	}
	var body restclient.UpdatePlayerBody
	if p.hasTrack {
		body.Track = &restclient.UpdateTrack{Encoded: p.track}
	}
	if p.hasPos {
		pos := p.position
		body.Position = &pos
	}
	if p.hasPaused {
		paused := p.paused
		body.Paused = &paused
	}
	if p.hasVolume {
		vol := p.volume
		body.Volume = &vol
	}
	if p.hasFilter {
		body.Filters = p.filters
	}
	p.hasTrack, p.hasPos, p.hasPaused, p.hasVolume, p.hasFilter = false, false, false, false, false
	return body, true
}

// flushBatch runs the drained body against the node; failures are logged but
// never lose the pending state's authority — the caller remains free to
// re-trigger a flush on the next mutation.
func (p *Player) flushBatch() {
	body, ok := p.pending.drain()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	node := p.currentNode()
	if node == nil {
		logger.Debug("player: flush skipped, no bound node", logger.String("guildId", p.guildID))
		return
	}
	if _, err := node.UpdatePlayer(ctx, node.SessionID(), p.guildID, body); err != nil {
		logger.Warn("player: batched update flush failed",
			logger.String("guildId", p.guildID), logger.ErrorField(err))
		p.emit(Event{Kind: EventPlayerError, Err: err})
	}
}
