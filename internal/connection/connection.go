// Package connection implements the per-player voice binding: collating
// gateway state/server updates into a complete credential tuple, tracking
// channel moves and disconnects, and batching voice+volume pushes to the
// bound audio node.
package connection

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ryxu-xo/euralink/logger"
)

// State is the Connection lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Destroyed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Binding is the accumulated voice credential tuple. Valid once SessionID,
// Endpoint and Token are non-empty; Region is derived from Endpoint and
// never blocks validity.
type Binding struct {
	SessionID string
	Endpoint  string
	Token     string
	Region    string
}

func (b Binding) valid() bool {
	return b.SessionID != "" && b.Endpoint != "" && b.Token != ""
}

// Flusher pushes a voice+volume update to the bound node. Implemented by
// the Player using RestClient.UpdatePlayer.
type Flusher interface {
	FlushVoice(ctx context.Context, guildID string, binding Binding, volume int) error
}

// Config controls batching and retry behavior.
type Config struct {
	FlushDelay          time.Duration
	MaxReconnectAttempts int
	BackoffBase         time.Duration
}

// Connection is one player's voice binding state machine.
type Connection struct {
	cfg     Config
	guildID string
	flusher Flusher

	mu        sync.Mutex
	state     State
	channelID string
	binding   Binding
	volume    int

	hasState  bool
	hasServer bool

	pendingTimer *time.Timer
	flushing     bool
	dirty        bool

	closeOnce sync.Once
	closed    chan struct{}
}

// New builds a Connection for guildID, flushing through flusher.
func New(guildID string, flusher Flusher, cfg Config) *Connection {
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 50 * time.Millisecond
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 250 * time.Millisecond
	}
	return &Connection{
		cfg:     cfg,
		guildID: guildID,
		flusher: flusher,
		state:   Disconnected,
		volume:  100,
		closed:  make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Binding returns a copy of the current binding tuple.
func (c *Connection) Binding() Binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binding
}

// ChannelID returns the currently bound voice channel id.
func (c *Connection) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

// ApplyServerUpdate absorbs a VOICE_SERVER_UPDATE (endpoint + token).
func (c *Connection) ApplyServerUpdate(endpoint, token string) {
	c.mu.Lock()
	if c.state == Destroyed {
		c.mu.Unlock()
		return
	}
	c.binding.Endpoint = endpoint
	c.binding.Token = token
	c.binding.Region = extractRegion(endpoint)
	c.hasServer = true
	if c.state == Disconnected {
		c.state = Connecting
	}
	ready := c.hasState && c.hasServer && c.binding.valid()
	c.mu.Unlock()

	if ready {
		c.complete()
	}
}

// ApplyStateUpdate absorbs a VOICE_STATE_UPDATE for the bot's own user.
// channelID == "" signals the bot left voice entirely, which the caller
// (the Orchestrator's gateway routing) translates into a Player destroy.
func (c *Connection) ApplyStateUpdate(sessionID, channelID string) (moved bool) {
	c.mu.Lock()
	if c.state == Destroyed {
		c.mu.Unlock()
		return false
	}
	c.binding.SessionID = sessionID

	prevChannel := c.channelID
	c.channelID = channelID
	c.hasState = true

	wasConnected := c.state == Connected
	ready := c.hasState && c.hasServer && c.binding.valid()
	moved = wasConnected && prevChannel != "" && channelID != "" && prevChannel != channelID
	if c.state == Disconnected {
		c.state = Connecting
	}
	c.mu.Unlock()

	if ready {
		c.complete()
	} else if moved {
		c.scheduleFlush()
	}
	return moved
}

func (c *Connection) complete() {
	c.mu.Lock()
	if c.state == Destroyed {
		c.mu.Unlock()
		return
	}
	c.state = Connected
	c.mu.Unlock()
	c.scheduleFlush()
}

// SetVolume updates the pending volume and schedules a flush.
func (c *Connection) SetVolume(v int) {
	c.mu.Lock()
	c.volume = v
	c.mu.Unlock()
	c.scheduleFlush()
}

func (c *Connection) scheduleFlush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Destroyed {
		return
	}
	c.dirty = true
	if c.pendingTimer != nil {
		return
	}
	c.pendingTimer = time.AfterFunc(c.cfg.FlushDelay, c.runFlush)
}

func (c *Connection) runFlush() {
	c.mu.Lock()
	c.pendingTimer = nil
	if !c.dirty || c.state == Destroyed {
		c.mu.Unlock()
		return
	}
	c.dirty = false
	binding := c.binding
	volume := c.volume
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxReconnectAttempts; attempt++ {
		if err := c.flusher.FlushVoice(ctx, c.guildID, binding, volume); err != nil {
			lastErr = err
			delay := c.cfg.BackoffBase * time.Duration(1<<uint(attempt))
			select {
			case <-time.After(delay + jitter(50*time.Millisecond)):
				continue
			case <-c.closed:
				return
			}
		}
		return
	}
	if lastErr != nil {
		logger.Warn("connection: voice flush exhausted retries",
			logger.String("guildId", c.guildID), logger.ErrorField(lastErr))
	}
}

// Destroy tears down the connection; further updates are ignored.
func (c *Connection) Destroy() {
	c.closeOnce.Do(func() { close(c.closed) })
	c.mu.Lock()
	c.state = Destroyed
	if c.pendingTimer != nil {
		c.pendingTimer.Stop()
		c.pendingTimer = nil
	}
	c.mu.Unlock()
}

// extractRegion takes the endpoint hostname's first dot-segment and strips
// its trailing digits, leaving the leading alphabetic-plus-hyphen run
// (e.g. "us-east42.example:443" -> "us-east"), matching real Lavalink
// region naming. If the segment has no alphabetic-plus-hyphen prefix (a
// bare IP octet, say), the raw segment is used as-is.
func extractRegion(endpoint string) string {
	host := endpoint
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		return "unknown"
	}
	segment := host
	if i := strings.Index(host, "."); i > 0 {
		segment = host[:i]
	}
	end := 0
	for end < len(segment) {
		c := segment[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' {
			end++
			continue
		}
		break
	}
	if end > 0 {
		return strings.ToLower(segment[:end])
	}
	if segment != "" {
		return strings.ToLower(segment)
	}
	return "unknown"
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
