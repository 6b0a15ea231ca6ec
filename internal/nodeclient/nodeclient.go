// Package nodeclient owns one persistent event-stream connection and one
// RestClient to a single audio node: lifecycle states, event demux,
// reconnect-with-backoff, session resumption, and rolling health stats.
package nodeclient

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ryxu-xo/euralink/internal/errs"
	"github.com/ryxu-xo/euralink/internal/restclient"
	"github.com/ryxu-xo/euralink/logger"
)

// State is the NodeClient lifecycle state machine.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Config describes one audio node's identity and connection parameters.
type Config struct {
	Name     string
	Host     string // host:port, no scheme
	Password string
	Secure   bool

	UserID     string
	ClientName string
	Regions    []string

	ReconnectTries   int
	ReconnectTimeout time.Duration

	RestConfig restclient.Config
}

// EventDispatcher receives demultiplexed per-guild events. Implemented by
// the Orchestrator/Pool layer that owns the guildId -> Player map.
type EventDispatcher interface {
	DispatchGuildEvent(nodeName string, guildID string, event Event)
	DispatchPlayerUpdate(nodeName, guildID string, update PlayerUpdate)
}

// Client is one live connection to an audio node.
type Client struct {
	cfg  Config
	Rest *restclient.Client

	mu            sync.RWMutex
	state         State
	sessionID     string
	resumeEnabled bool
	reconnectN    int
	fenceID       string

	stats *StatsWindow

	dispatcher EventDispatcher

	conn       *websocket.Conn
	cancel     context.CancelFunc
	closedOnce sync.Once
	closed     chan struct{}
}

// New builds a Client for one node. Connect must be called to start the
// event stream.
func New(cfg Config, dispatcher EventDispatcher) *Client {
	if cfg.ReconnectTries <= 0 {
		cfg.ReconnectTries = 3
	}
	if cfg.ReconnectTimeout <= 0 {
		cfg.ReconnectTimeout = time.Second
	}
	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}
	cfg.RestConfig.BaseURL = scheme + "://" + cfg.Host
	cfg.RestConfig.Password = cfg.Password

	return &Client{
		cfg:        cfg,
		Rest:       restclient.New(cfg.RestConfig),
		state:      Disconnected,
		stats:      NewStatsWindow(10),
		dispatcher: dispatcher,
		closed:     make(chan struct{}),
		fenceID:    uuid.NewString(),
	}
}

// Name returns the configured node name.
func (c *Client) Name() string { return c.cfg.Name }

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// SessionID returns the session id recorded on the last successful Ready,
// empty if the client has never reached Ready.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// FenceID returns the current fence token, regenerated every time this
// client (re)establishes Ready. Events are not tagged with it; stale events
// from a node a Player has migrated off are dropped by the Orchestrator's
// dispatcher, which compares the sending node's name with the Player's.
func (c *Client) FenceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fenceID
}

// Stats returns the rolling stats/health window.
func (c *Client) Stats() *StatsWindow { return c.stats }

// IsReady reports whether this client has completed the Ready handshake
// and is currently eligible for selection.
func (c *Client) IsReady() bool { return c.State() == Ready }

// Score reports the current composite health score, lower is better. Used
// by Pool for least-used selection and migration comparisons.
func (c *Client) Score() float64 { return c.stats.Score() }

// Regions returns the configured region tags this node advertises.
func (c *Client) Regions() []string { return c.cfg.Regions }

// UpdatePlayer proxies to the REST client, letting Client satisfy
// player.NodeHandle/pool.Node directly.
func (c *Client) UpdatePlayer(ctx context.Context, sessionID, guildID string, body restclient.UpdatePlayerBody) (*restclient.Response, error) {
	return c.Rest.UpdatePlayer(ctx, sessionID, guildID, body)
}

// DestroyPlayer proxies to the REST client.
func (c *Client) DestroyPlayer(ctx context.Context, sessionID, guildID string) error {
	return c.Rest.DestroyPlayer(ctx, sessionID, guildID)
}

// LoadTracks proxies to the REST client.
func (c *Client) LoadTracks(ctx context.Context, identifier string) (*restclient.LoadResult, error) {
	return c.Rest.LoadTracks(ctx, identifier)
}

// GetInfo proxies to the REST client.
func (c *Client) GetInfo(ctx context.Context) (*restclient.NodeInfo, error) {
	return c.Rest.GetInfo(ctx)
}

// ResumeEnabled reports whether a resume window is currently configured
// on the node for this client's session.
func (c *Client) ResumeEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resumeEnabled
}

// wsURL builds the event-stream dial target.
func (c *Client) wsURL() string {
	scheme := "ws"
	if c.cfg.Secure {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: c.cfg.Host, Path: "/v4/websocket"}
	return u.String()
}

// Connect dials the event stream and runs the read loop until ctx is
// canceled or Destroy is called, reconnecting internally with backoff.
func (c *Client) Connect(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.runLoop(runCtx)
}

// Destroy tears down the connection and cancels all per-node work.
func (c *Client) Destroy() {
	c.closedOnce.Do(func() {
		c.mu.Lock()
		if c.cancel != nil {
			c.cancel()
		}
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		close(c.closed)
	})
	c.setState(Disconnected)
}

func (c *Client) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.connectOnce(ctx); err != nil {
			logger.Warn("nodeclient: connection attempt failed",
				logger.String("node", c.cfg.Name), logger.ErrorField(err))
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		c.reconnectN++
		n := c.reconnectN
		c.mu.Unlock()

		if n > c.cfg.ReconnectTries {
			logger.Error("nodeclient: exceeded reconnect attempts, giving up",
				logger.String("node", c.cfg.Name), logger.Int("attempts", n))
			c.setState(Disconnected)
			return
		}

		delay := backoff(c.cfg.ReconnectTimeout, n)
		logger.Info("nodeclient: reconnecting",
			logger.String("node", c.cfg.Name), logger.Int("attempt", n), logger.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base * time.Duration(1<<uint(attempt))
	const capDelay = 30 * time.Second
	if d > capDelay || d <= 0 {
		d = capDelay
	}
	return d + jitter(250*time.Millisecond)
}

func (c *Client) connectOnce(ctx context.Context) error {
	c.setState(Connecting)

	header := http.Header{}
	header.Set("Authorization", c.cfg.Password)
	header.Set("User-Id", c.cfg.UserID)
	header.Set("Client-Name", c.cfg.ClientName)
	if sid := c.SessionID(); sid != "" && c.ResumeEnabled() {
		header.Set("Session-Id", sid)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL(), header)
	if err != nil {
		return errs.Wrap(errs.TransientNetwork, "NodeClient.Connect", "dial failed", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(Open)

	conn.SetPongHandler(func(string) error { return nil })

	return c.readLoop(ctx, conn)
}
