// Package orchestrator wires NodeClient, Pool and Player together into the
// process-wide object a host application drives: it owns the guildId ->
// Player map, the node registry, gateway packet routing, track resolution
// and persisted-state snapshotting.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/ryxu-xo/euralink/internal/autoplay"
	"github.com/ryxu-xo/euralink/internal/errs"
	"github.com/ryxu-xo/euralink/internal/gateway"
	"github.com/ryxu-xo/euralink/internal/nodeclient"
	"github.com/ryxu-xo/euralink/internal/player"
	"github.com/ryxu-xo/euralink/internal/pool"
	"github.com/ryxu-xo/euralink/internal/restclient"
	"github.com/ryxu-xo/euralink/logger"
)

// NodeSpec describes one node to dial at startup.
type NodeSpec struct {
	Name     string
	Host     string
	Password string
	Secure   bool
	Regions  []string
}

// Config controls every Player's defaults and pool behavior.
type Config struct {
	BotUserID string

	PlayerConfig player.Config
	PoolConfig   pool.Config

	NodeReconnectTries   int
	NodeReconnectTimeout time.Duration

	// RestConfig is applied as a template to every node's RestClient
	// (retry/timeout/cache/rate-limit knobs); BaseURL and Password are
	// always overwritten per-node from its NodeSpec.
	RestConfig restclient.Config

	Autoplay autoplay.Resolver

	// Observer, if set, receives every Player's lifecycle events
	// (trackStart, trackEnd, playerError, ...) for the host application
	// to relay to chat or metrics. Optional.
	Observer player.Observer
}

// Orchestrator is the top-level object a host application constructs once
// per process.
type Orchestrator struct {
	cfg    Config
	sender gateway.Sender
	pool   *pool.Pool

	mu      sync.RWMutex
	nodes   map[string]*nodeclient.Client
	players map[string]*player.Player
}

// New builds an Orchestrator with no nodes connected yet; call AddNode for
// each configured node.
func New(cfg Config, sender gateway.Sender) *Orchestrator {
	if cfg.Autoplay == nil {
		cfg.Autoplay = autoplay.Null{}
	}
	return &Orchestrator{
		cfg:     cfg,
		sender:  sender,
		pool:    pool.New(cfg.PoolConfig),
		nodes:   make(map[string]*nodeclient.Client),
		players: make(map[string]*player.Player),
	}
}

// AddNode dials a new node and registers it with the Pool. The connection
// is established asynchronously; the node only becomes selectable once it
// reaches Ready.
func (o *Orchestrator) AddNode(ctx context.Context, spec NodeSpec) *nodeclient.Client {
	client := nodeclient.New(nodeclient.Config{
		Name:             spec.Name,
		Host:             spec.Host,
		Password:         spec.Password,
		Secure:           spec.Secure,
		Regions:          spec.Regions,
		UserID:           o.cfg.BotUserID,
		ClientName:       "euralink",
		ReconnectTries:   o.cfg.NodeReconnectTries,
		ReconnectTimeout: o.cfg.NodeReconnectTimeout,
		RestConfig:       o.cfg.RestConfig,
	}, o)

	o.mu.Lock()
	o.nodes[spec.Name] = client
	o.mu.Unlock()

	o.pool.AddNode(client)
	client.Connect(ctx)
	return client
}

// RemoveNode disconnects and forgets a node.
func (o *Orchestrator) RemoveNode(name string) {
	o.mu.Lock()
	client, ok := o.nodes[name]
	delete(o.nodes, name)
	o.mu.Unlock()
	if !ok {
		return
	}
	client.Destroy()
	o.pool.RemoveNode(name)
}

// Node returns the named node client, if registered.
func (o *Orchestrator) Node(name string) (*nodeclient.Client, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, ok := o.nodes[name]
	return c, ok
}

// Pool exposes the underlying Pool for introspection (admin API, ops CLI).
func (o *Orchestrator) Pool() *pool.Pool { return o.pool }

// ListNodes returns every registered node client, for introspection by the
// admin API and the nodes CLI subcommand.
func (o *Orchestrator) ListNodes() []*nodeclient.Client {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*nodeclient.Client, 0, len(o.nodes))
	for _, c := range o.nodes {
		out = append(out, c)
	}
	return out
}

// Players returns every currently bound Player, for introspection by the
// admin API.
func (o *Orchestrator) Players() []*player.Player {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*player.Player, 0, len(o.players))
	for _, p := range o.players {
		out = append(out, p)
	}
	return out
}

// Player returns the Player bound to guildID, if one exists.
func (o *Orchestrator) Player(guildID string) (*player.Player, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.players[guildID]
	return p, ok
}

// CreateConnection selects a node for region, builds a Player bound to it
// and registers it under guildID. Returns the existing Player if one is
// already bound to guildID.
func (o *Orchestrator) CreateConnection(guildID, textChannel, voiceChannel, region string) (*player.Player, error) {
	o.mu.Lock()
	if existing, ok := o.players[guildID]; ok {
		o.mu.Unlock()
		return existing, nil
	}
	o.mu.Unlock()

	node, err := o.pool.Select(region)
	if err != nil {
		return nil, errs.Wrap(errs.Fatal, "Orchestrator.CreateConnection", "select node", err)
	}
	client := node.(*nodeclient.Client)

	p := player.New(guildID, client, resolverFor(client), o.cfg.Autoplay, o.sender, o, o.cfg.PlayerConfig)
	p.SetChannels(textChannel, voiceChannel)

	if info, err := client.GetInfo(context.Background()); err == nil {
		p.Filters().SetSupportChecker(supportChecker{info: info})
	}

	o.mu.Lock()
	o.players[guildID] = p
	o.mu.Unlock()

	return p, nil
}

// DestroyConnection tears down the Player bound to guildID, optionally
// sending a voice-leave command, and forgets it.
func (o *Orchestrator) DestroyConnection(ctx context.Context, guildID string, disconnect bool) error {
	o.mu.Lock()
	p, ok := o.players[guildID]
	delete(o.players, guildID)
	o.mu.Unlock()
	if !ok {
		return nil
	}
	return p.Destroy(ctx, disconnect)
}

// ListPlayers implements pool.PlayerLister, handing the Pool the live
// migratable-player set for rebalancing.
func (o *Orchestrator) ListPlayers() []pool.MigratablePlayer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]pool.MigratablePlayer, 0, len(o.players))
	for _, p := range o.players {
		out = append(out, migrationAdapter{p})
	}
	return out
}

// RunRebalanceLoop starts the Pool's periodic rebalance pass, using this
// Orchestrator as the PlayerLister, until ctx is canceled.
func (o *Orchestrator) RunRebalanceLoop(ctx context.Context) {
	o.pool.RunRebalanceLoop(ctx, o)
}

// OnPlayerEvent implements player.Observer, relaying every Player's events
// to the host-supplied Observer, if any.
func (o *Orchestrator) OnPlayerEvent(ev player.Event) {
	if o.cfg.Observer != nil {
		o.cfg.Observer.OnPlayerEvent(ev)
	}
}

// Shutdown stops rebalancing and disconnects every node.
func (o *Orchestrator) Shutdown() {
	o.pool.Stop()
	o.mu.Lock()
	defer o.mu.Unlock()
	for name, c := range o.nodes {
		c.Destroy()
		logger.Info("orchestrator: node disconnected on shutdown", logger.String("node", name))
	}
}

// migrationAdapter bridges *player.Player's SetNode(player.NodeHandle) to
// pool.MigratablePlayer's SetNode(pool.Node): pool.Node's method set is a
// superset of player.NodeHandle's, so the parameter assigns through
// directly.
type migrationAdapter struct{ p *player.Player }

func (a migrationAdapter) GuildID() string    { return a.p.GuildID() }
func (a migrationAdapter) NodeName() string   { return a.p.NodeName() }
func (a migrationAdapter) SetNode(n pool.Node) { a.p.SetNode(n) }
func (a migrationAdapter) Restart(ctx context.Context) error { return a.p.Restart(ctx) }
