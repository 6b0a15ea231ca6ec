// Package pool owns the set of NodeClients: health scoring, region-filtered
// selection, and periodic rebalancing (session migration) between nodes.
package pool

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ryxu-xo/euralink/internal/errs"
	"github.com/ryxu-xo/euralink/internal/restclient"
	"github.com/ryxu-xo/euralink/logger"
)

// Node is the subset of NodeClient the Pool needs to score, select on and
// hand to a migrating Player. Its method set is a superset of
// player.NodeHandle, so a Node value assigns directly into SetNode.
type Node interface {
	Name() string
	SessionID() string
	IsReady() bool
	Score() float64
	Regions() []string
	UpdatePlayer(ctx context.Context, sessionID, guildID string, body restclient.UpdatePlayerBody) (*restclient.Response, error)
	DestroyPlayer(ctx context.Context, sessionID, guildID string) error
}

// MigratablePlayer is the subset of Player the Pool needs to migrate a
// guild's session between nodes.
type MigratablePlayer interface {
	GuildID() string
	NodeName() string
	SetNode(node Node)
	Restart(ctx context.Context) error
}

// Config controls rebalance cadence and migration sensitivity.
type Config struct {
	RebalanceInterval  time.Duration
	MigrationThreshold float64
	HealthCacheTTL     time.Duration
}

type cachedScore struct {
	score   float64
	at      time.Time
}

// Pool holds the live set of nodes and drives rebalancing.
type Pool struct {
	cfg Config

	mu    sync.RWMutex
	nodes map[string]Node

	cacheMu sync.Mutex
	cache   map[string]cachedScore

	stopOnce sync.Once
	stop     chan struct{}
}

// New builds an empty Pool.
func New(cfg Config) *Pool {
	if cfg.RebalanceInterval <= 0 {
		cfg.RebalanceInterval = 30 * time.Second
	}
	if cfg.MigrationThreshold <= 0 {
		cfg.MigrationThreshold = 1.0
	}
	if cfg.HealthCacheTTL <= 0 {
		cfg.HealthCacheTTL = 30 * time.Second
	}
	return &Pool{
		cfg:   cfg,
		nodes: make(map[string]Node),
		cache: make(map[string]cachedScore),
		stop:  make(chan struct{}),
	}
}

// AddNode registers a node with the pool.
func (p *Pool) AddNode(n Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes[n.Name()] = n
}

// RemoveNode unregisters a node by name.
func (p *Pool) RemoveNode(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.nodes, name)
	p.cacheMu.Lock()
	delete(p.cache, name)
	p.cacheMu.Unlock()
}

// Node returns the named node, if registered.
func (p *Pool) Node(name string) (Node, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n, ok := p.nodes[name]
	return n, ok
}

// Count returns the number of registered nodes.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.nodes)
}

func (p *Pool) scoreOf(n Node) float64 {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if c, ok := p.cache[n.Name()]; ok && time.Since(c.at) < p.cfg.HealthCacheTTL {
		return c.score
	}
	s := n.Score()
	p.cache[n.Name()] = cachedScore{score: s, at: time.Now()}
	return s
}

// LeastUsed returns connected nodes sorted ascending by cached health
// score.
func (p *Pool) LeastUsed() []Node {
	p.mu.RLock()
	nodes := make([]Node, 0, len(p.nodes))
	for _, n := range p.nodes {
		if n.IsReady() {
			nodes = append(nodes, n)
		}
	}
	p.mu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool {
		return p.scoreOf(nodes[i]) < p.scoreOf(nodes[j])
	})
	return nodes
}

// ForRegion filters connected nodes advertising region, falling back to
// LeastUsed if none match.
func (p *Pool) ForRegion(region string) []Node {
	region = strings.ToLower(region)
	if region == "" {
		return p.LeastUsed()
	}
	all := p.LeastUsed()
	matched := make([]Node, 0, len(all))
	for _, n := range all {
		for _, r := range n.Regions() {
			if strings.ToLower(r) == region {
				matched = append(matched, n)
				break
			}
		}
	}
	if len(matched) == 0 {
		return all
	}
	return matched
}

// Select picks a node for a new Player: region-scoped if region is
// non-empty, otherwise least-used. Returns a Fatal error if no node is
// connected.
func (p *Pool) Select(region string) (Node, error) {
	var candidates []Node
	if region != "" {
		candidates = p.ForRegion(region)
	} else {
		candidates = p.LeastUsed()
	}
	if len(candidates) == 0 {
		return nil, errs.New(errs.Fatal, "Pool.Select", "no connected nodes available")
	}
	return candidates[0], nil
}

// PlayerLister is implemented by the Orchestrator to hand the Pool the
// live set of Players to consider during rebalance.
type PlayerLister interface {
	ListPlayers() []MigratablePlayer
}

// Rebalance compares each Player's current node score to the best node's
// score and migrates when the gap exceeds MigrationThreshold*100.
func (p *Pool) Rebalance(ctx context.Context, lister PlayerLister) error {
	best := p.LeastUsed()
	if len(best) == 0 {
		return nil
	}
	bestNode := best[0]
	bestScore := p.scoreOf(bestNode)

	var errsAgg *multierror.Error
	for _, pl := range lister.ListPlayers() {
		current, ok := p.Node(pl.NodeName())
		if !ok {
			continue
		}
		if current.Name() == bestNode.Name() {
			continue
		}
		currentScore := p.scoreOf(current)
		if currentScore-bestScore <= p.cfg.MigrationThreshold*100 {
			continue
		}
		if err := p.Migrate(ctx, pl, bestNode); err != nil {
			errsAgg = multierror.Append(errsAgg, err)
		}
	}
	if errsAgg != nil {
		return errsAgg.ErrorOrNil()
	}
	return nil
}

// Migrate reassigns pl to newNode and restarts it there. Best-effort and
// idempotent: a failed migration leaves pl bound to its previous node.
func (p *Pool) Migrate(ctx context.Context, pl MigratablePlayer, newNode Node) error {
	previousNode := pl.NodeName()
	pl.SetNode(newNode)
	if err := pl.Restart(ctx); err != nil {
		logger.Warn("pool: migration restart failed, reverting binding",
			logger.String("guildId", pl.GuildID()), logger.String("from", previousNode), logger.String("to", newNode.Name()), logger.ErrorField(err))
		if prev, ok := p.Node(previousNode); ok {
			pl.SetNode(prev)
		}
		return errs.Wrap(errs.TransientNetwork, "Pool.Migrate", "restart on new node failed", err)
	}
	logger.Info("pool: migrated player",
		logger.String("guildId", pl.GuildID()), logger.String("from", previousNode), logger.String("to", newNode.Name()))
	return nil
}

// RunRebalanceLoop periodically calls Rebalance until ctx is canceled or
// Stop is called.
func (p *Pool) RunRebalanceLoop(ctx context.Context, lister PlayerLister) {
	ticker := time.NewTicker(p.cfg.RebalanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			if err := p.Rebalance(ctx, lister); err != nil {
				logger.Warn("pool: rebalance pass reported errors", logger.ErrorField(err))
			}
		}
	}
}

// Stop halts RunRebalanceLoop.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}
