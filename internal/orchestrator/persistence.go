package orchestrator

import (
	"github.com/ryxu-xo/euralink/internal/errs"
	"github.com/ryxu-xo/euralink/internal/nodeclient"
	"github.com/ryxu-xo/euralink/internal/player"
)

// SnapshotStore is the persistence backend for the guildId -> Player
// snapshot map, satisfied by both store.FileStore and sqlstore.Store.
type SnapshotStore interface {
	Save(snapshots map[string]player.Snapshot) error
	Load() (map[string]player.Snapshot, error)
}

// SavePlayersState serializes every Player currently holding a current
// track or a non-empty queue and writes the result via store.
func (o *Orchestrator) SavePlayersState(store SnapshotStore) error {
	o.mu.RLock()
	snapshots := make(map[string]player.Snapshot)
	for guildID, p := range o.players {
		if p.Current() == nil && p.Queue().Empty() {
			continue
		}
		snapshots[guildID] = p.ToSnapshot()
	}
	o.mu.RUnlock()

	if err := store.Save(snapshots); err != nil {
		return errs.Wrap(errs.Fatal, "Orchestrator.SavePlayersState", "write snapshots", err)
	}
	return nil
}

// LoadPlayersState reads the persisted snapshot map and reconstructs one
// Player per entry on the best available node for region (the same region
// for every entry; snapshots carry no region of their own),
// registering each under its guildId. Existing Players are left untouched.
func (o *Orchestrator) LoadPlayersState(store SnapshotStore, region string) error {
	snapshots, err := store.Load()
	if err != nil {
		return errs.Wrap(errs.Fatal, "Orchestrator.LoadPlayersState", "read snapshots", err)
	}

	for guildID, snap := range snapshots {
		if _, exists := o.Player(guildID); exists {
			continue
		}

		node, err := o.pool.Select(region)
		if err != nil {
			return errs.Wrap(errs.Fatal, "Orchestrator.LoadPlayersState", "select node for "+guildID, err)
		}
		client := node.(*nodeclient.Client)

		p := player.FromSnapshot(snap, client, resolverFor(client), o.cfg.Autoplay, o.sender, o, o.cfg.PlayerConfig)

		o.mu.Lock()
		o.players[guildID] = p
		o.mu.Unlock()
	}
	return nil
}
