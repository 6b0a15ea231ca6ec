package orchestrator

import (
	"context"

	"github.com/ryxu-xo/euralink/internal/errs"
)

// ForceMigrate moves guildID's Player onto nodeName regardless of health
// score, for the admin API's manual-ops force-migrate route.
func (o *Orchestrator) ForceMigrate(ctx context.Context, guildID, nodeName string) error {
	o.mu.RLock()
	p, ok := o.players[guildID]
	o.mu.RUnlock()
	if !ok {
		return errs.New(errs.Fatal, "Orchestrator.ForceMigrate", "no player bound to guild "+guildID)
	}

	node, ok := o.pool.Node(nodeName)
	if !ok {
		return errs.New(errs.Fatal, "Orchestrator.ForceMigrate", "no such node "+nodeName)
	}

	return o.pool.Migrate(ctx, migrationAdapter{p}, node)
}
