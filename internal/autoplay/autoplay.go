// Package autoplay defines the capability a Player uses to pick the next
// track once its queue drains, without this repository shipping a concrete
// source scraper.
package autoplay

import (
	"context"

	"github.com/ryxu-xo/euralink/internal/track"
)

// Resolver looks up the next identifier to queue given the track that just
// finished. An empty identifier with a nil error means "nothing to play".
type Resolver interface {
	NextFor(ctx context.Context, last track.Track) (identifier string, err error)
}

// Null is a Resolver that never suggests a next track. It is the default
// wired by the Orchestrator when its Config.Autoplay resolver is nil.
type Null struct{}

func (Null) NextFor(ctx context.Context, last track.Track) (string, error) {
	return "", nil
}

// Static is a test/ops double that always returns the same identifier,
// regardless of the track that just finished.
type Static struct {
	Identifier string
}

func (s Static) NextFor(ctx context.Context, last track.Track) (string, error) {
	return s.Identifier, nil
}
