package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ryxu-xo/euralink/internal/errs"
	"github.com/ryxu-xo/euralink/internal/nodeclient"
	"github.com/ryxu-xo/euralink/internal/restclient"
	"github.com/ryxu-xo/euralink/internal/track"
)

// wireTrack is the node's loadtracks track shape, identical to
// nodeclient.RawTrack's but decoded independently since loadtracks and the
// event stream are separate REST/WS surfaces.
type wireTrack struct {
	Encoded string `json:"encoded"`
	Info    struct {
		Identifier string `json:"identifier"`
		Title      string `json:"title"`
		Author     string `json:"author"`
		Length     int64  `json:"length"`
		IsStream   bool   `json:"isStream"`
		IsSeekable bool   `json:"isSeekable"`
		SourceName string `json:"sourceName"`
		URI        string `json:"uri"`
		ISRC       string `json:"isrc"`
	} `json:"info"`
}

func (w wireTrack) toTrack(requester string) track.Track {
	return track.Track{
		Encoded:    w.Encoded,
		Identifier: w.Info.Identifier,
		Title:      w.Info.Title,
		Author:     w.Info.Author,
		Length:     w.Info.Length,
		IsStream:   w.Info.IsStream,
		IsSeekable: w.Info.IsSeekable,
		SourceName: w.Info.SourceName,
		URI:        w.Info.URI,
		ISRC:       w.Info.ISRC,
		Requester:  requester,
	}
}

type wirePlaylist struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Tracks []wireTrack `json:"tracks"`
}

// ResolveResult is the outcome of a resolve() call: exactly one of Track,
// PlaylistName+Tracks, or Tracks alone (search results) is meaningful,
// discriminated by LoadType.
type ResolveResult struct {
	LoadType     string
	Track        *track.Track
	PlaylistName string
	Tracks       []track.Track
}

func decodeLoadResult(result *restclient.LoadResult, requester string) (*ResolveResult, error) {
	out := &ResolveResult{LoadType: result.LoadType}
	switch result.LoadType {
	case "track":
		var w wireTrack
		if err := json.Unmarshal(result.Data, &w); err != nil {
			return nil, errs.Wrap(errs.Protocol, "resolve", "decode track", err)
		}
		t := w.toTrack(requester)
		out.Track = &t
	case "search":
		var ws []wireTrack
		if err := json.Unmarshal(result.Data, &ws); err != nil {
			return nil, errs.Wrap(errs.Protocol, "resolve", "decode search results", err)
		}
		out.Tracks = make([]track.Track, len(ws))
		for i, w := range ws {
			out.Tracks[i] = w.toTrack(requester)
		}
	case "playlist":
		var wp wirePlaylist
		if err := json.Unmarshal(result.Data, &wp); err != nil {
			return nil, errs.Wrap(errs.Protocol, "resolve", "decode playlist", err)
		}
		out.PlaylistName = wp.Info.Name
		out.Tracks = make([]track.Track, len(wp.Tracks))
		for i, w := range wp.Tracks {
			out.Tracks[i] = w.toTrack(requester)
		}
	case "empty", "error":
		// nothing to decode
	}
	return out, nil
}

// fallbackIdentifiers is the platform-scoped URL retry ladder used when a
// raw query resolves to loadType=empty.
func fallbackIdentifiers(query string) []string {
	return []string{
		"https://open.spotify.com/track/" + query,
		"https://www.youtube.com/watch?v=" + query,
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Resolve implements the resolve({query, source, requester}) operation:
// builds an identifier (the query as-is if it is a URL, else
// "source:query"), loads it from node, and on an empty result for a raw
// (non-URL) query retries with platform-scoped URL fallbacks in order,
// returning the first non-empty result.
func (o *Orchestrator) Resolve(ctx context.Context, node *nodeclient.Client, query, source, requester string) (*ResolveResult, error) {
	identifier := query
	if !isURL(query) {
		if source == "" {
			source = "ytsearch"
		}
		identifier = fmt.Sprintf("%s:%s", source, query)
	}

	result, err := node.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "Orchestrator.Resolve", "load "+identifier, err)
	}
	if result.LoadType != "empty" || isURL(query) {
		return decodeLoadResult(result, requester)
	}

	for _, fallback := range fallbackIdentifiers(query) {
		result, err = node.LoadTracks(ctx, fallback)
		if err != nil {
			continue
		}
		if result.LoadType != "empty" {
			return decodeLoadResult(result, requester)
		}
	}
	return decodeLoadResult(result, requester)
}

// nodeResolver implements player.Resolver: resolves a Track already
// carrying an Identifier (e.g. queued by autoplay) into one carrying an
// Encoded blob, via a single direct loadtracks call.
type nodeResolver struct {
	node *nodeclient.Client
}

func resolverFor(node *nodeclient.Client) nodeResolver {
	return nodeResolver{node: node}
}

func (r nodeResolver) ResolveTrack(ctx context.Context, t track.Track) (track.Track, error) {
	if t.Resolved() {
		return t, nil
	}
	identifier := t.URI
	if identifier == "" {
		identifier = t.Identifier
	}
	result, err := r.node.LoadTracks(ctx, identifier)
	if err != nil {
		return track.Track{}, errs.Wrap(errs.TransientNetwork, "nodeResolver.ResolveTrack", "load "+identifier, err)
	}
	decoded, err := decodeLoadResult(result, t.Requester)
	if err != nil {
		return track.Track{}, err
	}
	switch {
	case decoded.Track != nil:
		return *decoded.Track, nil
	case len(decoded.Tracks) > 0:
		return decoded.Tracks[0], nil
	default:
		return track.Track{}, errs.New(errs.Contract, "nodeResolver.ResolveTrack", "no match for "+identifier)
	}
}
