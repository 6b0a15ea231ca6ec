package restclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ryxu-xo/euralink/internal/errs"
)

// UpdatePlayerBody mirrors the PATCH .../players/{guildId} partial body.
type UpdatePlayerBody struct {
	Track    *UpdateTrack    `json:"track,omitempty"`
	Position *int64          `json:"position,omitempty"`
	Volume   *int            `json:"volume,omitempty"`
	Paused   *bool           `json:"paused,omitempty"`
	Filters  interface{}     `json:"filters,omitempty"`
	Voice    *UpdateVoice    `json:"voice,omitempty"`
}

// UpdateTrack carries the encoded blob to play, or an explicit null to
// stop playback (Encoded == nil).
type UpdateTrack struct {
	Encoded *string `json:"encoded"`
}

// UpdateVoice is the voice credential block pushed to a node.
type UpdateVoice struct {
	SessionID string `json:"sessionId"`
	Endpoint  string `json:"endpoint"`
	Token     string `json:"token"`
}

// LoadResult is the decoded /v4/loadtracks response.
type LoadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

// NodeInfo is the decoded /v4/info response.
type NodeInfo struct {
	Version struct {
		Semver string `json:"semver"`
	} `json:"version"`
	Filters       []string `json:"filters"`
	SourceManagers []string `json:"sourceManagers"`
	Plugins       []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"plugins"`
}

// UpdatePlayer sends a partial player update for guildID.
func (c *Client) UpdatePlayer(ctx context.Context, sessionID, guildID string, body UpdatePlayerBody) (*Response, error) {
	path := fmt.Sprintf("/v4/sessions/%s/players/%s", sessionID, guildID)
	payload, err := encodeJSON(body)
	if err != nil {
		return nil, errs.Wrap(errs.Validation, "RestClient.UpdatePlayer", "encode body", err)
	}
	resp, err := c.Request(ctx, http.MethodPatch, path, payload)
	if err != nil {
		return nil, translateError("RestClient.UpdatePlayer", err)
	}
	return resp, nil
}

// DestroyPlayer deletes the player session for guildID. Idempotent: a
// second call for an already-destroyed player still returns cleanly from
// the caller's perspective (Player.destroy() guards against re-issuing
// this call at all).
func (c *Client) DestroyPlayer(ctx context.Context, sessionID, guildID string) error {
	path := fmt.Sprintf("/v4/sessions/%s/players/%s", sessionID, guildID)
	_, err := c.Request(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return translateError("RestClient.DestroyPlayer", err)
	}
	return nil
}

// LoadTracks resolves identifier via /v4/loadtracks, using the (longer
// TTL) track-load cache keyed by identifier.
func (c *Client) LoadTracks(ctx context.Context, identifier string) (*LoadResult, error) {
	path := "/v4/loadtracks?identifier=" + urlEncode(identifier)
	resp, err := c.requestCached(ctx, c.trackCache, "track:"+identifier, c.cfg.TrackCacheTTL, http.MethodGet, path, nil)
	if err != nil {
		return nil, translateError("RestClient.LoadTracks", err)
	}
	var result LoadResult
	if err := decodeJSON(resp.Body, &result); err != nil {
		return nil, errs.Wrap(errs.Protocol, "RestClient.LoadTracks", "decode response", err)
	}
	if result.LoadType == "error" {
		return &result, errs.New(errs.Contract, "RestClient.LoadTracks", "node reported load error")
	}
	return &result, nil
}

// DecodeTrack decodes a single encoded blob via GET /v4/decodetrack.
func (c *Client) DecodeTrack(ctx context.Context, encoded string) (*Response, error) {
	path := "/v4/decodetrack?encodedTrack=" + urlEncode(encoded)
	resp, err := c.requestCached(ctx, c.cache, "GET:"+path, c.cfg.CacheTTL, http.MethodGet, path, nil)
	if err != nil {
		return nil, translateError("RestClient.DecodeTrack", err)
	}
	return resp, nil
}

// GetStats fetches the node's current stats snapshot.
func (c *Client) GetStats(ctx context.Context) (*Response, error) {
	resp, err := c.requestCached(ctx, c.cache, "GET:/v4/stats", c.cfg.CacheTTL, http.MethodGet, "/v4/stats", nil)
	if err != nil {
		return nil, translateError("RestClient.GetStats", err)
	}
	return resp, nil
}

// GetInfo fetches the node's plugin/filter/source-manager capability info.
func (c *Client) GetInfo(ctx context.Context) (*NodeInfo, error) {
	resp, err := c.requestCached(ctx, c.cache, "GET:/v4/info", c.cfg.CacheTTL, http.MethodGet, "/v4/info", nil)
	if err != nil {
		return nil, translateError("RestClient.GetInfo", err)
	}
	var info NodeInfo
	if err := decodeJSON(resp.Body, &info); err != nil {
		return nil, errs.Wrap(errs.Protocol, "RestClient.GetInfo", "decode response", err)
	}
	return &info, nil
}

// ConfigureResume sends the session-resume PATCH used by NodeClient on
// first Ready.
func (c *Client) ConfigureResume(ctx context.Context, sessionID string, resuming bool, timeoutSeconds int) error {
	path := "/v4/sessions/" + sessionID
	body, _ := encodeJSON(map[string]interface{}{"resuming": resuming, "timeout": timeoutSeconds})
	_, err := c.Request(ctx, http.MethodPatch, path, body)
	if err != nil {
		return translateError("RestClient.ConfigureResume", err)
	}
	return nil
}

func translateError(op string, err error) error {
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.Wrap(errs.TransientNetwork, op, "request failed", err)
}

func urlEncode(s string) string {
	return url.QueryEscape(s)
}
