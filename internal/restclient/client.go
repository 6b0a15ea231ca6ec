// Package restclient implements the per-node request/response transport:
// retries with backoff+jitter, per-request timeouts, GET/track-load
// caching, and in-flight request dedup.
package restclient

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ryxu-xo/euralink/internal/errs"
	"github.com/ryxu-xo/euralink/logger"
)

const (
	defaultBackoffBase = 250 * time.Millisecond
	defaultBackoffCap  = 5 * time.Second
	defaultJitterMax   = 100 * time.Millisecond
)

// Config controls a Client's retry, timeout and caching behavior.
type Config struct {
	BaseURL       string
	Password      string
	MaxRetries    int
	Timeout       time.Duration
	CacheTTL      time.Duration
	TrackCacheTTL time.Duration
	// RateLimit bounds outbound requests per second to this node,
	// guarding the transport from self-inflicted bursts during batch
	// flush storms. Zero disables limiting.
	RateLimit rate.Limit
	HTTPClient *http.Client
	Cache      Cache
}

// Client is the REST transport to a single audio node.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
	trackCache Cache
	inflight   *inflight
}

// New builds a Client for one node, applying defaults for any unset
// Config fields.
func New(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.TrackCacheTTL <= 0 {
		cfg.TrackCacheTTL = 5 * time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemCache()
	}

	c := &Client{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		cache:      cfg.Cache,
		trackCache: NewMemCache(),
		inflight:   newInflight(),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(cfg.RateLimit, int(cfg.RateLimit)+1)
	}
	return c
}

// ClearCaches empties both the GET-response cache and the track-load
// cache on demand.
func (c *Client) ClearCaches() {
	c.cache.Clear()
	c.trackCache.Clear()
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

func backoffDelay(attempt int) time.Duration {
	d := defaultBackoffBase * time.Duration(1<<uint(attempt))
	if d > defaultBackoffCap || d <= 0 {
		d = defaultBackoffCap
	}
	return d + jitter(defaultJitterMax)
}

func retriable(status int, err error) bool {
	if err != nil {
		return true
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status < 600
}

// Request performs an HTTP request against the node with retries,
// per-attempt timeout, and in-flight dedup of identical method+path+body
// requests — but never caching,
// which is the caller's responsibility via requestCached.
func (c *Client) Request(ctx context.Context, method, path string, body []byte) (*Response, error) {
	key := dedupKey(method, path, body)
	return c.inflight.do(key, func() (*Response, error) {
		return c.doWithRetry(ctx, method, path, body)
	})
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body []byte) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, errs.Wrap(errs.TransientNetwork, "RestClient.Request", "rate limiter wait canceled", err)
			}
		}

		resp, status, err := c.attempt(ctx, method, path, body)
		if err == nil && status >= 200 && status < 300 {
			return &Response{StatusCode: status, Body: resp}, nil
		}

		lastErr = err
		if err == nil {
			lastErr = &RequestError{Status: status, Body: resp}
		}

		if !retriable(status, err) {
			return nil, errs.Wrap(errs.Contract, "RestClient.Request", "non-retriable status", lastErr)
		}

		if attempt == c.cfg.MaxRetries {
			break
		}

		delay := backoffDelay(attempt)
		logger.Debug("restclient: retrying",
			logger.String("method", method), logger.String("path", path),
			logger.Int("attempt", attempt+1), logger.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return nil, errs.Wrap(errs.TransientNetwork, "RestClient.Request", "context canceled during backoff", ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, errs.Wrap(errs.TransientNetwork, "RestClient.Request", "max retries exceeded", lastErr)
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", c.cfg.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// requestCached wraps Request with a GET-response cache lookup keyed by
// "method:path", used by the higher-level v4 API methods.
func (c *Client) requestCached(ctx context.Context, cache Cache, cacheKey string, ttl time.Duration, method, path string, body []byte) (*Response, error) {
	if method == http.MethodGet {
		if data, ok := cache.Get(cacheKey); ok {
			return &Response{StatusCode: 200, Body: data}, nil
		}
	}

	resp, err := c.Request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	if method == http.MethodGet {
		cache.Set(cacheKey, resp.Body, ttl)
	}
	return resp, nil
}

func encodeJSON(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func decodeJSON(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
