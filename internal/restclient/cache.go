package restclient

import (
	"sync"
	"time"
)

// Cache is a bounded, TTL-evicted key/value store for GET responses.
// Implementations must be safe for concurrent use and clearable on demand.
// The default implementation is in-process; internal/restclient/rediscache
// provides a distributed alternative behind the same interface.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Clear()
}

type entry struct {
	value   []byte
	expires time.Time
}

// memCache is a simple in-process TTL cache, evicted lazily on read.
type memCache struct {
	mu   sync.Mutex
	data map[string]entry
}

// NewMemCache builds an empty in-process TTL cache.
func NewMemCache() Cache {
	return &memCache{data: make(map[string]entry)}
}

func (c *memCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.data, key)
		return nil, false
	}
	return e.value, true
}

func (c *memCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry{value: value, expires: time.Now().Add(ttl)}
}

func (c *memCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

func (c *memCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry)
}
