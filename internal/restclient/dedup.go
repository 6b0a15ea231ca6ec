package restclient

import (
	"sync"

	"golang.org/x/crypto/blake2b"
)

// dedupKey collapses method+path+body into a fixed-size collision-resistant
// key so the in-flight map never has to retain (and compare) full request
// bodies.
func dedupKey(method, path string, body []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return string(h.Sum(nil))
}

// call represents one in-flight request; every concurrent caller for the
// same dedupKey waits on the same call and receives the same result.
type call struct {
	done chan struct{}
	resp *Response
	err  error
}

// inflight coalesces identical concurrent requests into a single
// underlying call, required for correctness because the Player may
// batch-flush the same update from multiple code paths.
type inflight struct {
	mu    sync.Mutex
	calls map[string]*call
}

func newInflight() *inflight {
	return &inflight{calls: make(map[string]*call)}
}

// do runs fn at most once per concurrently-active key; late arrivals block
// on the in-flight call's channel instead of issuing a duplicate request.
func (g *inflight) do(key string, fn func() (*Response, error)) (*Response, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.resp, c.err
	}
	c := &call{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	c.resp, c.err = fn()
	close(c.done)

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()

	return c.resp, c.err
}
