package identity

import (
	"net/http"
	"sync"
	"time"
)

// The provider's own access tokens expire hourly, so a handle older than that
// can sit on connections the provider has already torn down. Handles are
// recreated lazily on next use once they pass the TTL; nothing runs on a
// timer.
const defaultHandleTTL = 55 * time.Minute

// handlePool caches one *http.Client per handle kind (anonymous or
// privileged) and rebuilds it once it ages out. Recreation is gated behind a
// mutex so two requests observing an expired handle build it once.
type handlePool struct {
	mu      sync.Mutex
	ttl     time.Duration
	timeout time.Duration
	client  *http.Client
	created time.Time
}

func newHandlePool(ttl, timeout time.Duration) *handlePool {
	return &handlePool{ttl: ttl, timeout: timeout}
}

func (p *handlePool) get() *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.client == nil || now.Sub(p.created) > p.ttl {
		p.client = &http.Client{Timeout: p.timeout}
		p.created = now
	}
	return p.client
}
