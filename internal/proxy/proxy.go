// Package proxy supplies rotating outbound proxy identities for caption and
// media requests. Callers pick a fresh endpoint per attempt so repeated
// requests do not present the same exit address.
package proxy

import (
	"fmt"
	"math/rand"
	"net/url"
	"sync"

	"recast/internal/config"
)

// Endpoint is one credentialed proxy identity.
type Endpoint struct {
	Username string
	Password string
	Host     string
	Port     int
}

// URL renders the endpoint as an http proxy URL suitable for transport
// configuration and yt-dlp's --proxy flag.
func (e Endpoint) URL() *url.URL {
	u := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", e.Host, e.Port),
	}
	if e.Username != "" {
		u.User = url.UserPassword(e.Username, e.Password)
	}
	return u
}

// String renders the endpoint URL with the password masked for logging.
func (e Endpoint) String() string {
	masked := *e.URL()
	if masked.User != nil {
		masked.User = url.User(e.Username)
	}
	return masked.String()
}

// Source yields proxy endpoints. A nil or empty source means direct
// connections.
type Source interface {
	// Pick returns an endpoint for the next request. ok is false when no
	// proxies are configured and the caller should connect directly.
	Pick() (Endpoint, bool)
}

// Pool selects uniformly at random from a fixed set of endpoints.
type Pool struct {
	mu        sync.Mutex
	rng       *rand.Rand
	endpoints []Endpoint
}

// NewPool builds a pool from configured proxy credentials. An empty config
// yields a pool that reports no endpoints.
func NewPool(proxies []config.Proxy, seed int64) *Pool {
	endpoints := make([]Endpoint, 0, len(proxies))
	for _, p := range proxies {
		endpoints = append(endpoints, Endpoint{
			Username: p.Username,
			Password: p.Password,
			Host:     p.Host,
			Port:     p.Port,
		})
	}
	return &Pool{
		rng:       rand.New(rand.NewSource(seed)),
		endpoints: endpoints,
	}
}

// Pick returns a random endpoint from the pool.
func (p *Pool) Pick() (Endpoint, bool) {
	if p == nil || len(p.endpoints) == 0 {
		return Endpoint{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endpoints[p.rng.Intn(len(p.endpoints))], true
}

// Len reports how many endpoints the pool holds.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.endpoints)
}
