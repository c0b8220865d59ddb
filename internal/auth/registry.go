package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"
	"time"
)

// Registry maps admin session cookies to their resolvers.  Each entry owns
// the goroutine draining that resolver's event stream; removing an entry
// cancels it.  Entries expire after sitting idle for the configured TTL,
// standing in for the browser tab that went away without logging out.
type Registry struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	resolver *Resolver
	cancel   context.CancelFunc
	lastSeen time.Time
}

// NewRegistry builds an empty registry with the given idle TTL.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:     ttl,
		entries: make(map[string]*registryEntry),
	}
}

// Put registers a resolver and returns its opaque session id.  The cancel
// function must stop the resolver's Run goroutine; the registry invokes it
// on removal and expiry.
func (g *Registry) Put(r *Resolver, cancel context.CancelFunc) (string, error) {
	id, err := randomHex(16)
	if err != nil {
		return "", err
	}
	g.mu.Lock()
	g.entries[id] = &registryEntry{resolver: r, cancel: cancel, lastSeen: time.Now()}
	g.mu.Unlock()
	return id, nil
}

// Get returns the resolver for a session id and refreshes its idle clock.
func (g *Registry) Get(id string) (*Resolver, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = time.Now()
	return e.resolver, true
}

// Remove drops a session and stops its event loop.
func (g *Registry) Remove(id string) {
	g.mu.Lock()
	e, ok := g.entries[id]
	delete(g.entries, id)
	g.mu.Unlock()
	if ok {
		e.cancel()
	}
}

// Sweep evicts idle sessions until the context is cancelled.  Expired
// resolvers are only cancelled locally; the provider session dies on its
// own when the refresh loop stops rotating it.
func (g *Registry) Sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-g.ttl)
			g.mu.Lock()
			var expired []*registryEntry
			for id, e := range g.entries {
				if e.lastSeen.Before(cutoff) {
					expired = append(expired, e)
					delete(g.entries, id)
				}
			}
			n := len(g.entries)
			g.mu.Unlock()
			for _, e := range expired {
				e.cancel()
			}
			if len(expired) > 0 {
				log.Printf("auth: expired %d idle admin session(s), %d active", len(expired), n)
			}
		}
	}
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.  Session ids are never derived
// from anything guessable.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
