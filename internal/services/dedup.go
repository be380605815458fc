package services

import (
	"sync"
	"time"
)

const (
	dedupDefaultTTL = 10 * time.Minute
	dedupMaxEntries = 4096
)

// DedupGuard suppresses reprocessing of duplicate inbound events. Keys are
// platform-qualified event ids; entries expire after a TTL and the map is
// hard-capped so a webhook storm cannot grow it without bound.
type DedupGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewDedupGuard creates a guard. A ttl of zero means 10 minutes.
func NewDedupGuard(ttl time.Duration) *DedupGuard {
	if ttl <= 0 {
		ttl = dedupDefaultTTL
	}
	return &DedupGuard{seen: make(map[string]time.Time), ttl: ttl}
}

// Seen reports whether key was already observed within the TTL, marking it
// as observed either way.
func (g *DedupGuard) Seen(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if stamp, ok := g.seen[key]; ok && now.Sub(stamp) < g.ttl {
		return true
	}

	if len(g.seen) >= dedupMaxEntries {
		g.prune(now)
	}
	g.seen[key] = now
	return false
}

// prune drops expired entries; if everything is fresh it drops the oldest
// half so the map always has room.
func (g *DedupGuard) prune(now time.Time) {
	for key, stamp := range g.seen {
		if now.Sub(stamp) >= g.ttl {
			delete(g.seen, key)
		}
	}
	if len(g.seen) < dedupMaxEntries {
		return
	}
	drop := len(g.seen) / 2
	for key := range g.seen {
		if drop == 0 {
			break
		}
		delete(g.seen, key)
		drop--
	}
}
