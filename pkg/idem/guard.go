package idem

import (
	"context"
	"sync"
	"time"
)

const DefaultWindow = time.Minute

// sweepAt bounds lazy sweeping: once the map grows past this many entries,
// Check removes expired ones before recording a new key.
const sweepAt = 1024

// Guard deduplicates submissions within a trailing window. It is
// process-local and resets on restart; a cleared window only risks a
// duplicate, it never causes one to be accepted twice by the store.
type Guard struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func New(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// Check reports true when key has not been seen within the window and
// records it in the same mutex section, so two near-simultaneous
// duplicates can never both pass.
func (g *Guard) Check(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if at, ok := g.seen[key]; ok && now.Sub(at) < g.window {
		return false
	}
	if len(g.seen) >= sweepAt {
		g.sweepLocked(now)
	}
	g.seen[key] = now
	return true
}

func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

// Start launches a janitor that sweeps expired keys until ctx is done.
func (g *Guard) Start(ctx context.Context) error {
	go func() {
		ticker := time.NewTicker(g.window)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.mu.Lock()
				g.sweepLocked(g.now())
				g.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (g *Guard) sweepLocked(now time.Time) {
	for key, at := range g.seen {
		if now.Sub(at) >= g.window {
			delete(g.seen, key)
		}
	}
}
