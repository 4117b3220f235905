package lock

import (
	"context"
	"sync"
	"time"
)

// DefaultStaleAfter bounds how long an abandoned acquisition blocks a key.
// A claim holds the lock for one credential lookup plus one UPDATE, so a
// holder older than this died mid-claim and may be reclaimed.
const DefaultStaleAfter = 30 * time.Second

// KeyLock is a process-wide set of per-key try-locks. TryAcquire never
// blocks and never queues: it reports false immediately when the key is
// held. Release is idempotent. Entries are transient and carry no data
// beyond the acquisition time used for staleness reclaim.
type KeyLock struct {
	mu         sync.Mutex
	held       map[string]time.Time
	staleAfter time.Duration
	now        func() time.Time
}

func New(staleAfter time.Duration) *KeyLock {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &KeyLock{
		held:       make(map[string]time.Time),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// TryAcquire takes the lock for key if it is not held, or if the current
// holder is stale. The check and the take happen under one mutex section,
// so two callers can never both observe "unheld".
func (l *KeyLock) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if at, ok := l.held[key]; ok && now.Sub(at) < l.staleAfter {
		return false
	}
	l.held[key] = now
	return true
}

// Release frees key. Releasing a key that is not held is a no-op.
func (l *KeyLock) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

func (l *KeyLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// Start launches a janitor that sweeps stale holders until ctx is done.
// Reclaim also happens inline in TryAcquire; the sweep only keeps the map
// from accumulating keys nobody asks for again.
func (l *KeyLock) Start(ctx context.Context) error {
	go func() {
		ticker := time.NewTicker(l.staleAfter)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (l *KeyLock) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, at := range l.held {
		if now.Sub(at) >= l.staleAfter {
			delete(l.held, key)
		}
	}
}
