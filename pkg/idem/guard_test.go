package idem

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGuard_Check(t *testing.T) {
	g := New(time.Minute)

	assert.True(t, g.Check("k1"), "first sighting passes")
	assert.False(t, g.Check("k1"), "repeat within the window is a duplicate")
	assert.True(t, g.Check("k2"), "keys are independent")
}

func TestGuard_WindowExpiry(t *testing.T) {
	g := New(time.Minute)

	now := time.Now()
	g.now = func() time.Time { return now }

	assert.True(t, g.Check("k1"))
	assert.False(t, g.Check("k1"))

	now = now.Add(61 * time.Second)
	assert.True(t, g.Check("k1"), "key passes again once the window has elapsed")
}

func TestGuard_ConcurrentDuplicatesSinglePass(t *testing.T) {
	g := New(time.Minute)

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	passed := 0

	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Check("same-key") {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, passed, "check-and-record must be atomic")
}

func TestGuard_LazySweepBoundsGrowth(t *testing.T) {
	g := New(time.Minute)

	now := time.Now()
	g.now = func() time.Time { return now }

	for i := 0; i < sweepAt; i++ {
		g.Check("key-" + strconv.Itoa(i))
	}
	assert.Equal(t, sweepAt, g.Len())

	// Everything above is expired by now, the next Check sweeps first.
	now = now.Add(2 * time.Minute)
	g.Check("fresh")
	assert.Equal(t, 1, g.Len())
}
