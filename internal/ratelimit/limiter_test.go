package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiterDeniesBeyondCapacity(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := New(Config{Window: time.Hour, Capacity: 3}, clock)

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow("1.2.3.4"), "request %d should be admitted", i)
	}
	require.False(t, limiter.Allow("1.2.3.4"))

	// A denied request does not consume capacity for later.
	require.False(t, limiter.Allow("1.2.3.4"))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := New(Config{Window: time.Hour, Capacity: 1}, clock)

	require.True(t, limiter.Allow("alice"))
	require.False(t, limiter.Allow("alice"))
	require.True(t, limiter.Allow("bob"))
}

func TestLimiterWindowExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := New(Config{Window: time.Hour, Capacity: 2}, clock)

	require.True(t, limiter.Allow("k"))
	require.True(t, limiter.Allow("k"))
	require.False(t, limiter.Allow("k"))

	clock.Advance(30 * time.Minute)
	require.False(t, limiter.Allow("k"))

	clock.Advance(31 * time.Minute)
	require.True(t, limiter.Allow("k"))
}

func TestLimiterPruneEvictsIdleKeys(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := New(Config{Window: time.Hour, Capacity: 5}, clock)

	limiter.Allow("a")
	limiter.Allow("b")
	limiter.Allow("c")
	require.Equal(t, 3, limiter.Keys())

	clock.Advance(2 * time.Hour)
	limiter.Prune()
	require.Equal(t, 0, limiter.Keys())
}

func TestLimiterPruneKeepsActiveKeys(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := New(Config{Window: time.Hour, Capacity: 5}, clock)

	limiter.Allow("old")
	clock.Advance(90 * time.Minute)
	limiter.Allow("fresh")

	limiter.Prune()
	require.Equal(t, 1, limiter.Keys())
	require.True(t, limiter.Allow("fresh"))
}

func TestLimiterConcurrentAllowNeverOverAdmits(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := New(Config{Window: time.Hour, Capacity: 10}, clock)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 10, admitted)
}
