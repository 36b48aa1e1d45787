// Package ratelimit implements a per-client sliding-window admission counter.
package ratelimit

import (
	"sync"
	"time"

	"github.com/webshepherd/webshepherd/internal/scan"
)

// Limiter tracks admission timestamps per client key over a trailing window.
// Prune-then-append runs under one lock per key so concurrent admits for the
// same key cannot over-admit.
type Limiter struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	clock    scan.Clock
	hits     map[string][]time.Time
}

// Config holds rate limiter configuration.
type Config struct {
	Window   time.Duration
	Capacity int
}

// New creates a new Limiter.
func New(cfg Config, clock scan.Clock) *Limiter {
	window := cfg.Window
	if window <= 0 {
		window = time.Hour
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 10
	}
	return &Limiter{
		window:   window,
		capacity: capacity,
		clock:    clock,
		hits:     make(map[string][]time.Time),
	}
}

// Allow admits or denies one request for the given client key. Timestamps
// older than the window are pruned from the key on every call; evicting
// idle keys entirely is Prune's job, run on a periodic sweep.
func (l *Limiter) Allow(key string) bool {
	now := l.clock.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.hits[key][:0]
	for _, ts := range l.hits[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.capacity {
		l.hits[key] = recent
		return false
	}

	l.hits[key] = append(recent, now)
	return true
}

// Prune drops expired timestamps and empty keys for every client. Allow does
// this per key already; Prune exists for periodic sweeps under many distinct
// client addresses.
func (l *Limiter) Prune() {
	cutoff := l.clock.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, times := range l.hits {
		recent := times[:0]
		for _, ts := range times {
			if ts.After(cutoff) {
				recent = append(recent, ts)
			}
		}
		if len(recent) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = recent
	}
}

// Keys reports how many client keys are currently tracked.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}
