package main

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// tapLimiter throttles the tap endpoint per player in memory. Energy already
// bounds how much a player can earn; this only shields the database from a
// misbehaving client hammering the endpoint.
type tapLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newTapLimiter(rps float64, burst int) *tapLimiter {
	return &tapLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (t *tapLimiter) Allow(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.limiters[playerID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.limiters[playerID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (t *tapLimiter) prune(olderThan time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	for playerID, entry := range t.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(t.limiters, playerID)
		}
	}
}

var tapLimits = newTapLimiter(5, 10)
