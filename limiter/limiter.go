// Package limiter caps how many requests a single client may make per minute.
package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether the client identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a per-process token bucket limiter, one bucket per key
type Memory struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
}

// NewMemory allows perMinute requests per key, refilled evenly over the minute
func NewMemory(perMinute int) *Memory {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Memory{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idle:     3 * time.Minute,
		now:      time.Now,
	}
}

func (m *Memory) Allow(ctx context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = now
	m.prune(now)

	return v.limiter.AllowN(now, 1), nil
}

// prune drops buckets that have been idle long enough to be full again.
// Runs at most once per idle period.
func (m *Memory) prune(now time.Time) {
	if now.Sub(m.lastPrune) < m.idle {
		return
	}
	m.lastPrune = now
	for k, v := range m.visitors {
		if now.Sub(v.lastSeen) > m.idle {
			delete(m.visitors, k)
		}
	}
}

// Len reports how many keys are tracked
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}
