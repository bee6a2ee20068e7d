// Package ratelimit enforces a per-client token-bucket limit on the
// authentication endpoints. Limiters are keyed by client IP plus route so a
// flood against one login route can not starve the others.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-secadmin/go-secadmin/internal/config"
)

const (
	cleanupInterval = 5 * time.Minute
	staleAfter      = 10 * time.Minute
)

// clientLimiter tracks a per-client rate limiter and when it was last seen.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out token buckets per key. Stale buckets are dropped by a
// background sweep.
type Limiter struct {
	cfg     config.RateLimit
	mu      sync.Mutex
	clients map[string]*clientLimiter
	done    chan struct{}
}

// New creates a limiter and starts its cleanup loop.
func New(cfg config.RateLimit) *Limiter {
	l := &Limiter{
		cfg:     cfg,
		clients: make(map[string]*clientLimiter),
		done:    make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow reports whether the request identified by key may proceed now.
// A disabled limiter always allows.
func (l *Limiter) Allow(key string) bool {
	if !l.cfg.Enabled {
		return true
	}

	return l.limiterFor(key).Allow()
}

// Tokens returns the remaining burst capacity for the key.
func (l *Limiter) Tokens(key string) int {
	if !l.cfg.Enabled {
		return l.cfg.Burst
	}

	return int(l.limiterFor(key).Tokens())
}

// Burst returns the configured burst capacity.
func (l *Limiter) Burst() int {
	return l.cfg.Burst
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cl, ok := l.clients[key]; ok {
		cl.lastSeen = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)
	l.clients[key] = &clientLimiter{limiter: limiter, lastSeen: time.Now()}

	return limiter
}

// Stop terminates the cleanup loop.
func (l *Limiter) Stop() {
	close(l.done)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, cl := range l.clients {
		if time.Since(cl.lastSeen) > staleAfter {
			delete(l.clients, key)
		}
	}
}
