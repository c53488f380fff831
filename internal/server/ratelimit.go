package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Idle buckets older than this are dropped so the map stays bounded.
const clientLimiterTTL = 10 * time.Minute

// evictCheckSize triggers an eviction sweep once the map grows past it
const evictCheckSize = 1024

// ipRateLimiter keeps one token bucket per client IP
type ipRateLimiter struct {
	rate  rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(r rate.Limit, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		rate:    r,
		burst:   burst,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow consumes a token from the client's bucket, creating the bucket on
// first sight
func (l *ipRateLimiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	client, ok := l.clients[clientIP]
	if !ok {
		if len(l.clients) >= evictCheckSize {
			l.evictIdle(now)
		}
		client = &clientLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[clientIP] = client
	}
	client.lastSeen = now

	return client.limiter.Allow()
}

// evictIdle removes buckets that have not been seen within the TTL.
// Callers must hold l.mu.
func (l *ipRateLimiter) evictIdle(now time.Time) {
	for ip, client := range l.clients {
		if now.Sub(client.lastSeen) > clientLimiterTTL {
			delete(l.clients, ip)
		}
	}
}
