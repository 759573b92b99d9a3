package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"tienda-be/internal/utils"

	"golang.org/x/time/rate"
)

// Tier is a rate limit policy. Each tier keeps its own bucket per client.
type Tier struct {
	Name  string
	Limit rate.Limit
	Burst int
}

// Rate Limit Tiers
var (
	// Login (Strict)
	TierStrict = Tier{Name: "strict", Limit: rate.Limit(2), Burst: 5}

	// General (Default)
	TierGeneral = Tier{Name: "general", Limit: rate.Limit(10), Burst: 20}
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token bucket per client and tier.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	idle     time.Duration
	now      func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		visitors: make(map[string]*visitor),
		idle:     3 * time.Minute,
		now:      time.Now,
	}
}

// getVisitor retrieves or creates a rate limiter for the given key.
func (l *Limiter) getVisitor(key string, tier Tier) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(tier.Limit, tier.Burst)
		l.visitors[key] = &visitor{limiter, l.now()}
		return limiter
	}

	v.lastSeen = l.now()
	return v.limiter
}

// Cleanup removes visitors idle for longer than the idle window.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > l.idle {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Middleware rejects requests over the tier's rate with 429.
func (l *Limiter) Middleware(tier Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r) + ":" + tier.Name

			if !l.getVisitor(key, tier).Allow() {
				w.Header().Set("Retry-After", "1")
				utils.WriteJSONError(w, "Demasiadas solicitudes, intenta más tarde", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
