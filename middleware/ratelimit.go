package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/stats"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type contextKey string

const (
	cacheOnlyKey     contextKey = "cacheOnly"
	rateLimitTypeKey contextKey = "rateLimitType"
)

// CacheOnly reports whether the request was admitted by the cached tier and
// may only be answered from the cache
func CacheOnly(ctx context.Context) bool {
	v, _ := ctx.Value(cacheOnlyKey).(bool)
	return v
}

// RateLimitType returns the tier that admitted the request
func RateLimitType(ctx context.Context) string {
	v, _ := ctx.Value(rateLimitTypeKey).(string)
	return v
}

// LimiterPair holds both normal and cached tier limiters for a client
type LimiterPair struct {
	Normal *rate.Limiter
	Cached *rate.Limiter
}

// GetNormalTokens returns the number of tokens available in the normal tier
func (lp *LimiterPair) GetNormalTokens() int {
	return int(math.Floor(lp.Normal.Tokens()))
}

// GetCachedTokens returns the number of tokens available in the cached tier
func (lp *LimiterPair) GetCachedTokens() int {
	return int(math.Floor(lp.Cached.Tokens()))
}

// IPRateLimiter manages two-tier rate limiting per client IP
type IPRateLimiter struct {
	ips         map[string]*LimiterPair
	mu          sync.Mutex
	normalRate  rate.Limit
	normalBurst int
	cachedRate  rate.Limit
	cachedBurst int
}

// NewIPRateLimiter creates a new two-tier rate limiter
func NewIPRateLimiter(normalRate rate.Limit, normalBurst int, cachedRate rate.Limit, cachedBurst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:         make(map[string]*LimiterPair),
		normalRate:  normalRate,
		normalBurst: normalBurst,
		cachedRate:  cachedRate,
		cachedBurst: cachedBurst,
	}
}

// GetNormalLimit returns the normal tier burst limit
func (i *IPRateLimiter) GetNormalLimit() int {
	return i.normalBurst
}

// GetCachedLimit returns the cached tier burst limit
func (i *IPRateLimiter) GetCachedLimit() int {
	return i.cachedBurst
}

// GetLimiter returns the limiters of ip, creating them on first use
func (i *IPRateLimiter) GetLimiter(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()

	if pair, ok := i.ips[ip]; ok {
		return pair
	}
	pair := &LimiterPair{
		Normal: rate.NewLimiter(i.normalRate, i.normalBurst),
		Cached: rate.NewLimiter(i.cachedRate, i.cachedBurst),
	}
	i.ips[ip] = pair
	return pair
}

// clientIP strips the port from the remote address
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware admits requests through the normal tier, then the cached tier,
// and rejects them with 429 once both are exhausted. A valid API key bypasses
// both tiers.
func (i *IPRateLimiter) Middleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ValidAPIKey(r.Header.Get("X-API-Key"), apiKey) {
				w.Header().Set("X-RateLimit-Bypass", "true")
				ctx := context.WithValue(r.Context(), rateLimitTypeKey, "bypass")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ip := clientIP(r)
			limiters := i.GetLimiter(ip)

			if limiters.Normal.Allow() {
				stats.Get().RecordRateLimit("normal")
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(i.GetNormalLimit()))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiters.GetNormalTokens()))
				w.Header().Set("X-RateLimit-Type", "normal")
				ctx := context.WithValue(r.Context(), rateLimitTypeKey, "normal")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if limiters.Cached.Allow() {
				stats.Get().RecordRateLimit("cached")
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(i.GetCachedLimit()))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiters.GetCachedTokens()))
				w.Header().Set("X-RateLimit-Type", "cached")
				log.Debugf("%s %s exceeded normal tier, using cached tier", logcolors.LogRateLimit, ip)
				ctx := context.WithValue(r.Context(), cacheOnlyKey, true)
				ctx = context.WithValue(ctx, rateLimitTypeKey, "cached")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			stats.Get().RecordRateLimit("exceeded")
			log.Warnf("%s %s exceeded both rate limit tiers", logcolors.LogRateLimit, ip)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(i.GetCachedLimit()))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Type", "exceeded")
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests")
		})
	}
}
