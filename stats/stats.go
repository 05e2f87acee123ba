package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds the server counters
type Stats struct {
	StartTime time.Time

	// Request counters
	TotalRequests   atomic.Int64
	ParseRequests   atomic.Int64
	LegacyRequests  atomic.Int64
	SYLTRequests    atomic.Int64
	MIDIRequests    atomic.Int64
	SidecarRequests atomic.Int64
	CacheRequests   atomic.Int64
	StatsRequests   atomic.Int64
	HealthRequests  atomic.Int64
	OtherRequests   atomic.Int64

	// Parse outcomes
	ParseFailures      atomic.Int64
	ErrorSubstitutions atomic.Int64
	NoLyrics           atomic.Int64
	formatMu           sync.Mutex
	formatCounts       map[string]int64

	// Cache performance
	CacheHits   atomic.Int64
	CacheMisses atomic.Int64

	// Rate limiting
	RateLimitNormal   atomic.Int64 // Requests served under normal rate limit
	RateLimitCached   atomic.Int64 // Requests served under cached-only tier
	RateLimitExceeded atomic.Int64 // Requests rejected (429)

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response times in microseconds
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64
}

const noMin = int64(^uint64(0) >> 1)

// New returns an empty stats instance
func New() *Stats {
	s := &Stats{StartTime: time.Now(), formatCounts: make(map[string]int64)}
	s.minResponseTime.Store(noMin)
	return s
}

var global = New()

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request to a specific endpoint
func (s *Stats) RecordRequest(endpoint string) {
	s.TotalRequests.Add(1)
	switch endpoint {
	case "/parse":
		s.ParseRequests.Add(1)
	case "/parse/legacy":
		s.LegacyRequests.Add(1)
	case "/parse/sylt":
		s.SYLTRequests.Add(1)
	case "/parse/midi":
		s.MIDIRequests.Add(1)
	case "/parse/sidecar":
		s.SidecarRequests.Add(1)
	case "/cache", "/cache/clear", "/cache/backup":
		s.CacheRequests.Add(1)
	case "/stats":
		s.StatsRequests.Add(1)
	case "/health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordFormat counts a successful parse of the given format
func (s *Stats) RecordFormat(format string) {
	if format == "" {
		format = "unknown"
	}
	s.formatMu.Lock()
	s.formatCounts[format]++
	s.formatMu.Unlock()
}

// FormatCounts returns a copy of the per-format parse counts
func (s *Stats) FormatCounts() map[string]int64 {
	s.formatMu.Lock()
	defer s.formatMu.Unlock()
	out := make(map[string]int64, len(s.formatCounts))
	for k, v := range s.formatCounts {
		out[k] = v
	}
	return out
}

// RecordCacheHit records a cache hit
func (s *Stats) RecordCacheHit() {
	s.CacheHits.Add(1)
}

// RecordCacheMiss records a cache miss
func (s *Stats) RecordCacheMiss() {
	s.CacheMisses.Add(1)
}

// RecordRateLimit records rate limit tier usage
func (s *Stats) RecordRateLimit(tier string) {
	switch tier {
	case "normal":
		s.RateLimitNormal.Add(1)
	case "cached":
		s.RateLimitCached.Add(1)
	case "exceeded":
		s.RateLimitExceeded.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns the cache hit rate as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.CacheHits.Load()
	total := hits + s.CacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == noMin {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":   s.TotalRequests.Load(),
			"parse":   s.ParseRequests.Load(),
			"legacy":  s.LegacyRequests.Load(),
			"sylt":    s.SYLTRequests.Load(),
			"midi":    s.MIDIRequests.Load(),
			"sidecar": s.SidecarRequests.Load(),
			"cache":   s.CacheRequests.Load(),
			"stats":   s.StatsRequests.Load(),
			"health":  s.HealthRequests.Load(),
			"other":   s.OtherRequests.Load(),
		},
		"parsing": map[string]interface{}{
			"formats":             s.FormatCounts(),
			"failures":            s.ParseFailures.Load(),
			"error_substitutions": s.ErrorSubstitutions.Load(),
			"no_lyrics":           s.NoLyrics.Load(),
		},
		"cache": map[string]interface{}{
			"hits":     s.CacheHits.Load(),
			"misses":   s.CacheMisses.Load(),
			"hit_rate": s.CacheHitRate(),
		},
		"rate_limiting": map[string]interface{}{
			"normal_tier": s.RateLimitNormal.Load(),
			"cached_tier": s.RateLimitCached.Load(),
			"exceeded":    s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg": s.AvgResponseTime().String(),
			"min": s.MinResponseTime().String(),
			"max": s.MaxResponseTime().String(),
		},
	}
}
