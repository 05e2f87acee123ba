package main

import (
	"sync"

	"lyrics-parser-go/cache"
	"lyrics-parser-go/services/lyrics"
)

// ParseResponse is the body returned by /parse and the binary source endpoints
type ParseResponse struct {
	Format string `json:"format"`
	*lyrics.Document
}

// LegacyResponse is the body returned by /parse/legacy
type LegacyResponse struct {
	Format string              `json:"format"`
	Lines  []lyrics.LegacyLine `json:"lines"`
}

// CachePerformance contains cache hit/miss statistics
type CachePerformance struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate_percent"`
}

// CacheDumpResponse is the response format for /cache endpoint
type CacheDumpResponse struct {
	NumberOfKeys int                `json:"number_of_keys"`
	SizeInKB     int                `json:"size_kb"`
	SizeInMB     float64            `json:"size_mb"`
	Formats      map[string]int     `json:"formats"`
	Performance  CachePerformance   `json:"performance"`
	Backups      []cache.BackupInfo `json:"backups"`
}

// InFlightRequest tracks concurrent parses of the same input
type InFlightRequest struct {
	wg     sync.WaitGroup
	doc    *lyrics.Document
	format string
	err    error
}
