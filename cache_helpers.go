package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"
	"lyrics-parser-go/stats"
	"lyrics-parser-go/utils"

	log "github.com/sirupsen/logrus"
)

var errNoLyrics = errors.New("no lyrics found")

var inFlightReqs sync.Map

// parseCacheKey identifies one parse: the source kind, the forced format,
// every option that changes the result, and the raw input
func parseCacheKey(source, hint string, opts lyrics.Options, body []byte) string {
	errorText := "\x00"
	if opts.ErrorText != nil {
		errorText = *opts.ErrorText
	}
	return utils.CacheKey(
		source,
		hint,
		strconv.FormatBool(opts.Trim),
		strconv.FormatBool(opts.MultiLine),
		errorText,
		strconv.FormatFloat(opts.Ratio(), 'f', -1, 64),
		string(body),
	)
}

func getCachedDocument(key string) (*lyrics.Document, string, bool) {
	if parseCache == nil {
		return nil, "", false
	}
	data, format, ok := parseCache.Get(key)
	if !ok {
		return nil, "", false
	}
	var doc lyrics.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warnf("%s Dropping unreadable entry %s: %v", logcolors.LogCache, key, err)
		if err := parseCache.Delete(key); err != nil {
			log.Errorf("%s Failed to delete %s: %v", logcolors.LogCache, key, err)
		}
		return nil, "", false
	}
	return &doc, format, true
}

func setCachedDocument(key, format string, doc *lyrics.Document) {
	if parseCache == nil {
		return
	}
	data, err := json.Marshal(doc)
	if err != nil {
		log.Errorf("%s Failed to marshal document: %v", logcolors.LogCache, err)
		return
	}
	if err := parseCache.Set(key, format, data); err != nil {
		log.Errorf("%s Failed to store %s: %v", logcolors.LogCache, key, err)
	}
}

// resolveParse runs parse once per key. Callers arriving while it runs wait
// for it and share its result. Successful results are cached before the key
// is released, so later callers hit the cache or parse again.
func resolveParse(key string, parse func() (lyrics.SemanticLyrics, string, error)) (*lyrics.Document, string, error) {
	req := &InFlightRequest{}
	req.wg.Add(1)
	if inFlight, loaded := inFlightReqs.LoadOrStore(key, req); loaded {
		req = inFlight.(*InFlightRequest)
		log.Debugf("%s Waiting for in-flight parse of %s", logcolors.LogCacheParse, key)
		req.wg.Wait()
		return req.doc, req.format, req.err
	}

	defer func() {
		inFlightReqs.Delete(key)
		req.wg.Done()
	}()

	result, format, err := parse()
	switch {
	case err != nil:
		req.err = err
	case result == nil:
		req.err = errNoLyrics
	default:
		req.doc = lyrics.ToDocument(result)
		req.format = format
		stats.Get().RecordFormat(format)
		setCachedDocument(key, format, req.doc)
	}
	return req.doc, req.format, req.err
}

func authorized(r *http.Request) bool {
	token := conf.Configuration.CacheAccessToken
	return token != "" && r.Header.Get("Authorization") == token
}

func getCacheDump(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		Respond(w, r).ErrorMessage(http.StatusUnauthorized, "Unauthorized")
		return
	}

	numKeys, sizeInKB := parseCache.Stats()
	backups, err := parseCache.ListBackups()
	if err != nil {
		log.Warnf("%s Failed to list backups: %v", logcolors.LogCacheBackup, err)
	}
	s := stats.Get()

	Respond(w, r).JSON(CacheDumpResponse{
		NumberOfKeys: numKeys,
		SizeInKB:     sizeInKB,
		SizeInMB:     float64(sizeInKB) / 1024,
		Formats:      parseCache.FormatCounts(),
		Performance: CachePerformance{
			Hits:    s.CacheHits.Load(),
			Misses:  s.CacheMisses.Load(),
			HitRate: s.CacheHitRate(),
		},
		Backups: backups,
	})
}

func backupCache(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		Respond(w, r).ErrorMessage(http.StatusUnauthorized, "Unauthorized")
		return
	}

	backupPath, err := parseCache.Backup()
	if err != nil {
		log.Errorf("%s Failed to create backup: %v", logcolors.LogCacheBackup, err)
		Respond(w, r).ErrorMessage(http.StatusInternalServerError, fmt.Sprintf("Failed to create backup: %v", err))
		return
	}

	log.Infof("%s Backup created successfully at: %s", logcolors.LogCacheBackup, backupPath)
	Respond(w, r).JSON(map[string]interface{}{
		"message":     "Backup created successfully",
		"backup_path": backupPath,
	})
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		Respond(w, r).ErrorMessage(http.StatusUnauthorized, "Unauthorized")
		return
	}

	backupPath, err := parseCache.BackupAndClear()
	if err != nil {
		log.Errorf("%s Failed to backup and clear cache: %v", logcolors.LogCacheClear, err)
		Respond(w, r).ErrorMessage(http.StatusInternalServerError, fmt.Sprintf("Failed to backup and clear cache: %v", err))
		return
	}

	log.Infof("%s Cache cleared successfully, backup at: %s", logcolors.LogCacheClear, backupPath)
	Respond(w, r).JSON(map[string]interface{}{
		"message":     "Cache cleared successfully",
		"backup_path": backupPath,
	})
}
