package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/middleware"
	"lyrics-parser-go/services/lyrics"
	"lyrics-parser-go/services/parsers"
	"lyrics-parser-go/services/sources/midi"
	"lyrics-parser-go/services/sources/sidecar"
	"lyrics-parser-go/services/sources/sylt"
	"lyrics-parser-go/stats"
	"lyrics-parser-go/utils"

	log "github.com/sirupsen/logrus"
)

// decodeFunc turns a request body into lyrics and the name of the format it
// was read as
type decodeFunc func(body []byte, opts lyrics.Options, hint parsers.Format) (lyrics.SemanticLyrics, string, error)

func decodeText(body []byte, opts lyrics.Options, hint parsers.Format) (lyrics.SemanticLyrics, string, error) {
	result, format, err := parsers.Parse(string(body), opts, hint)
	if err == nil && isErrorText(result, opts) {
		stats.Get().ErrorSubstitutions.Add(1)
	}
	return result, string(format), err
}

func decodeSYLT(body []byte, opts lyrics.Options, _ parsers.Format) (lyrics.SemanticLyrics, string, error) {
	result, err := sylt.Parse(body, opts)
	if err != nil || result == nil {
		return nil, "sylt", err
	}
	return result, "sylt", nil
}

func decodeMIDI(body []byte, opts lyrics.Options, _ parsers.Format) (lyrics.SemanticLyrics, string, error) {
	result, err := midi.Parse(bytes.NewReader(body), opts)
	if err != nil || result == nil {
		return nil, "midi", err
	}
	return result, "midi", nil
}

// isErrorText reports whether result is the configured error text standing in
// for a failed parse
func isErrorText(result lyrics.SemanticLyrics, opts lyrics.Options) bool {
	u, ok := result.(*lyrics.UnsyncedLyrics)
	return ok && opts.ErrorText != nil && len(u.Lines) == 1 && u.Lines[0].Text == *opts.ErrorText
}

// requestOptions starts from the configured defaults and applies the
// format, trim, multiline and errorText query parameters
func requestOptions(r *http.Request) (lyrics.Options, parsers.Format, error) {
	opts := conf.ParseOptions()
	q := r.URL.Query()

	hint, err := parsers.ParseFormat(q.Get("format"))
	if err != nil {
		return opts, "", err
	}
	if v := q.Get("trim"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, "", fmt.Errorf("invalid trim value: %s", v)
		}
		opts.Trim = b
	}
	if v := q.Get("multiline"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, "", fmt.Errorf("invalid multiline value: %s", v)
		}
		opts.MultiLine = b
	}
	if q.Has("errorText") {
		text := q.Get("errorText")
		opts.ErrorText = &text
	}
	return opts, hint, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, conf.Configuration.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) == 0 {
		return nil, http.StatusBadRequest, errors.New("request body is empty")
	}
	return body, 0, nil
}

// parseHandler serves a POST endpoint that decodes the request body. Results
// are cached by input and options; the cached rate limit tier is answered
// from the cache only.
func parseHandler(source string, decode decodeFunc, legacy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, hint, err := requestOptions(r)
		if err != nil {
			Respond(w, r).ErrorMessage(http.StatusBadRequest, err.Error())
			return
		}
		body, status, err := readBody(w, r)
		if err != nil {
			Respond(w, r).ErrorMessage(status, err.Error())
			return
		}

		key := parseCacheKey(source, string(hint), opts, body)
		if doc, format, ok := getCachedDocument(key); ok {
			stats.Get().RecordCacheHit()
			log.Debugf("%s Cache hit for %s parse", logcolors.LogCacheParse, source)
			writeDocument(Respond(w, r).SetCacheStatus("HIT"), doc, format, legacy)
			return
		}
		stats.Get().RecordCacheMiss()

		if middleware.CacheOnly(r.Context()) {
			log.Warnf("%s Cache-only mode but no cached %s parse", logcolors.LogCacheParse, source)
			w.Header().Set("Retry-After", "60")
			Respond(w, r).SetCacheStatus("MISS").Error(http.StatusTooManyRequests, map[string]interface{}{
				"error":   "Rate limit exceeded. This request requires cached data, but this input has not been parsed yet.",
				"message": "Please try again later or reduce your request rate.",
			})
			return
		}

		doc, format, err := resolveParse(key, func() (lyrics.SemanticLyrics, string, error) {
			return decode(body, opts, hint)
		})
		if err != nil {
			writeParseError(Respond(w, r).SetCacheStatus("MISS"), err)
			return
		}
		writeDocument(Respond(w, r).SetCacheStatus("MISS"), doc, format, legacy)
	}
}

func writeDocument(resp *APIResponse, doc *lyrics.Document, format string, legacy bool) {
	resp.SetFormat(format)
	if legacy {
		resp.JSON(LegacyResponse{Format: format, Lines: lyrics.Flatten(doc.Lyrics())})
		return
	}
	resp.JSON(ParseResponse{Format: format, Document: doc})
}

func writeParseError(resp *APIResponse, err error) {
	if errors.Is(err, errNoLyrics) || errors.Is(err, sidecar.ErrNoSidecar) {
		stats.Get().NoLyrics.Add(1)
		resp.ErrorMessage(http.StatusNotFound, err.Error())
		return
	}
	stats.Get().ParseFailures.Add(1)
	log.Warnf("%s Parse failed: %v", logcolors.LogDispatcher, err)
	resp.ErrorMessage(http.StatusUnprocessableEntity, err.Error())
}

func getSidecarLyrics(w http.ResponseWriter, r *http.Request) {
	root := conf.Configuration.SidecarRoot
	if root == "" {
		Respond(w, r).ErrorMessage(http.StatusNotFound, "sidecar lookups are disabled")
		return
	}
	opts, _, err := requestOptions(r)
	if err != nil {
		Respond(w, r).ErrorMessage(http.StatusBadRequest, err.Error())
		return
	}
	rel := r.URL.Query().Get("path")
	if rel == "" {
		Respond(w, r).ErrorMessage(http.StatusBadRequest, "path not provided")
		return
	}
	mediaPath, err := utils.ResolveWithin(root, rel)
	if err != nil {
		log.Warnf("%s Rejected path %q: %v", logcolors.LogSidecar, rel, err)
		Respond(w, r).ErrorMessage(http.StatusBadRequest, err.Error())
		return
	}

	result, err := sidecar.Load(mediaPath, opts)
	if err != nil {
		writeParseError(Respond(w, r), err)
		return
	}
	if isErrorText(result, opts) {
		stats.Get().ErrorSubstitutions.Add(1)
	}
	stats.Get().RecordFormat("sidecar")
	writeDocument(Respond(w, r), lyrics.ToDocument(result), "sidecar", false)
}

func getStats(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		Respond(w, r).ErrorMessage(http.StatusUnauthorized, "Unauthorized")
		return
	}

	snapshot := stats.Get().Snapshot()
	if parseCache != nil {
		numKeys, sizeInKB := parseCache.Stats()
		snapshot["cache_storage"] = map[string]interface{}{
			"keys":    numKeys,
			"size_kb": sizeInKB,
			"size_mb": float64(sizeInKB) / 1024,
			"formats": parseCache.FormatCounts(),
		}
	}
	Respond(w, r).JSON(snapshot)
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":  "ok",
		"formats": parsers.GetRegistry().List(),
		"sidecar": conf.Configuration.SidecarRoot != "",
	}
	if parseCache == nil {
		health["status"] = "degraded"
		health["error"] = "parse cache unavailable"
	}
	Respond(w, r).JSON(health)
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		Respond(w, r).ErrorMessage(http.StatusNotFound, "Not found")
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"endpoints": map[string]string{
			"POST /parse":        "Parse LRC, TTML or SRT text. Query: format, trim, multiline, errorText",
			"POST /parse/legacy": "Same input as /parse, flattened into timestamped lines",
			"POST /parse/sylt":   "Parse an ID3v2 SYLT frame body",
			"POST /parse/midi":   "Parse a karaoke MIDI file",
			"GET /parse/sidecar": "Parse the .ttml/.srt/.lrc files next to ?path= under the sidecar root",
			"GET /health":        "Service health",
			"GET /stats":         "Request and parse counters (requires Authorization)",
			"GET /cache":         "Cache summary (requires Authorization)",
			"POST /cache/backup": "Back up the cache (requires Authorization)",
			"POST /cache/clear":  "Back up and clear the cache (requires Authorization)",
		},
	})
}
