package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"lyrics-parser-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// publicMatcher reports whether a path skips authentication. Entries ending
// in * match by prefix.
type publicMatcher struct {
	exact    map[string]bool
	prefixes []string
}

func newPublicMatcher(paths []string) publicMatcher {
	m := publicMatcher{exact: make(map[string]bool)}
	for _, p := range paths {
		if strings.HasSuffix(p, "*") {
			m.prefixes = append(m.prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		m.exact[p] = true
	}
	return m
}

func (m publicMatcher) match(path string) bool {
	if m.exact[path] {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ValidAPIKey reports whether provided matches the configured key
func ValidAPIKey(provided, configured string) bool {
	if provided == "" || configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}

// APIKeyMiddleware requires a valid X-API-Key header when required is set.
// A required key that is not configured lets everything through with a
// warning. Public paths never need a key.
func APIKeyMiddleware(apiKey string, required bool, publicPaths []string) func(http.Handler) http.Handler {
	public := newPublicMatcher(publicPaths)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required || public.match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if apiKey == "" {
				log.Warnf("%s API key required but not configured, allowing request", logcolors.LogAPIKey)
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			switch {
			case provided == "":
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				writeJSONError(w, http.StatusUnauthorized, "API key required")
			case !ValidAPIKey(provided, apiKey):
				log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				writeJSONError(w, http.StatusUnauthorized, "Invalid API key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
