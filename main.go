package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lyrics-parser-go/cache"
	"lyrics-parser-go/config"
	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var conf = config.Get()

var parseCache *cache.ParseCache

// publicPaths never require an API key
var publicPaths = []string{"/", "/health"}

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(conf.Configuration.LogLevel)
	if err != nil {
		log.Warnf("%s Unknown log level %q, using info", logcolors.LogConfig, conf.Configuration.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// newHandler builds the router wrapped in the middleware chain:
// logging, CORS, API key, then the two-tier rate limiter
func newHandler(limiter *middleware.IPRateLimiter) http.Handler {
	router := mux.NewRouter()
	setupRoutes(router)

	var handler http.Handler = router
	handler = limiter.Middleware(conf.Configuration.APIKey)(handler)
	handler = middleware.APIKeyMiddleware(conf.Configuration.APIKey, conf.Configuration.APIKeyRequired, publicPaths)(handler)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(conf.Configuration.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Cache-Status", "X-Format", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Type"},
	})
	handler = c.Handler(handler)

	return middleware.LoggingMiddleware(handler)
}

func allowedOrigins(value string) []string {
	var out []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func main() {
	var err error
	parseCache, err = cache.Open(conf.Configuration.CacheDBPath, conf.Configuration.CacheBackupPath, conf.FeatureFlags.CacheCompression)
	if err != nil {
		log.Fatalf("%s Failed to open parse cache: %v", logcolors.LogCacheInit, err)
	}
	defer parseCache.Close()

	limiter := middleware.NewIPRateLimiter(
		rate.Limit(conf.Configuration.RateLimitPerSecond),
		conf.Configuration.RateLimitBurstLimit,
		rate.Limit(conf.Configuration.CachedRateLimitPerSecond),
		conf.Configuration.CachedRateLimitBurstLimit,
	)

	server := &http.Server{
		Addr:              ":" + conf.Configuration.Port,
		Handler:           newHandler(limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Infof("%s Shutting down", logcolors.LogServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("%s Shutdown failed: %v", logcolors.LogServer, err)
		}
	}()

	log.Infof("%s Listening on port %s (rate limit %d/s, cached tier %d/s)", logcolors.LogServer,
		conf.Configuration.Port, conf.Configuration.RateLimitPerSecond, conf.Configuration.CachedRateLimitPerSecond)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("%s %v", logcolors.LogServer, err)
	}
}
