package config

import (
	"lyrics-parser-go/services/lyrics"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port                      string  `envconfig:"PORT" default:"8080"`
		LogLevel                  string  `envconfig:"LOG_LEVEL" default:"info"`
		RateLimitPerSecond        int     `envconfig:"RATE_LIMIT_PER_SECOND" default:"5"`
		RateLimitBurstLimit       int     `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"10"`
		CachedRateLimitPerSecond  int     `envconfig:"CACHED_RATE_LIMIT_PER_SECOND" default:"20"`
		CachedRateLimitBurstLimit int     `envconfig:"CACHED_RATE_LIMIT_BURST_LIMIT" default:"40"`
		CacheDBPath               string  `envconfig:"CACHE_DB_PATH" default:"./data/parse_cache.db"`
		CacheBackupPath           string  `envconfig:"CACHE_BACKUP_PATH" default:"./data/backups"`
		CacheAccessToken          string  `envconfig:"CACHE_ACCESS_TOKEN" default:""`
		APIKey                    string  `envconfig:"API_KEY" default:""`
		APIKeyRequired            bool    `envconfig:"API_KEY_REQUIRED" default:"false"`
		MaxBodyBytes              int64   `envconfig:"MAX_BODY_BYTES" default:"2097152"`
		SidecarRoot               string  `envconfig:"SIDECAR_ROOT" default:""`          // empty disables the sidecar endpoint
		DefaultErrorText          string  `envconfig:"DEFAULT_ERROR_TEXT" default:""`    // substituted for broken TTML/SRT when set
		MillisPerChar             float64 `envconfig:"MILLIS_PER_CHAR" default:"100"`
		CORSAllowedOrigins        string  `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"` // comma separated
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
		DefaultTrim      bool `envconfig:"FF_DEFAULT_TRIM" default:"true"`
		DefaultMultiLine bool `envconfig:"FF_DEFAULT_MULTILINE" default:"false"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// ErrorText returns the configured error text, or nil when none is set
func (c Config) ErrorText() *string {
	if c.Configuration.DefaultErrorText == "" {
		return nil
	}
	text := c.Configuration.DefaultErrorText
	return &text
}

// ParseOptions returns the parse options used when a request does not override them
func (c Config) ParseOptions() lyrics.Options {
	return lyrics.Options{
		Trim:          c.FeatureFlags.DefaultTrim,
		MultiLine:     c.FeatureFlags.DefaultMultiLine,
		ErrorText:     c.ErrorText(),
		MillisPerChar: c.Configuration.MillisPerChar,
	}
}
