package config

import "time"

// Config holds runtime settings for the TownSync client.
//
// Durations are time.Duration values; CacheSizeLimitBytes is a byte count.
type Config struct {
	APIBaseURL          string
	LocalDBPath         string
	OnlineCheckInterval time.Duration
	SyncRetryLimit      int
	StatusResetDelay    time.Duration
	CacheMaxAge         time.Duration
	CacheForcedExpiry   time.Duration
	CacheSizeLimitBytes int64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.LocalDBPath = "townsync.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncRetryLimit = 3
	c.StatusResetDelay = 2 * time.Second
	c.CacheMaxAge = time.Hour
	c.CacheForcedExpiry = 24 * time.Hour
	c.CacheSizeLimitBytes = 100 << 20
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
