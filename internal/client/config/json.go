package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/sangwoolab/townsync/internal/flagx"
	"github.com/sangwoolab/townsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	APIBaseURL          string         `json:"api_base_url"`
	LocalDBPath         string         `json:"local_db_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncRetryLimit      int            `json:"sync_retry_limit"`
	StatusResetDelay    timex.Duration `json:"status_reset_delay"`
	CacheMaxAge         timex.Duration `json:"cache_max_age"`
	CacheForcedExpiry   timex.Duration `json:"cache_forced_expiry"`
	CacheSizeLimitBytes int64          `json:"cache_size_limit_bytes"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Zero-valued JSON fields leave the corresponding Config field untouched, so
// a partial file only overrides what it names. Panics on read or unmarshal
// errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.LocalDBPath != "" {
		cfg.LocalDBPath = jc.LocalDBPath
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.SyncRetryLimit != 0 {
		cfg.SyncRetryLimit = jc.SyncRetryLimit
	}
	if jc.StatusResetDelay.Duration != 0 {
		cfg.StatusResetDelay = time.Duration(jc.StatusResetDelay.Duration)
	}
	if jc.CacheMaxAge.Duration != 0 {
		cfg.CacheMaxAge = time.Duration(jc.CacheMaxAge.Duration)
	}
	if jc.CacheForcedExpiry.Duration != 0 {
		cfg.CacheForcedExpiry = time.Duration(jc.CacheForcedExpiry.Duration)
	}
	if jc.CacheSizeLimitBytes != 0 {
		cfg.CacheSizeLimitBytes = jc.CacheSizeLimitBytes
	}
}
