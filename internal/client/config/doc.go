// Package config loads runtime configuration for the TownSync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend API
//	-d string   path to the local sqlite database file
//	-i int      online status check interval (seconds)
//	-r int      per-action sync retry limit
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://api.townsync.example",
//	  "local_db_path": "townsync.db",
//	  "online_check_interval": "3s",
//	  "sync_retry_limit": 3,
//	  "status_reset_delay": "2s",
//	  "cache_max_age": "1h",
//	  "cache_forced_expiry": "24h",
//	  "cache_size_limit_bytes": 104857600
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
